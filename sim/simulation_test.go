package sim

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankqueue-sim/bankqueue-sim/sim/trace"
)

// fastConfig returns a configuration scaled down to milliseconds.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Duration = 200 * time.Millisecond
	cfg.PacingDelay = time.Millisecond
	cfg.ServiceTime = ServiceTimeConfig{Min: 1, Max: 4, Unit: time.Millisecond}
	cfg.Regular.MaxWait = 10 * time.Millisecond
	cfg.Urgent.MaxWait = 5 * time.Millisecond
	return cfg
}

func runSimulation(t *testing.T, cfg Config, opts ...Option) Snapshot {
	t.Helper()
	s, err := NewSimulation(cfg, opts...)
	require.NoError(t, err)
	return s.Run(context.Background())
}

func TestNewSimulation_InvalidConfig_Rejected(t *testing.T) {
	cfg := fastConfig()
	cfg.Servers = 0
	_, err := NewSimulation(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestSimulation_RunID(t *testing.T) {
	a, err := NewSimulation(fastConfig())
	require.NoError(t, err)
	b, err := NewSimulation(fastConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())

	c, err := NewSimulation(fastConfig(), WithRunID("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", c.RunID())
}

func TestSimulation_Run_AccountingHolds(t *testing.T) {
	// GIVEN a default-shaped run with two servers
	cfg := fastConfig()
	cfg.Servers = 2

	// WHEN it runs to the deadline
	snap := runSimulation(t, cfg, WithRunID("acct"))

	// THEN every generated client is processed, declined or abandoned, never more
	assert.Equal(t, "acct", snap.RunID)
	assert.True(t, snap.Interrupted)
	assert.Len(t, snap.Servers, 2)
	for _, class := range Classes {
		handled := snap.Processed(class) + snap.Declined(class)
		assert.LessOrEqual(t, handled, snap.Generated[class], "class %s", class)
		assert.GreaterOrEqual(t, snap.Abandoned(class), int64(0))
	}
	assert.Positive(t, snap.TotalGenerated())
	assert.GreaterOrEqual(t, snap.Elapsed, cfg.Duration-10*time.Millisecond)
	assert.Less(t, snap.Elapsed, cfg.Duration+time.Second)
}

func TestSimulation_Run_AmpleCapacity_FewAbandoned(t *testing.T) {
	// GIVEN far more service capacity than arrivals
	cfg := fastConfig()
	cfg.Servers = 8
	cfg.PacingDelay = 2 * time.Millisecond

	// WHEN the deadline cancels the run
	snap := runSimulation(t, cfg)

	// THEN only clients in flight at the boundary go unrecorded
	abandoned := snap.Abandoned(Regular) + snap.Abandoned(Urgent)
	assert.GreaterOrEqual(t, abandoned, int64(0))
	assert.LessOrEqual(t, abandoned, int64(2*cfg.Servers+NumClasses))
}

func TestSimulation_Run_ZeroAcceptance_AllCountersZero(t *testing.T) {
	cfg := fastConfig()
	cfg.Duration = 50 * time.Millisecond
	cfg.Regular.Acceptance = 0
	cfg.Urgent.Acceptance = 0

	snap := runSimulation(t, cfg)

	assert.Zero(t, snap.TotalGenerated())
	for _, st := range snap.Servers {
		assert.Zero(t, st.TotalProcessed())
		assert.Zero(t, st.TotalDeclined())
	}
}

func TestSimulation_Run_ZeroPatienceFloodedQueue_NothingProcessed(t *testing.T) {
	// GIVEN unpaced always-open generators, one server and no patience at all
	cfg := fastConfig()
	cfg.Duration = 30 * time.Millisecond
	cfg.PacingDelay = 0
	cfg.Regular = ClassConfig{Rate: 5, Acceptance: 1000, MaxWait: 0}
	cfg.Urgent = ClassConfig{Rate: 2, Acceptance: 1000, MaxWait: 0}

	// WHEN the run ends
	snap := runSimulation(t, cfg)

	// THEN every generated client was declined or left behind at cancellation
	assert.Positive(t, snap.TotalGenerated())
	assert.Positive(t, snap.Declined(Regular)+snap.Declined(Urgent))
	for _, class := range Classes {
		assert.Zero(t, snap.Processed(class), "class %s", class)
		assert.Equal(t, snap.Generated[class], snap.Declined(class)+snap.Abandoned(class), "class %s", class)
	}
}

func TestSimulation_Run_CreatedPrecedesOutcome(t *testing.T) {
	// GIVEN a flooded queue, several servers and an unbuffered ledger
	cfg := fastConfig()
	cfg.Duration = 100 * time.Millisecond
	cfg.Servers = 3
	cfg.PacingDelay = 0
	cfg.EventBuffer = 0
	cfg.Regular = ClassConfig{Rate: 5, Acceptance: 1000, MaxWait: 0}
	cfg.Urgent = ClassConfig{Rate: 2, Acceptance: 1000, MaxWait: 0}

	created := make(map[string]bool)
	var outcomes, early int
	sink := EventSinkFunc(func(ev Event) {
		key := fmt.Sprintf("%s/%d", ev.Class, ev.ClientID)
		if ev.Kind == EventCreated {
			created[key] = true
			return
		}
		outcomes++
		if !created[key] {
			early++
		}
	})

	// WHEN the run completes
	runSimulation(t, cfg, WithEventSink(sink))

	// THEN no sink sees an outcome before the client's Created event
	assert.Positive(t, outcomes)
	assert.Zero(t, early, "outcomes delivered before their Created event")
}

func TestSimulation_Run_AlwaysAdmit_NeverDeclines(t *testing.T) {
	cfg := fastConfig()
	cfg.Admission = AdmissionAlways
	cfg.Regular.MaxWait = 0
	cfg.Urgent.MaxWait = 0
	cfg.Servers = 2

	snap := runSimulation(t, cfg)

	assert.Positive(t, snap.Processed(Regular)+snap.Processed(Urgent))
	assert.Zero(t, snap.Declined(Regular)+snap.Declined(Urgent))
}

func TestSimulation_Run_UnlimitedPatience_NoDeclines(t *testing.T) {
	// GIVEN regular clients only, no wait limit and plenty of capacity
	cfg := fastConfig()
	cfg.Duration = 5 * time.Second
	cfg.Servers = 3
	cfg.MaxAttempts = 30
	cfg.Regular = ClassConfig{Rate: 5, Acceptance: 1000, MaxWait: NoWaitLimit}
	cfg.Urgent.Acceptance = 0

	// WHEN both generators exhaust their attempts
	snap := runSimulation(t, cfg)

	// THEN the run finishes early and every client is processed
	assert.False(t, snap.Interrupted)
	assert.Equal(t, int64(30), snap.Generated[Regular])
	assert.Zero(t, snap.Generated[Urgent])
	assert.Zero(t, snap.Declined(Regular))
	assert.Equal(t, snap.Generated[Regular], snap.Processed(Regular))
	assert.Zero(t, snap.Abandoned(Regular))
}

func TestSimulation_Run_SameSeed_SameArrivals(t *testing.T) {
	// GIVEN a bounded number of attempts so arrivals depend only on the seed
	cfg := fastConfig()
	cfg.Duration = 5 * time.Second
	cfg.PacingDelay = 0
	cfg.MaxAttempts = 200
	cfg.Servers = 4
	cfg.Regular.MaxWait = NoWaitLimit
	cfg.Urgent.MaxWait = NoWaitLimit
	cfg.ServiceTime = ServiceTimeConfig{Min: 0, Max: 0, Unit: time.Millisecond}

	first := runSimulation(t, cfg)
	second := runSimulation(t, cfg)

	assert.Equal(t, first.Generated, second.Generated)
	assert.Positive(t, first.TotalGenerated())
}

func TestSimulation_Run_TraceProperties(t *testing.T) {
	// GIVEN a single-server run with a trace sink attached
	cfg := fastConfig()
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelAll, RunID: "props"})

	// WHEN it runs
	snap := runSimulation(t, cfg, WithEventSink(TraceSink(st)))

	// THEN every outcome respects patience and the trace is clean
	limit := map[string]time.Duration{
		Regular.String(): cfg.Regular.MaxWait,
		Urgent.String():  cfg.Urgent.MaxWait,
	}
	for _, rec := range st.Outcomes() {
		switch rec.Kind {
		case trace.KindDeclined:
			assert.Greater(t, rec.Wait, limit[rec.Class], "declined %s/%d", rec.Class, rec.ClientID)
		case trace.KindProcessed:
			assert.LessOrEqual(t, rec.Wait, limit[rec.Class], "processed %s/%d", rec.Class, rec.ClientID)
		}
	}

	sum := trace.Summarize(st)
	assert.Zero(t, sum.DuplicateOutcomes)
	assert.Zero(t, sum.FIFOViolations)
	assert.LessOrEqual(t, sum.UniqueServers, 1)
	for _, class := range Classes {
		cs := sum.Classes[class.String()]
		if cs == nil {
			continue
		}
		assert.Equal(t, snap.Generated[class], int64(cs.Created), "class %s", class)
		assert.Equal(t, snap.Processed(class), int64(cs.Processed), "class %s", class)
		assert.Equal(t, snap.Declined(class), int64(cs.Declined), "class %s", class)
	}
}

func TestSimulation_Run_ExternalCancel_StopsEarly(t *testing.T) {
	cfg := fastConfig()
	cfg.Duration = time.Minute
	s, err := NewSimulation(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	snap := s.Run(ctx)

	assert.True(t, snap.Interrupted)
	assert.Less(t, snap.Elapsed, 5*time.Second)
}

func TestSimulation_PanickingSink_RunCompletes(t *testing.T) {
	cfg := fastConfig()
	cfg.Duration = 50 * time.Millisecond
	snap := runSimulation(t, cfg, WithEventSink(EventSinkFunc(func(Event) { panic("sink") })))
	assert.Positive(t, snap.TotalGenerated())
}

func TestGuard_RecoversPanic(t *testing.T) {
	err := guard("task", func() error { panic("boom") })()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panicked: boom")

	want := errors.New("plain")
	assert.Equal(t, want, guard("task", func() error { return want })())
	assert.NoError(t, guard("task", func() error { return nil })())
}
