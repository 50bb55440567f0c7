package sim

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bankqueue-sim/bankqueue-sim/sim/telemetry"
)

// Simulation is the controller of one run: it owns the deadline, starts the
// two generators and the servers, joins them and returns the ledger snapshot.
type Simulation struct {
	cfg   Config
	runID string
	sinks []EventSink
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithEventSink registers a sink for per-client notifications.
func WithEventSink(sink EventSink) Option {
	return func(s *Simulation) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Simulation) {
		if id != "" {
			s.runID = id
		}
	}
}

// NewSimulation validates cfg and creates a Simulation.
func NewSimulation(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:   cfg,
		runID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunID returns the run identifier stamped on the snapshot.
func (s *Simulation) RunID() string {
	return s.runID
}

// Config returns the validated configuration.
func (s *Simulation) Config() Config {
	return s.cfg
}

// Run executes the simulation until every generator and server has stopped.
// Cancelling ctx stops the run early, like reaching the deadline.
//
// A generator or server that fails (panics) stops on its own; the run still
// completes with whatever the ledger recorded.
func (s *Simulation) Run(ctx context.Context) Snapshot {
	cfg := s.cfg
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "simulation.run", "INTERNAL")
	span.SetAttributes(map[string]string{
		"run.id":      s.runID,
		"run.servers": strconv.Itoa(cfg.Servers),
		"run.seed":    strconv.FormatInt(cfg.Seed, 10),
	})
	logrus.Infof("Starting simulation %s: duration=%s servers=%d pacing=%s seed=%d admission=%s",
		s.runID, cfg.Duration, cfg.Servers, cfg.PacingDelay, cfg.Seed, cfg.Admission)

	start := time.Now()
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	queue := NewIntakeQueue(NumClasses)
	ledger := NewLedger(cfg.Servers, cfg.EventBuffer, s.sinks...)
	go ledger.Run()

	var (
		g        errgroup.Group
		creation sync.Mutex
		sequence [NumClasses]atomic.Int64
	)
	service := NewUniformServiceSampler(cfg.ServiceTime)
	for _, class := range Classes {
		gen := NewArrivalGenerator(GeneratorConfig{
			Class:       class,
			Gate:        NewExponentialGate(cfg.Class(class)),
			Service:     service,
			GateRNG:     rng.ForSubsystem(SubsystemGate(class)),
			ServiceRNG:  rng.ForSubsystem(SubsystemService(class)),
			PacingDelay: cfg.PacingDelay,
			MaxAttempts: cfg.MaxAttempts,
			Sequence:    &sequence[class],
			Creation:    &creation,
			Queue:       queue,
			Ledger:      ledger,
			Start:       start,
		})
		g.Go(guard(fmt.Sprintf("%s generator", gen.Class()), func() error {
			ctx, span := telemetry.StartSpan(ctx, "generator."+gen.Class().String(), "PRODUCER")
			err := gen.Run(ctx)
			telemetry.EndSpan(span, err)
			return err
		}))
	}

	admission := NewAdmissionPolicy(cfg.Admission, &cfg)
	for i := 1; i <= cfg.Servers; i++ {
		srv := NewServer(i, queue, admission, ledger, start)
		g.Go(guard(fmt.Sprintf("server S%d", i), func() error {
			ctx, span := telemetry.StartSpan(ctx, fmt.Sprintf("server.S%d", srv.Index()), "CONSUMER")
			err := srv.Run(ctx)
			telemetry.EndSpan(span, err)
			return err
		}))
	}

	if err := g.Wait(); err != nil {
		logrus.Debugf("simulation %s finished with a failed task: %v", s.runID, err)
	}
	interrupted := ctx.Err() != nil
	ledger.Close()

	snap := ledger.Snapshot()
	snap.RunID = s.runID
	snap.Elapsed = time.Since(start)
	snap.Interrupted = interrupted

	span.SetInt("clients.generated", snap.TotalGenerated())
	telemetry.EndSpan(span, nil)
	logrus.Infof("Simulation %s complete in %s: generated=%d interrupted=%t",
		s.runID, snap.Elapsed.Round(time.Millisecond), snap.TotalGenerated(), interrupted)
	return snap
}

// guard contains a panic inside a task: it is logged and returned as an error
// so the remaining tasks keep running.
func guard(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
				logrus.Warnf("%v\n%s", err, debug.Stack())
			}
		}()
		return fn()
	}
}
