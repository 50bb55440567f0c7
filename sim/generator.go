package sim

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// GeneratorConfig wires an ArrivalGenerator into a run.
type GeneratorConfig struct {
	Class       PriorityClass
	Gate        *ExponentialGate
	Service     ServiceSampler
	GateRNG     *rand.Rand // owned by this generator
	ServiceRNG  *rand.Rand // owned by this generator
	PacingDelay time.Duration
	MaxAttempts int64 // 0 = unlimited

	Sequence *atomic.Int64 // id source for Class
	Creation *sync.Mutex   // shared by all generators
	Queue    *IntakeQueue
	Ledger   *Ledger
	Start    time.Time // run start, for event offsets
}

// ArrivalGenerator emits clients of one priority class until cancelled or until
// MaxAttempts attempts have been made. After every attempt, whether or not the
// gate opened, it waits PacingDelay before the next one; time spent emitting
// does not count toward the delay.
type ArrivalGenerator struct {
	cfg GeneratorConfig
}

// NewArrivalGenerator creates a generator. A zero PacingDelay means attempts are unpaced.
func NewArrivalGenerator(cfg GeneratorConfig) *ArrivalGenerator {
	return &ArrivalGenerator{cfg: cfg}
}

// Class returns the priority class this generator emits.
func (g *ArrivalGenerator) Class() PriorityClass {
	return g.cfg.Class
}

// Run drives the attempt loop. It always releases its writer on the queue when
// it returns, including on panic, and never returns an error for cancellation.
func (g *ArrivalGenerator) Run(ctx context.Context) error {
	defer g.cfg.Queue.CloseWriter()
	logrus.Debugf("%s generator started", g.cfg.Class)

	var attempts, emitted int64
	for g.cfg.MaxAttempts == 0 || attempts < g.cfg.MaxAttempts {
		if attempts > 0 {
			if err := g.pace(ctx); err != nil {
				// The delay would overrun the deadline; hold the writer
				// open until the deadline anyway.
				<-ctx.Done()
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		attempts++
		if !g.cfg.Gate.Open(g.cfg.GateRNG) {
			continue
		}
		if err := g.emit(ctx); err != nil {
			break
		}
		emitted++
	}

	logrus.Debugf("%s generator stopped after %d attempts, %d clients", g.cfg.Class, attempts, emitted)
	return nil
}

// pace waits PacingDelay from now. The limiter starts drained so the full delay
// always elapses; Wait fails early if that would overrun ctx's deadline.
func (g *ArrivalGenerator) pace(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(g.cfg.PacingDelay), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}

// emit allocates an id, records the Created event and enqueues the client as
// one unit relative to the other generators. Created reaches the ledger before
// any server can claim the client.
func (g *ArrivalGenerator) emit(ctx context.Context) error {
	service := g.cfg.Service.Sample(g.cfg.ServiceRNG)

	g.cfg.Creation.Lock()
	defer g.cfg.Creation.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	c := NewClient(g.cfg.Sequence.Add(1), g.cfg.Class, now, service)
	g.cfg.Ledger.Record(Event{
		Offset:   now.Sub(g.cfg.Start),
		Server:   GeneratorSource,
		Kind:     EventCreated,
		Class:    g.cfg.Class,
		ClientID: c.ID,
	})
	logrus.Tracef("created %s", c)
	return g.cfg.Queue.Enqueue(c)
}
