package sim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Server is a single-slot worker: it claims one client at a time from the shared
// IntakeQueue, applies admission control and simulates service.
//
// Outcomes are recorded only while the run is live. Once ctx is done, a client's
// decline or completion is dropped rather than counted (drop-on-cancel), so a few
// clients in flight at the deadline end up abandoned.
type Server struct {
	index     int
	queue     *IntakeQueue
	admission AdmissionPolicy
	ledger    *Ledger
	start     time.Time
}

// NewServer creates server number index (1-based).
func NewServer(index int, queue *IntakeQueue, admission AdmissionPolicy, ledger *Ledger, start time.Time) *Server {
	return &Server{
		index:     index,
		queue:     queue,
		admission: admission,
		ledger:    ledger,
		start:     start,
	}
}

// Index returns the 1-based server number.
func (s *Server) Index() int {
	return s.index
}

// Run processes clients until the queue reports end of stream or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	logrus.Debugf("server S%d started", s.index)
	served := 0
	for ctx.Err() == nil {
		c, err := s.queue.Dequeue(ctx)
		if err != nil {
			break
		}
		s.handle(ctx, c)
		served++
	}
	logrus.Debugf("server S%d stopped after %d clients (queue closed: %t)", s.index, served, s.queue.Closed())
	return nil
}

func (s *Server) handle(ctx context.Context, c Client) {
	dequeued := time.Now()
	wait := c.Wait(dequeued)

	if ok, reason := s.admission.Admit(c, dequeued); !ok {
		if ctx.Err() != nil {
			s.transition(c, StateQueued, StateAbandoned)
			return
		}
		s.transition(c, StateQueued, StateDeclined, reason)
		s.record(EventDeclined, c, dequeued, wait)
		return
	}

	s.transition(c, StateQueued, StateProcessing)
	sleep(ctx, c.ServiceDuration)
	if ctx.Err() != nil {
		s.transition(c, StateProcessing, StateAbandoned)
		return
	}
	s.transition(c, StateProcessing, StateProcessed)
	s.record(EventProcessed, c, dequeued, wait)
}

func (s *Server) transition(c Client, from, to ClientState, detail ...string) {
	if !logrus.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	msg := fmt.Sprintf("S%d %s client %d: %s -> %s", s.index, c.Class, c.ID, from, to)
	if len(detail) > 0 {
		msg += " (" + strings.Join(detail, ", ") + ")"
	}
	logrus.Trace(msg)
}

func (s *Server) record(kind EventKind, c Client, dequeued time.Time, wait time.Duration) {
	s.ledger.Record(Event{
		Offset:   time.Since(s.start),
		Server:   s.index,
		Kind:     kind,
		Class:    c.Class,
		ClientID: c.ID,
		Dequeued: dequeued.Sub(s.start),
		Wait:     wait,
	})
}

// sleep suspends for d, returning early if ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
