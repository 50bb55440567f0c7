package sim

import (
	"fmt"
	"time"
)

// EventKind tags an outcome notification.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventProcessed EventKind = "processed"
	EventDeclined  EventKind = "declined"
)

// GeneratorSource is the Event.Server value used for notifications emitted by a generator.
const GeneratorSource = 0

// Event is a per-client notification delivered to every EventSink.
// Offsets are measured from the start of the run.
type Event struct {
	Offset   time.Duration // when the event was emitted
	Server   int           // 1..N, or GeneratorSource
	Kind     EventKind
	Class    PriorityClass
	ClientID int64

	// Dequeued and Wait are set for processed and declined outcomes only.
	Dequeued time.Duration // offset at which the server claimed the client
	Wait     time.Duration // time between arrival and dequeue
}

// Source renders the emitter as "generator" or "S<n>".
func (e Event) Source() string {
	if e.Server == GeneratorSource {
		return "generator"
	}
	return fmt.Sprintf("S%d", e.Server)
}

// State returns the client state the event reports: queued for Created, the
// terminal state for outcomes, and "" for an unknown kind.
func (e Event) State() ClientState {
	switch e.Kind {
	case EventCreated:
		return StateQueued
	case EventProcessed:
		return StateProcessed
	case EventDeclined:
		return StateDeclined
	default:
		return ""
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s | %s %s %s ID: %d", e.Offset, e.Source(), e.Kind, e.Class, e.ClientID)
}

// EventSink receives notifications from the ledger goroutine. Implementations are
// invoked sequentially and need no locking of their own.
type EventSink interface {
	Observe(ev Event)
}

// EventSinkFunc adapts a plain function to an EventSink.
type EventSinkFunc func(ev Event)

func (f EventSinkFunc) Observe(ev Event) { f(ev) }
