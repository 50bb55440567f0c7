// Outcome accounting. Generators and servers never touch counters directly:
// they send Events to the Ledger goroutine, which owns every counter and fans
// each event out to the registered EventSinks.

package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ServerStats holds one server's outcome counters, indexed by PriorityClass.
type ServerStats struct {
	Index     int
	Processed [NumClasses]int64
	Declined  [NumClasses]int64
}

// TotalProcessed sums processed clients over both classes.
func (s ServerStats) TotalProcessed() int64 {
	return s.Processed[Regular] + s.Processed[Urgent]
}

// TotalDeclined sums declined clients over both classes.
func (s ServerStats) TotalDeclined() int64 {
	return s.Declined[Regular] + s.Declined[Urgent]
}

// Snapshot is the final ledger view handed to reporting.
type Snapshot struct {
	RunID       string
	Elapsed     time.Duration
	Interrupted bool // the deadline or an external cancel fired before all tasks finished
	Generated   [NumClasses]int64
	Servers     []ServerStats
}

// TotalGenerated sums generated clients over both classes.
func (s Snapshot) TotalGenerated() int64 {
	return s.Generated[Regular] + s.Generated[Urgent]
}

// Processed sums processed clients of a class over all servers.
func (s Snapshot) Processed(class PriorityClass) int64 {
	var n int64
	for _, st := range s.Servers {
		n += st.Processed[class]
	}
	return n
}

// Declined sums declined clients of a class over all servers.
func (s Snapshot) Declined(class PriorityClass) int64 {
	var n int64
	for _, st := range s.Servers {
		n += st.Declined[class]
	}
	return n
}

// Abandoned is the number of generated clients of a class with no recorded
// outcome: still queued, or in flight when the run was cancelled.
func (s Snapshot) Abandoned(class PriorityClass) int64 {
	return s.Generated[class] - s.Processed(class) - s.Declined(class)
}

// Ledger aggregates outcome events. Record may be called from any goroutine
// until Close; Snapshot is valid only after Close returns.
type Ledger struct {
	events    chan Event
	done      chan struct{}
	sinks     []EventSink
	generated [NumClasses]int64
	servers   []ServerStats
}

// NewLedger creates a ledger for servers 1..servers with the given event buffer.
func NewLedger(servers, buffer int, sinks ...EventSink) *Ledger {
	l := &Ledger{
		events:  make(chan Event, buffer),
		done:    make(chan struct{}),
		sinks:   append([]EventSink(nil), sinks...),
		servers: make([]ServerStats, servers),
	}
	for i := range l.servers {
		l.servers[i].Index = i + 1
	}
	return l
}

// Run consumes events until Close. It must run on its own goroutine.
func (l *Ledger) Run() {
	defer close(l.done)
	for ev := range l.events {
		l.apply(ev)
		l.notify(ev)
	}
}

// Record hands an event to the aggregator.
func (l *Ledger) Record(ev Event) {
	l.events <- ev
}

// Close stops accepting events and waits for the aggregator to drain.
// Every Record call must have returned before Close is called.
func (l *Ledger) Close() {
	close(l.events)
	<-l.done
}

// Snapshot copies the counters.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		Generated: l.generated,
		Servers:   append([]ServerStats(nil), l.servers...),
	}
}

func (l *Ledger) apply(ev Event) {
	if ev.Class < 0 || int(ev.Class) >= NumClasses {
		logrus.Warnf("ledger: dropping event with unknown class: %v", ev)
		return
	}
	if ev.Kind == EventCreated {
		l.generated[ev.Class]++
		return
	}
	if !ev.State().Terminal() {
		logrus.Warnf("ledger: dropping event with unknown kind %q", ev.Kind)
		return
	}
	if ev.Server < 1 || ev.Server > len(l.servers) {
		logrus.Warnf("ledger: dropping event from unknown server %d: %v", ev.Server, ev)
		return
	}
	st := &l.servers[ev.Server-1]
	if ev.State() == StateProcessed {
		st.Processed[ev.Class]++
	} else {
		st.Declined[ev.Class]++
	}
}

// notify delivers ev to every sink. A sink that panics is detached.
func (l *Ledger) notify(ev Event) {
	kept := l.sinks[:0]
	for _, sink := range l.sinks {
		if err := observe(sink, ev); err != nil {
			logrus.Warnf("ledger: detaching event sink: %v", err)
			continue
		}
		kept = append(kept, sink)
	}
	l.sinks = kept
}

func observe(sink EventSink, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked on %v: %v", ev, r)
		}
	}()
	sink.Observe(ev)
	return nil
}
