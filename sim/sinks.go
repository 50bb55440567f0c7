package sim

import "github.com/bankqueue-sim/bankqueue-sim/sim/trace"

// TraceSink records every event into st.
func TraceSink(st *trace.SimulationTrace) EventSink {
	return EventSinkFunc(func(ev Event) {
		st.RecordEvent(ToTraceRecord(ev))
	})
}

// ToTraceRecord converts an Event to its trace representation.
func ToTraceRecord(ev Event) trace.EventRecord {
	return trace.EventRecord{
		Offset:   ev.Offset,
		Source:   ev.Source(),
		Server:   ev.Server,
		Kind:     string(ev.Kind),
		Class:    ev.Class.String(),
		ClientID: ev.ClientID,
		Dequeued: ev.Dequeued,
		Wait:     ev.Wait,
	}
}
