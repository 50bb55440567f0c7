package trace

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelOutcomes captures processed and declined outcomes only.
	TraceLevelOutcomes TraceLevel = "outcomes"
	// TraceLevelAll also captures client creation.
	TraceLevelAll TraceLevel = "all"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelOutcomes: true,
	TraceLevelAll:      true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	RunID string // stamped on every record when set
}

// SimulationTrace collects event records during a run. It is not safe for
// concurrent use; the simulation delivers events from a single goroutine.
type SimulationTrace struct {
	Config TraceConfig
	Events []EventRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Events: make([]EventRecord, 0),
	}
}

// RecordEvent appends a record if the trace level admits it.
func (st *SimulationTrace) RecordEvent(record EventRecord) {
	switch st.Config.Level {
	case TraceLevelAll:
	case TraceLevelOutcomes:
		if !record.IsOutcome() {
			return
		}
	default:
		return
	}
	if record.RunID == "" {
		record.RunID = st.Config.RunID
	}
	st.Events = append(st.Events, record)
}

// Outcomes returns the processed and declined records in recording order.
func (st *SimulationTrace) Outcomes() []EventRecord {
	out := make([]EventRecord, 0, len(st.Events))
	for _, r := range st.Events {
		if r.IsOutcome() {
			out = append(out, r)
		}
	}
	return out
}
