// Package trace provides event-trace recording for post-run analysis of a simulation.
// It stores pure data types and does not import sim/.
package trace

import "time"

// Event kinds as they appear in records.
const (
	KindCreated   = "created"
	KindProcessed = "processed"
	KindDeclined  = "declined"
)

// EventRecord captures a single client notification.
type EventRecord struct {
	RunID    string        `json:"run_id,omitempty"`
	Offset   time.Duration `json:"offset_ns"`
	Source   string        `json:"source"` // "generator" or "S<n>"
	Server   int           `json:"server"` // 0 for the generator
	Kind     string        `json:"kind"`
	Class    string        `json:"class"`
	ClientID int64         `json:"client_id"`
	Dequeued time.Duration `json:"dequeued_ns,omitempty"` // outcomes only
	Wait     time.Duration `json:"wait_ns,omitempty"`     // outcomes only
}

// IsOutcome reports whether the record is a processed or declined outcome.
func (r EventRecord) IsOutcome() bool {
	return r.Kind == KindProcessed || r.Kind == KindDeclined
}
