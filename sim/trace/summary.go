package trace

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// ClassSummary aggregates the records of one priority class.
type ClassSummary struct {
	Created   int
	Processed int
	Declined  int
	MeanWait  time.Duration // over processed and declined outcomes
	P50Wait   time.Duration
	P95Wait   time.Duration
	MaxWait   time.Duration

	totalWait time.Duration
}

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents        int
	Classes            map[string]*ClassSummary
	SourceDistribution map[string]int // outcome source ("S1", ...) → count
	UniqueServers      int

	// DuplicateOutcomes counts class+id pairs recorded with more than one outcome.
	DuplicateOutcomes int
	// FIFOViolations counts outcomes whose dequeue offset precedes the previous
	// outcome's dequeue offset on the same server.
	FIFOViolations int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		Classes:            make(map[string]*ClassSummary),
		SourceDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	seen := make(map[string]bool)
	lastDequeue := make(map[string]time.Duration)
	waits := make(map[string][]time.Duration)
	for _, r := range st.Events {
		cs, ok := summary.Classes[r.Class]
		if !ok {
			cs = &ClassSummary{}
			summary.Classes[r.Class] = cs
		}
		switch r.Kind {
		case KindCreated:
			cs.Created++
			continue
		case KindProcessed:
			cs.Processed++
		case KindDeclined:
			cs.Declined++
		default:
			continue
		}

		cs.totalWait += r.Wait
		waits[r.Class] = append(waits[r.Class], r.Wait)
		if r.Wait > cs.MaxWait {
			cs.MaxWait = r.Wait
		}
		summary.SourceDistribution[r.Source]++

		key := fmt.Sprintf("%s/%d", r.Class, r.ClientID)
		if seen[key] {
			summary.DuplicateOutcomes++
		}
		seen[key] = true

		if prev, ok := lastDequeue[r.Source]; ok && r.Dequeued < prev {
			summary.FIFOViolations++
		}
		lastDequeue[r.Source] = r.Dequeued
	}

	for class, cs := range summary.Classes {
		if n := cs.Processed + cs.Declined; n > 0 {
			cs.MeanWait = cs.totalWait / time.Duration(n)
		}
		if w := waits[class]; len(w) > 0 {
			slices.Sort(w)
			cs.P50Wait = percentile(w, 50)
			cs.P95Wait = percentile(w, 95)
		}
	}
	summary.UniqueServers = len(summary.SourceDistribution)
	return summary
}

// percentile returns the p-th percentile of sorted data, interpolating
// linearly between the two nearest ranks.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := p / 100.0 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if upper >= n {
		return sorted[n-1]
	}
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + time.Duration(float64(sorted[upper]-sorted[lower])*frac)
}
