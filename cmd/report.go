package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/bankqueue-sim/bankqueue-sim/sim"
	"github.com/bankqueue-sim/bankqueue-sim/sim/trace"
)

var (
	bold  = color.New(color.Bold)
	cyan  = color.New(color.FgCyan)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	amber = color.New(color.FgYellow)
)

// eventPrinter writes one colored line per client event.
type eventPrinter struct {
	w io.Writer
}

func newEventPrinter(w io.Writer) sim.EventSink {
	return &eventPrinter{w: w}
}

func (p *eventPrinter) Observe(ev sim.Event) {
	c := cyan
	switch ev.Kind {
	case sim.EventProcessed:
		c = green
	case sim.EventDeclined:
		c = red
	}
	_, _ = c.Fprintln(p.w, ev.String())
}

// printReport writes the GENERATED, PROCESSED, DECLINED and ABANDONED sections.
func printReport(w io.Writer, snap sim.Snapshot) {
	_, _ = fmt.Fprintln(w)
	_, _ = bold.Fprintf(w, "Run %s finished in %s", snap.RunID, snap.Elapsed.Round(time.Millisecond))
	if snap.Interrupted {
		_, _ = bold.Fprint(w, " (deadline or signal reached)")
	}
	_, _ = fmt.Fprintln(w)

	section(w, cyan, "GENERATED COUNT")
	table := tablewriter.NewWriter(w)
	table.Header("Class", "Generated")
	for _, class := range sim.Classes {
		_ = table.Append(class.String(), strconv.FormatInt(snap.Generated[class], 10))
	}
	_ = table.Append("total", strconv.FormatInt(snap.TotalGenerated(), 10))
	_ = table.Render()

	section(w, green, "PROCESSED COUNT")
	renderPerServer(w, snap, func(st sim.ServerStats, c sim.PriorityClass) int64 { return st.Processed[c] }, snap.Processed)

	section(w, red, "DECLINED COUNT")
	renderPerServer(w, snap, func(st sim.ServerStats, c sim.PriorityClass) int64 { return st.Declined[c] }, snap.Declined)

	section(w, amber, "ABANDONED COUNT")
	table = tablewriter.NewWriter(w)
	table.Header("Class", "Abandoned")
	var total int64
	for _, class := range sim.Classes {
		n := snap.Abandoned(class)
		total += n
		_ = table.Append(class.String(), strconv.FormatInt(n, 10))
	}
	_ = table.Append("total", strconv.FormatInt(total, 10))
	_ = table.Render()
}

func section(w io.Writer, c *color.Color, title string) {
	_, _ = fmt.Fprintln(w)
	_, _ = c.Fprintf(w, "--- %s ---\n", title)
}

// renderPerServer writes one row per server plus a totals row.
func renderPerServer(w io.Writer, snap sim.Snapshot, perServer func(sim.ServerStats, sim.PriorityClass) int64, perClass func(sim.PriorityClass) int64) {
	table := tablewriter.NewWriter(w)
	table.Header("Server", "Regular", "Urgent", "Total")
	for _, st := range snap.Servers {
		regular, urgent := perServer(st, sim.Regular), perServer(st, sim.Urgent)
		_ = table.Append(
			fmt.Sprintf("S%d", st.Index),
			strconv.FormatInt(regular, 10),
			strconv.FormatInt(urgent, 10),
			strconv.FormatInt(regular+urgent, 10),
		)
	}
	regular, urgent := perClass(sim.Regular), perClass(sim.Urgent)
	_ = table.Append("total",
		strconv.FormatInt(regular, 10),
		strconv.FormatInt(urgent, 10),
		strconv.FormatInt(regular+urgent, 10),
	)
	_ = table.Render()
}

// printWaitSummary writes queue wait statistics per class from the event trace.
func printWaitSummary(w io.Writer, summary *trace.TraceSummary) {
	section(w, bold, "WAIT TIMES")
	table := tablewriter.NewWriter(w)
	table.Header("Class", "Outcomes", "Mean", "P50", "P95", "Max")
	for _, class := range sim.Classes {
		cs, ok := summary.Classes[class.String()]
		if !ok {
			continue
		}
		_ = table.Append(
			class.String(),
			strconv.Itoa(cs.Processed+cs.Declined),
			formatWait(cs.MeanWait),
			formatWait(cs.P50Wait),
			formatWait(cs.P95Wait),
			formatWait(cs.MaxWait),
		)
	}
	_ = table.Render()
	if summary.DuplicateOutcomes > 0 || summary.FIFOViolations > 0 {
		_, _ = red.Fprintf(w, "trace check: %d duplicate outcomes, %d FIFO violations\n",
			summary.DuplicateOutcomes, summary.FIFOViolations)
	}
}

func formatWait(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}
