package cmd

import (
	"bufio"
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/bankqueue-sim/bankqueue-sim/sim"
	"github.com/bankqueue-sim/bankqueue-sim/sim/trace"
)

// writeEvents stores the trace as JSON lines at path.
func writeEvents(path string, st *trace.SimulationTrace) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := trace.WriteJSONL(bw, st); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// savePlot renders processed and declined counts per server as grouped bars.
func savePlot(snap sim.Snapshot, path string) error {
	if len(snap.Servers) == 0 {
		return fmt.Errorf("no servers in snapshot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Outcomes per server (run %s)", snap.RunID)
	p.Y.Label.Text = "Clients"

	processed := make(plotter.Values, len(snap.Servers))
	declined := make(plotter.Values, len(snap.Servers))
	names := make([]string, len(snap.Servers))
	for i, st := range snap.Servers {
		processed[i] = float64(st.TotalProcessed())
		declined[i] = float64(st.TotalDeclined())
		names[i] = fmt.Sprintf("S%d", st.Index)
	}

	width := vg.Points(20)
	for i, series := range []struct {
		label  string
		values plotter.Values
		offset vg.Length
	}{
		{"processed", processed, -width / 2},
		{"declined", declined, width / 2},
	} {
		bars, err := plotter.NewBarChart(series.values, width)
		if err != nil {
			return err
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = series.offset
		p.Add(bars)
		p.Legend.Add(series.label, bars)
	}
	p.Legend.Top = true
	p.NominalX(names...)

	return p.Save(vg.Length(max(4, len(names)))*vg.Inch, 4*vg.Inch, path)
}
