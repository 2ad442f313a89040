package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// ErrNoSnapshots is returned when there is nothing to render.
var ErrNoSnapshots = errors.New("no snapshots")

// PlotOptions controls the adoption chart.
type PlotOptions struct {
	Title string
	// Normalize divides every version's series by its own maximum, so each
	// version peaks at 1.
	Normalize bool
}

// Series is the plotted data: one x label per snapshot and one row of
// values per known version.
type Series struct {
	Labels []string
	Tags   []langver.Tag
	Values [][]float64
}

// BuildSeries lays snapshots, ordered oldest first, out as per-version series.
// With normalize a version whose counts are all zero stays at zero.
func BuildSeries(snaps []snapshot.Snapshot, normalize bool) Series {
	tags := langver.Known()
	s := Series{
		Labels: make([]string, len(snaps)),
		Tags:   tags,
		Values: make([][]float64, len(tags)),
	}

	for i, snap := range snaps {
		s.Labels[i] = snap.CommitTime.UTC().Format("2006-01-02")
	}

	for j, tag := range tags {
		row := make([]float64, len(snaps))
		peak := 0.0

		for i, snap := range snaps {
			row[i] = float64(snap.Counts.Get(tag))
			peak = max(peak, row[i])
		}

		if normalize && peak > 0 {
			for i := range row {
				row[i] /= peak
			}
		}

		s.Values[j] = row
	}

	return s
}

// Plot writes an interactive HTML line chart of feature counts over time.
func Plot(w io.Writer, snaps []snapshot.Snapshot, po PlotOptions) error {
	if len(snaps) == 0 {
		return ErrNoSnapshots
	}

	series := BuildSeries(snaps, po.Normalize)

	title := po.Title
	if title == "" {
		title = "C# language feature adoption"
	}

	subtitle := "Feature occurrences per sampled commit"
	yName := "Occurrences"

	if po.Normalize {
		subtitle = "Max-normalized per version"
		yName = "Share of peak"
	}

	const fullZoomPct = 100

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "5px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: fullZoomPct}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Commit date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	line.SetXAxis(series.Labels)

	for j, tag := range series.Tags {
		data := make([]opts.LineData, len(series.Values[j]))
		for i, v := range series.Values[j] {
			data[i] = opts.LineData{Value: v}
		}

		line.AddSeries("C# "+tag.String(), data)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
