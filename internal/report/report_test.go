package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/modernity/internal/report"
	"github.com/Sumatoshi-tech/modernity/pkg/accum"
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

func snap(t *testing.T, day int, hash string, counts map[string]int) snapshot.Snapshot {
	t.Helper()

	acc, err := accum.FromMap(counts)
	require.NoError(t, err)

	return snapshot.Snapshot{
		Repository: "widgets",
		Commit:     hash,
		CommitTime: time.Date(2021, 1, day, 0, 0, 0, 0, time.UTC),
		Counts:     acc,
		Files:      10,
	}
}

func TestBuildSeries_MaxNormalization(t *testing.T) {
	t.Parallel()

	snaps := []snapshot.Snapshot{
		snap(t, 1, "aaaaaaaaaa", map[string]int{"9.0": 2, "10.0": 0}),
		snap(t, 2, "bbbbbbbbbb", map[string]int{"9.0": 4, "10.0": 0}),
	}

	raw := report.BuildSeries(snaps, false)
	assert.Equal(t, []string{"2021-01-01", "2021-01-02"}, raw.Labels)
	require.Len(t, raw.Values, len(langver.Known()))

	norm := report.BuildSeries(snaps, true)

	for j, tag := range norm.Tags {
		switch tag {
		case langver.V9_0:
			assert.Equal(t, []float64{2, 4}, raw.Values[j])
			assert.Equal(t, []float64{0.5, 1}, norm.Values[j])
		case langver.V10_0:
			assert.Equal(t, []float64{0, 0}, norm.Values[j])
		}
	}
}

func TestPlot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.ErrorIs(t, report.Plot(&buf, nil, report.PlotOptions{}), report.ErrNoSnapshots)

	snaps := []snapshot.Snapshot{snap(t, 1, "aaaaaaaaaa", map[string]int{"8.0": 3})}
	require.NoError(t, report.Plot(&buf, snaps, report.PlotOptions{Title: "widgets", Normalize: true}))

	html := buf.String()
	assert.Contains(t, html, "widgets")
	assert.Contains(t, html, "C# 8.0")
	assert.Contains(t, html, "2021-01-01")
}

func TestHistoryTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	snaps := []snapshot.Snapshot{
		snap(t, 1, "abcdef0123456789", map[string]int{"7.3": 1200}),
		snap(t, 2, "0123456789abcdef", map[string]int{"12.0": 1}),
	}
	snaps[1].FailedFiles = 2

	report.History(&buf, snaps, report.Options{})

	out := buf.String()
	assert.Contains(t, out, "C# 7.3")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "abcdef0")
	assert.Contains(t, out, "2021-01-02")
	assert.NotContains(t, out, "\x1b[")
}

func TestCountsAndRules(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	acc := accum.Zero()
	acc.Add(langver.V11_0, 5)

	report.Counts(&buf, "demo", acc, 3, 1, report.Options{Color: true})
	assert.Contains(t, buf.String(), "demo")
	assert.Contains(t, buf.String(), "\x1b[")

	buf.Reset()
	report.Rules(&buf, []report.Rule{{ID: "list-pattern", Version: "11.0", Label: "list pattern", Kinds: []string{"list_pattern"}}}, report.Options{})
	assert.Contains(t, buf.String(), "list-pattern")
	assert.Contains(t, buf.String(), "list_pattern")
}

func TestDiff(t *testing.T) {
	t.Parallel()

	a := snap(t, 1, "aaaaaaaaaa", map[string]int{"9.0": 1})
	b := snap(t, 2, "bbbbbbbbbb", map[string]int{"9.0": 3, "10.0": 1})

	out := report.Diff(a, b, report.Options{})

	assert.Contains(t, out, "- C# 9.0: 1\n")
	assert.Contains(t, out, "+ C# 9.0: 3\n")
	assert.Contains(t, out, "+ C# 10.0: 1\n")
	assert.Contains(t, out, "  repository: widgets\n")

	same := report.Diff(a, a, report.Options{})
	assert.False(t, strings.Contains(same, "\n+ ") || strings.HasPrefix(same, "+ "))

	delta := report.Delta(a, b)
	assert.Equal(t, 2, delta["9.0"])
	assert.Equal(t, 1, delta["10.0"])
	assert.Zero(t, delta["7.1"])
}
