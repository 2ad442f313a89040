// Package report renders snapshots for people: tables, charts and diffs.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/modernity/pkg/accum"
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// Options controls terminal rendering.
type Options struct {
	// Color enables ANSI colors in headers and deltas.
	Color bool
}

func (o Options) paint(attr color.Attribute, s string) string {
	if !o.Color {
		return s
	}

	c := color.New(attr)
	c.EnableColor()

	return c.Sprint(s)
}

// Warn paints s as a warning.
func (o Options) Warn(s string) string {
	return o.paint(color.FgYellow, s)
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Header = text.FormatDefault

	return tbl
}

func versionHeader(opts Options) table.Row {
	row := make(table.Row, 0, len(langver.Known()))
	for _, tag := range langver.Known() {
		row = append(row, opts.paint(color.FgCyan, "C# "+tag.String()))
	}

	return row
}

func countCells(counts accum.Accumulator) table.Row {
	row := make(table.Row, 0, len(langver.Known()))
	for _, e := range counts.Entries() {
		row = append(row, humanize.Comma(int64(e.Count)))
	}

	return row
}

func rightAlignCounts(tbl table.Writer, first int) {
	cfgs := make([]table.ColumnConfig, 0, len(langver.Known()))
	for i := range langver.Known() {
		cfgs = append(cfgs, table.ColumnConfig{Number: first + i, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}

	tbl.SetColumnConfigs(cfgs)
}

// Counts renders one census: a row of per-version counts with file totals.
func Counts(w io.Writer, title string, counts accum.Accumulator, files, failed int, opts Options) {
	tbl := newTable(w)
	tbl.SetTitle(title)

	header := table.Row{opts.paint(color.FgCyan, "files"), opts.paint(color.FgCyan, "failed")}
	tbl.AppendHeader(append(header, versionHeader(opts)...))

	row := table.Row{humanize.Comma(int64(files)), failedCell(failed, opts)}
	tbl.AppendRow(append(row, countCells(counts)...))
	tbl.AppendFooter(table.Row{"total", "", humanize.Comma(int64(counts.Total()))})

	rightAlignCounts(tbl, 3)
	tbl.Render()
}

// History renders snapshots oldest first, one row per sampled commit.
func History(w io.Writer, snaps []snapshot.Snapshot, opts Options) {
	tbl := newTable(w)

	header := table.Row{
		opts.paint(color.FgCyan, "date"),
		opts.paint(color.FgCyan, "repository"),
		opts.paint(color.FgCyan, "commit"),
		opts.paint(color.FgCyan, "files"),
		opts.paint(color.FgCyan, "failed"),
	}
	tbl.AppendHeader(append(header, versionHeader(opts)...))

	for _, s := range snaps {
		row := table.Row{
			s.CommitTime.UTC().Format("2006-01-02"),
			s.Repository,
			s.ShortCommit(),
			humanize.Comma(int64(s.Files)),
			failedCell(s.FailedFiles, opts),
		}
		tbl.AppendRow(append(row, countCells(s.Counts)...))
	}

	tbl.AppendFooter(table.Row{"snapshots", strconv.Itoa(len(snaps))})
	rightAlignCounts(tbl, 6)
	tbl.Render()
}

// Rule is one line of the rule listing.
type Rule struct {
	ID, Version, Label string
	Kinds              []string
	Semantic           bool
}

// Rules renders the rule table.
func Rules(w io.Writer, rules []Rule, opts Options) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{
		opts.paint(color.FgCyan, "version"),
		opts.paint(color.FgCyan, "id"),
		opts.paint(color.FgCyan, "feature"),
		opts.paint(color.FgCyan, "node kinds"),
		opts.paint(color.FgCyan, "semantic"),
	})

	for _, r := range rules {
		semantic := ""
		if r.Semantic {
			semantic = "yes"
		}

		tbl.AppendRow(table.Row{r.Version, r.ID, r.Label, fmt.Sprint(r.Kinds), semantic})
	}

	tbl.AppendFooter(table.Row{"rules", strconv.Itoa(len(rules))})
	tbl.Render()
}

func failedCell(n int, opts Options) string {
	s := humanize.Comma(int64(n))
	if n > 0 {
		return opts.paint(color.FgYellow, s)
	}

	return s
}
