package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// Describe renders a snapshot as stable text, one fact per line.
func Describe(s snapshot.Snapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "repository: %s\n", s.Repository)
	fmt.Fprintf(&sb, "commit: %s\n", s.Commit)
	fmt.Fprintf(&sb, "date: %s\n", s.CommitTime.UTC().Format("2006-01-02"))
	fmt.Fprintf(&sb, "files: %d\n", s.Files)
	fmt.Fprintf(&sb, "failed_files: %d\n", s.FailedFiles)

	for _, e := range s.Counts.Entries() {
		fmt.Fprintf(&sb, "C# %s: %d\n", e.Tag, e.Count)
	}

	for _, f := range s.Failures {
		fmt.Fprintf(&sb, "failure: %s (%s)\n", f.Path, f.Kind)
	}

	return sb.String()
}

// Diff renders a line diff from a to b: unchanged lines are prefixed with
// two spaces, removed ones with "- " and added ones with "+ ".
func Diff(a, b snapshot.Snapshot, opts Options) string {
	dmp := diffmatchpatch.New()

	chars1, chars2, lines := dmp.DiffLinesToChars(Describe(a), Describe(b))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	var sb strings.Builder

	for _, d := range diffs {
		prefix, attr := "  ", color.Reset

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, attr = "+ ", color.FgGreen
		case diffmatchpatch.DiffDelete:
			prefix, attr = "- ", color.FgRed
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			if attr == color.Reset {
				sb.WriteString(prefix + line)
			} else {
				sb.WriteString(opts.paint(attr, prefix+strings.TrimSuffix(line, "\n")) + "\n")
			}
		}
	}

	return sb.String()
}

// Delta returns b's counts minus a's, keyed by version string.
func Delta(a, b snapshot.Snapshot) map[string]int {
	out := make(map[string]int)

	for _, e := range b.Counts.Entries() {
		out[e.Tag.String()] = e.Count - a.Counts.Get(e.Tag)
	}

	return out
}
