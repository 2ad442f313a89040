package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modernity/internal/report"
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// DiffCommand holds the flags of the diff command.
type DiffCommand struct {
	global *GlobalFlags
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(g *GlobalFlags) *cobra.Command {
	dc := &DiffCommand{global: g}

	return &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two snapshots",
		Long: `Diff prints a line diff of two snapshot files followed by the change in
count of every language version that moved.`,
		Args: cobra.ExactArgs(2),
		RunE: dc.run,
	}
}

func (dc *DiffCommand) run(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, dc.global, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer a.close()

	older, err := snapshot.Load(args[0])
	if err != nil {
		return err
	}

	newer, err := snapshot.Load(args[1])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	opts := a.reportOptions()

	fmt.Fprint(w, report.Diff(older, newer, opts))

	delta := report.Delta(older, newer)

	keys := make([]langver.Tag, 0, len(delta))
	for k, d := range delta {
		if d != 0 {
			keys = append(keys, langver.MustParse(k))
		}
	}

	slices.SortFunc(keys, langver.Tag.Compare)

	if len(keys) == 0 {
		fmt.Fprintln(w, "no version changed")

		return nil
	}

	fmt.Fprintln(w)

	for _, k := range keys {
		fmt.Fprintf(w, "C# %-5s %+d\n", k, delta[k.String()])
	}

	return nil
}
