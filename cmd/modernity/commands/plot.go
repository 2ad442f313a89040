package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modernity/internal/report"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
)

// PlotCommand holds the flags of the plot command.
type PlotCommand struct {
	global    *GlobalFlags
	repo      string
	out       string
	title     string
	normalize bool
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(g *GlobalFlags) *cobra.Command {
	pc := &PlotCommand{global: g}

	cmd := &cobra.Command{
		Use:   "plot [dir]",
		Short: "Render an HTML chart of version adoption over time",
		Args:  cobra.MaximumNArgs(1),
		RunE:  pc.run,
	}

	f := cmd.Flags()
	f.StringVar(&pc.repo, "repo", "", "Only plot snapshots of this repository")
	f.StringVarP(&pc.out, "file", "f", "", "Write the chart to this file instead of stdout")
	f.StringVar(&pc.title, "title", "", "Chart title (default: the repository name)")
	f.BoolVar(&pc.normalize, "normalize", false, "Scale each version's series to its own maximum")
	f.String("output", "", "Snapshot directory")

	return cmd
}

func (pc *PlotCommand) run(cmd *cobra.Command, args []string) (err error) {
	a, err := newApp(cmd, pc.global, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer a.close()

	snaps, err := a.loadSnapshots(snapshotDir(a, args), pc.repo)
	if err != nil {
		return err
	}

	title := pc.title
	if title == "" {
		title = pc.repo
	}

	if title == "" {
		title = snaps[0].Repository
	}

	var w io.Writer = cmd.OutOrStdout()

	if pc.out != "" {
		f, createErr := os.Create(pc.out)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", pc.out, createErr)
		}

		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		w = f
	}

	if err := report.Plot(w, snaps, report.PlotOptions{Title: title, Normalize: pc.normalize}); err != nil {
		return err
	}

	if pc.out != "" {
		a.logger.Info("chart written", "path", pc.out, "snapshots", len(snaps))
	}

	return nil
}
