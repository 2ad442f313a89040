package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modernity/internal/report"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// ReportCommand holds the flags of the report command.
type ReportCommand struct {
	global *GlobalFlags
	repo   string
}

// NewReportCommand creates the report command.
func NewReportCommand(g *GlobalFlags) *cobra.Command {
	rc := &ReportCommand{global: g}

	cmd := &cobra.Command{
		Use:   "report [dir]",
		Short: "Tabulate stored snapshots",
		Long: `Report loads the snapshots in dir (default: the output directory) and in
its immediate subdirectories, and prints one row per sampled commit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVar(&rc.repo, "repo", "", "Only show snapshots of this repository")
	cmd.Flags().String("output", "", "Snapshot directory")

	return cmd
}

func (rc *ReportCommand) run(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, rc.global, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer a.close()

	snaps, err := a.loadSnapshots(snapshotDir(a, args), rc.repo)
	if err != nil {
		return err
	}

	report.History(cmd.OutOrStdout(), snaps, a.reportOptions())

	return nil
}

func snapshotDir(a *app, args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return a.cfg.Output.Dir
}

// loadSnapshots reads dir and its immediate subdirectories. Unreadable
// snapshot files are logged and skipped. A non-empty repo keeps only that
// repository's snapshots.
func (a *app) loadSnapshots(dir, repo string) ([]snapshot.Snapshot, error) {
	if !isDir(dir) {
		return nil, fmt.Errorf("%w: %s", os.ErrNotExist, dir)
	}

	dirs := []string{dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}

	var out []snapshot.Snapshot

	for _, d := range dirs {
		snaps, loadErr := snapshot.LoadDir(d)
		if loadErr != nil {
			a.logger.Warn("snapshots skipped", "dir", d, "error", loadErr)
		}

		for _, s := range snaps {
			if repo == "" || s.Repository == repo {
				out = append(out, s)
			}
		}
	}

	slices.SortStableFunc(out, func(x, y snapshot.Snapshot) int {
		return x.CommitTime.Compare(y.CommitTime)
	})

	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", report.ErrNoSnapshots, dir)
	}

	return out, nil
}
