package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modernity/internal/sampler"
	"github.com/Sumatoshi-tech/modernity/pkg/gitlib"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
)

// HistoryCommand holds the flags of the history command.
type HistoryCommand struct {
	global *GlobalFlags
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(g *GlobalFlags) *cobra.Command {
	hc := &HistoryCommand{global: g}

	cmd := &cobra.Command{
		Use:   "history [repo]",
		Short: "Sample one repository's history into snapshots",
		Long: `History lists the commits of repo (default ".") oldest first, checks out
every stride-th one, scans it and writes a snapshot to the output directory.
The working tree is put back on its original branch or commit afterwards.

A commit that cannot be checked out, resolved, scanned or persisted is
skipped and reported; it never stops the walk.`,
		Args: cobra.MaximumNArgs(1),
		RunE: hc.run,
	}

	addScanFlags(cmd)
	addHistoryFlags(cmd)

	return cmd
}

func addHistoryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("stride", 0, "Sample every Nth commit, counted from the oldest")
	f.Duration("commit-timeout", 0, "Bound on checkout, scan and persistence of one commit")
	f.Bool("include-head", false, "Also sample the newest commit when the stride misses it")
	f.Bool("first-parent", false, "Follow only the first parent of merge commits")
	f.String("since", "", "Ignore commits before this time (RFC3339, date or duration)")
	f.Int("limit", 0, "Only consider the newest N commits (0 = all)")
	f.Bool("resume", true, "Skip commits that already have a snapshot")
	f.String("output", "", "Snapshot directory")
	f.String("format", "", "Snapshot format: yaml or json")
	f.Bool("compress", false, "LZ4-compress snapshots")
}

func (hc *HistoryCommand) run(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	a, err := newApp(cmd, hc.global, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.sampleRepository(cmd.Context(), path, a.cfg.Output.Dir)

	printSummary(cmd.OutOrStdout(), summary, a)

	return err
}

// sampleRepository runs the sampler over the repository at path, writing
// snapshots into outDir.
func (a *app) sampleRepository(ctx context.Context, path, outDir string) (sampler.Summary, error) {
	hist, err := gitlib.OpenHistory(path, gitlib.HistoryOptions{
		FirstParent: a.cfg.History.FirstParent,
		Since:       a.cfg.History.Since,
		Limit:       a.cfg.History.Limit,
	})
	if err != nil {
		return sampler.Summary{Repository: filepath.Base(path)}, err
	}
	defer hist.Close()

	table, err := a.table()
	if err != nil {
		return sampler.Summary{Repository: hist.Name()}, err
	}

	sc, err := a.scanner(table)
	if err != nil {
		return sampler.Summary{Repository: hist.Name()}, err
	}

	store, err := a.store(outDir)
	if err != nil {
		return sampler.Summary{Repository: hist.Name()}, err
	}

	s, err := sampler.New(sampler.Config{
		Stride:        a.cfg.History.Stride,
		IncludeHead:   a.cfg.History.IncludeHead,
		Resume:        a.cfg.History.Resume,
		CommitTimeout: a.cfg.History.CommitTimeout,
	}, a.resolver(), sc, store,
		sampler.WithLogger(a.logger),
		sampler.WithTracer(a.providers.Tracer),
		sampler.WithMetrics(a.metrics),
	)
	if err != nil {
		return sampler.Summary{Repository: hist.Name()}, err
	}

	return s.Run(ctx, hist)
}

func printSummary(w io.Writer, s sampler.Summary, a *app) {
	fmt.Fprintf(w, "%s: %s commits, %s sampled, %s written, %s existing, %s skipped\n",
		s.Repository,
		humanize.Comma(int64(s.Commits)),
		humanize.Comma(int64(s.Sampled)),
		humanize.Comma(int64(s.Written)),
		humanize.Comma(int64(s.Existing)),
		humanize.Comma(int64(s.Skipped)),
	)

	for _, f := range s.Failures {
		fmt.Fprintf(w, "  %s\n", a.reportOptions().Warn(f.Error()))
	}
}
