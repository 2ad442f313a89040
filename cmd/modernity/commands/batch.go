package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/modernity/internal/sampler"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// ErrNoRepositories is returned when a batch folder holds no git repository.
var ErrNoRepositories = errors.New("no git repositories found")

// ErrBatchFailed is returned when at least one repository of a batch failed.
var ErrBatchFailed = errors.New("batch incomplete")

// BatchCommand holds the flags of the batch command.
type BatchCommand struct {
	global *GlobalFlags
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(g *GlobalFlags) *cobra.Command {
	bc := &BatchCommand{global: g}

	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Sample every repository under a folder",
		Long: `Batch runs history on each immediate subdirectory of folder that is a git
working tree. Repositories are processed in parallel and each writes its
snapshots to its own subdirectory of the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: bc.run,
	}

	addScanFlags(cmd)
	addHistoryFlags(cmd)
	cmd.Flags().Int("parallel", 0, "Repositories sampled at once")

	return cmd
}

// FindRepositories returns the immediate subdirectories of dir holding a
// .git entry, sorted by name.
func FindRepositories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var repos []string

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		path := filepath.Join(dir, e.Name())

		if _, statErr := os.Stat(filepath.Join(path, ".git")); statErr == nil {
			repos = append(repos, path)
		}
	}

	slices.Sort(repos)

	return repos, nil
}

func (bc *BatchCommand) run(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args[0], err)
	}

	a, err := newApp(cmd, bc.global, observability.ModeBatch)
	if err != nil {
		return err
	}
	defer a.close()

	repos, err := FindRepositories(root)
	if err != nil {
		return err
	}

	if len(repos) == 0 {
		return fmt.Errorf("%w under %s", ErrNoRepositories, root)
	}

	a.logger.Info("batch started", "repositories", len(repos), "parallel", a.cfg.Batch.Parallel)

	var (
		mu        sync.Mutex
		summaries = make([]sampler.Summary, len(repos))
		failed    []error
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	if a.cfg.Batch.Parallel > 0 {
		g.SetLimit(a.cfg.Batch.Parallel)
	}

	for i, repo := range repos {
		g.Go(func() error {
			outDir := filepath.Join(a.cfg.Output.Dir, snapshot.SafeName(filepath.Base(repo)))

			summary, runErr := a.sampleRepository(ctx, repo, outDir)

			mu.Lock()
			defer mu.Unlock()

			summaries[i] = summary

			if runErr != nil {
				a.logger.Error("repository failed", "repo", filepath.Base(repo), "error", runErr)
				failed = append(failed, fmt.Errorf("%s: %w", filepath.Base(repo), runErr))
			}

			// One repository failing never cancels the others.
			return nil
		})
	}

	_ = g.Wait()

	w := cmd.OutOrStdout()
	for _, s := range summaries {
		printSummary(w, s, a)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d repositories: %w", ErrBatchFailed, len(failed), len(repos), errors.Join(failed...))
	}

	return cmd.Context().Err()
}
