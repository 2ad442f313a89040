package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/modernity/internal/report"
	"github.com/Sumatoshi-tech/modernity/internal/scanner"
	"github.com/Sumatoshi-tech/modernity/pkg/gitlib"
	"github.com/Sumatoshi-tech/modernity/pkg/observability"
	"github.com/Sumatoshi-tech/modernity/pkg/snapshot"
)

// ErrUnknownOutput is returned for an unsupported --out value.
var ErrUnknownOutput = errors.New("unknown output, want table, yaml or json")

// ScanCommand holds the flags of the scan command.
type ScanCommand struct {
	global *GlobalFlags
	out    string
	write  bool
}

// NewScanCommand creates the scan command.
func NewScanCommand(g *GlobalFlags) *cobra.Command {
	sc := &ScanCommand{global: g}

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Classify the C# sources of one working tree",
		Long: `Scan counts, per C# language version, the syntactic features used by the
sources under dir (default "."). With --write the census is also stored as
a snapshot of the repository's HEAD commit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: sc.run,
	}

	addScanFlags(cmd)
	cmd.Flags().StringVar(&sc.out, "out", "table", "Output: table, yaml or json")
	cmd.Flags().BoolVar(&sc.write, "write", false, "Store a snapshot of HEAD in the output directory")
	cmd.Flags().String("output", "", "Snapshot directory (with --write)")
	cmd.Flags().String("format", "", "Snapshot format: yaml or json")
	cmd.Flags().Bool("compress", false, "LZ4-compress snapshots")

	return cmd
}

func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("workers", 0, "Parallel file workers (0 = CPU count)")
	f.Duration("file-timeout", 0, "Per-file parse and walk timeout")
	f.String("max-file-size", "", "Skip files larger than this (e.g. '2MiB')")
	f.StringSlice("exclude", nil, "Glob patterns of paths to skip")
	f.Bool("solution-only", false, "Only scan projects listed in top-level .sln files")
	f.Bool("allow-partial", false, "Count files with syntax errors, skipping the broken parts")
	f.StringSlice("disable", nil, "Rule ids to disable")
	f.Bool("semantics", true, "Enable rules that need the per-file semantic model")
}

// scanOutput is the machine-readable scan result.
type scanOutput struct {
	Root        string             `json:"root"               yaml:"root"`
	Files       int                `json:"files"              yaml:"files"`
	FailedFiles int                `json:"failed_files"       yaml:"failed_files"`
	Counts      map[string]int     `json:"counts"             yaml:"counts"`
	Failures    []snapshot.Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Snapshot    string             `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

func (sc *ScanCommand) run(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}

	a, err := newApp(cmd, sc.global, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer a.close()

	table, err := a.table()
	if err != nil {
		return err
	}

	s, err := a.scanner(table)
	if err != nil {
		return err
	}

	res, err := s.ScanDir(cmd.Context(), a.resolver(), root)
	if err != nil {
		return err
	}

	out := scanOutput{
		Root:        root,
		Files:       res.Files,
		FailedFiles: len(res.Failures),
		Counts:      res.Counts.AsMap(),
		Failures:    res.Records(root),
	}

	if sc.write {
		out.Snapshot, err = sc.writeSnapshot(cmd, a, root, res)
		if err != nil {
			return err
		}
	}

	return sc.render(cmd.OutOrStdout(), a, out, res)
}

func (sc *ScanCommand) writeSnapshot(cmd *cobra.Command, a *app, root string, res scanner.Result) (string, error) {
	repo, err := gitlib.LoadRepository(root)
	if err != nil {
		return "", err
	}
	defer repo.Free()

	head, err := repo.Head()
	if err != nil {
		return "", err
	}

	commit, err := repo.LookupCommit(cmd.Context(), head)
	if err != nil {
		return "", err
	}
	defer commit.Free()

	store, err := a.store(a.cfg.Output.Dir)
	if err != nil {
		return "", err
	}

	ref := commit.Ref()

	path, err := store.Write(cmd.Context(), snapshot.Snapshot{
		Repository:  repo.Name(),
		Commit:      ref.Hash,
		CommitTime:  ref.When,
		Counts:      res.Counts,
		Files:       res.Files,
		FailedFiles: len(res.Failures),
		Failures:    res.Records(root),
	})
	if err != nil {
		return "", err
	}

	a.logger.Info("snapshot written", "path", path)

	return path, nil
}

func (sc *ScanCommand) render(w io.Writer, a *app, out scanOutput, res scanner.Result) error {
	switch sc.out {
	case "table":
		report.Counts(w, out.Root, res.Counts, out.Files, out.FailedFiles, a.reportOptions())

		for _, f := range out.Failures {
			fmt.Fprintf(w, "%s: %s %s\n", f.Kind, f.Path, f.Detail)
		}

		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, sc.out)
	}
}
