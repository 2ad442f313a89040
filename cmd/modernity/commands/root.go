// Package commands implements the modernity cobra commands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modernity/pkg/version"
)

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	g := &GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "modernity",
		Short: "Measure C# language feature adoption across git history",
		Long: `Modernity classifies C# sources by the language version that introduced
each syntactic feature they use, and samples a repository's history to show
how adoption of newer C# versions evolves.

Commands:
  scan      Classify one working tree
  history   Sample one repository's history into snapshots
  batch     Sample every repository under a folder
  report    Tabulate stored snapshots
  plot      Render an HTML adoption chart
  diff      Compare two snapshots
  rules     List the feature rules`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.ConfigPath, "config", "", "Config file (default: .modernity.yaml in CWD or $HOME)")
	pf.BoolVarP(&g.Verbose, "verbose", "v", false, "Verbose output")
	pf.BoolVarP(&g.Quiet, "quiet", "q", false, "Only log warnings and errors")
	pf.BoolVar(&g.NoColor, "no-color", false, "Disable colored output")
	pf.Bool("log-json", false, "Log in JSON")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. ':9464')")
	pf.String("otlp-endpoint", "", "OTLP gRPC collector address")

	rootCmd.AddCommand(
		NewScanCommand(g),
		NewHistoryCommand(g),
		NewBatchCommand(g),
		NewReportCommand(g),
		NewPlotCommand(g),
		NewDiffCommand(g),
		NewRulesCommand(g),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "modernity %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
