package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modernity/internal/report"
	"github.com/Sumatoshi-tech/modernity/pkg/features"
	"github.com/Sumatoshi-tech/modernity/pkg/langver"
)

// RulesCommand holds the flags of the rules command.
type RulesCommand struct {
	global  *GlobalFlags
	version string
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(g *GlobalFlags) *cobra.Command {
	rc := &RulesCommand{global: g}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the feature rules",
		Args:  cobra.NoArgs,
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.version, "version", "", "Only list rules of this C# version (e.g. 9.0)")

	return cmd
}

func (rc *RulesCommand) run(cmd *cobra.Command, _ []string) error {
	var (
		want   langver.Tag
		filter bool
	)

	if rc.version != "" {
		tag, err := langver.Parse(rc.version)
		if err != nil {
			return fmt.Errorf("--version: %w", err)
		}

		want, filter = tag, true
	}

	table, err := features.DefaultTable()
	if err != nil {
		return err
	}

	var rows []report.Rule

	for _, r := range table.Rules() {
		if filter && r.Tag != want {
			continue
		}

		rows = append(rows, report.Rule{
			ID:       r.ID,
			Version:  r.Tag.String(),
			Label:    r.Label,
			Kinds:    r.Kinds,
			Semantic: r.NeedsSemantics,
		})
	}

	report.Rules(cmd.OutOrStdout(), rows, report.Options{Color: !rc.global.NoColor && !noColor()})

	return nil
}
