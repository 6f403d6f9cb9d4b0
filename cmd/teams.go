package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/report"
	"github.com/pable/squad-standings/internal/roster"
)

var teamsSearch string

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List registered teams and players",
	Args:  cobra.NoArgs,
	RunE:  runTeams,
}

func init() {
	teamsCmd.Flags().StringVar(&teamsSearch, "search", "", "only teams whose name or a player's name contains this text")
}

func runTeams(cmd *cobra.Command, args []string) error {
	idx, err := roster.Load(cfg.RosterPath)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	report.PrintTeams(os.Stdout, idx.Filter(teamsSearch))
	return nil
}
