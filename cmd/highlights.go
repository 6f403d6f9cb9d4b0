package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/report"
)

var highlightsCmd = &cobra.Command{
	Use:   "highlights",
	Short: "Show the top kills, assists and damage cards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := compute(cmd.Context())
		if err != nil {
			return err
		}
		report.PrintHighlights(os.Stdout, res.Highlights)
		return nil
	},
}
