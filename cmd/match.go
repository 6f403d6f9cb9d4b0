package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/engine"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/report"
)

var matchCmd = &cobra.Command{
	Use:   "match [round index]",
	Short: "Show the table of one match",
	Long: `Prints the per-match table (points, then kills) for one scheduled match.
Without arguments the latest match that has data is shown.

Examples:
  standings match
  standings match DIA1 2`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("want no arguments or <round> <index>, got %d", len(args))
		}
		return nil
	},
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closeFn, err := openEngine(ctx, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	var view *engine.MatchView
	if len(args) == 0 {
		view, err = eng.LatestPlayed(ctx)
	} else {
		index, convErr := strconv.Atoi(args[1])
		if convErr != nil || index < 1 {
			return fmt.Errorf("invalid match index %q", args[1])
		}
		view, err = eng.Match(ctx, model.MatchKey{Round: args[0], Index: index})
	}
	if err != nil {
		return fmt.Errorf("match table: %w", err)
	}

	report.PrintMatch(os.Stdout, view.Match, view.Of, view.Status, view.Table)
	return nil
}
