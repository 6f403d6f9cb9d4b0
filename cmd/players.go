package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/report"
	"github.com/pable/squad-standings/internal/standings"
)

var (
	playersSort  string
	playersOrder string
	playersTop   int
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Show the player leaderboard",
	Long: `Prints every player who appeared in a played match. The default order is
kills, then assists, then damage, then name.`,
	Args: cobra.NoArgs,
	RunE: runPlayers,
}

func init() {
	playersCmd.Flags().StringVar(&playersSort, "sort", "", "column: rank|player|team|kills|assists|damage|survival|headshots|best_place")
	playersCmd.Flags().StringVar(&playersOrder, "order", "", "asc|desc (default depends on column)")
	playersCmd.Flags().IntVar(&playersTop, "top", 0, "show only the first N rows (0 = all)")
}

func runPlayers(cmd *cobra.Command, args []string) error {
	col, err := standings.ParsePlayerColumn(playersSort)
	if err != nil {
		return err
	}
	desc, err := parseOrder(playersOrder, col.DefaultDesc())
	if err != nil {
		return err
	}

	res, err := compute(cmd.Context())
	if err != nil {
		return err
	}

	rows := standings.SortPlayers(res.Players, col, desc)
	if playersTop > 0 && playersTop < len(rows) {
		rows = rows[:playersTop]
	}
	report.PrintPlayers(os.Stdout, rows)
	return nil
}
