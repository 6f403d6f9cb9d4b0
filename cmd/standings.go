package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/report"
	"github.com/pable/squad-standings/internal/standings"
)

var (
	standingsSort   string
	standingsOrder  string
	standingsStatus bool
)

var standingsCmd = &cobra.Command{
	Use:   "standings",
	Short: "Show overall team standings",
	Long: `Fetches every scheduled match, folds the results and prints the team
table ranked by points, then kills. Matches without data count as not yet
played.`,
	Args: cobra.NoArgs,
	RunE: runStandings,
}

func init() {
	standingsCmd.Flags().StringVar(&standingsSort, "sort", "", "column: rank|team|kills|points|matches")
	standingsCmd.Flags().StringVar(&standingsOrder, "order", "", "asc|desc (default depends on column)")
	standingsCmd.Flags().BoolVar(&standingsStatus, "status", false, "also list every scheduled match and its status")
}

func runStandings(cmd *cobra.Command, args []string) error {
	col, err := standings.ParseTeamColumn(standingsSort)
	if err != nil {
		return err
	}
	desc, err := parseOrder(standingsOrder, col.DefaultDesc())
	if err != nil {
		return err
	}

	res, err := compute(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\nMatches played: %d/%d\n\n", res.Played(), len(res.Matches))
	report.PrintStandings(os.Stdout, standings.SortTeams(res.Teams, col, desc))
	if standingsStatus {
		fmt.Fprintln(os.Stdout)
		report.PrintMatchStatus(os.Stdout, res.Matches)
	}
	return nil
}

func parseOrder(s string, def bool) (bool, error) {
	switch s {
	case "":
		return def, nil
	case "desc":
		return true, nil
	case "asc":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --order %q: want asc or desc", s)
	}
}
