package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/opgg"
	"github.com/pable/squad-standings/internal/roster"
)

var kdDryRun bool

var kdCmd = &cobra.Command{
	Use:   "kd",
	Short: "Refresh player K/D values from op.gg",
	Long: `Looks up every roster player's recent K/D on op.gg, one request per
configured interval, and writes the values back into the roster file.
Wildcard and blank slots are skipped; failed lookups keep the old value.`,
	Args: cobra.NoArgs,
	RunE: runKD,
}

func init() {
	kdCmd.Flags().BoolVar(&kdDryRun, "dry-run", false, "look up values without saving the roster")
}

func runKD(cmd *cobra.Command, args []string) error {
	idx, err := roster.Load(cfg.RosterPath)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	client := opgg.New(cfg.OPGG.BaseURL, cfg.OPGG.Interval, cfg.FetchTimeout)
	sum, err := client.Refresh(cmd.Context(), idx, logging.Default())
	if err != nil {
		return fmt.Errorf("refresh k/d: %w", err)
	}

	fmt.Fprintf(os.Stdout, "K/D updated for %d player(s), %d skipped, %d failed.\n", sum.Updated, sum.Skipped, sum.Failed)
	if kdDryRun || sum.Updated == 0 {
		return nil
	}
	if err := idx.Save(cfg.RosterPath); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Saved %s\n", cfg.RosterPath)
	return nil
}
