package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/config"
	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/parser"
	"github.com/pable/squad-standings/internal/source"
	"github.com/pable/squad-standings/internal/storage"
)

var (
	archiveFromSource bool
	archiveDropForce  bool
)

// archiveCmd groups the match archive commands. The archive is a SQLite file
// holding raw match sheets so a finished tournament can be recomputed after
// the original files move.
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the local match archive",
}

var archiveImportCmd = &cobra.Command{
	Use:   "import [<round> <index> <file>]",
	Short: "Store match sheets in the archive",
	Long: `Stores one match sheet under a schedule key, or with --from-source copies
every scheduled match available from the configured source.

Examples:
  standings archive import DIA1 2 ./csv/DIA1/jogo2.csv
  standings archive import --from-source`,
	RunE: runArchiveImport,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived match sheets",
	Args:  cobra.NoArgs,
	RunE:  runArchiveList,
}

var archiveDropCmd = &cobra.Command{
	Use:   "drop <round> [index]",
	Short: "Remove archived match sheets",
	Long:  "Removes one archived match, or every match of a round when no index is given.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runArchiveDrop,
}

func init() {
	archiveImportCmd.Flags().BoolVar(&archiveFromSource, "from-source", false, "copy every available scheduled match from the configured source")
	archiveDropCmd.Flags().BoolVarP(&archiveDropForce, "force", "f", false, "skip confirmation prompt")

	archiveCmd.AddCommand(archiveImportCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveDropCmd)
}

func openArchive() (*storage.DB, error) {
	if dir := filepath.Dir(cfg.ArchivePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return db, nil
}

func runArchiveImport(cmd *cobra.Command, args []string) error {
	switch {
	case archiveFromSource && len(args) != 0:
		return errors.New("--from-source takes no arguments")
	case !archiveFromSource && len(args) != 3:
		return errors.New("want <round> <index> <file>, or --from-source")
	}

	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	if archiveFromSource {
		return importFromSource(cmd, db)
	}

	index, err := strconv.Atoi(args[1])
	if err != nil || index < 1 {
		return fmt.Errorf("invalid match index %q", args[1])
	}
	key := model.MatchKey{Round: args[0], Index: index}
	data, err := os.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[2], err)
	}
	if _, ok, err := parser.ParseFile(args[2], data); err != nil {
		return fmt.Errorf("check %s: %w", args[2], err)
	} else if !ok {
		fmt.Fprintf(os.Stderr, "warning: %s has no player rows; it will count as not yet played\n", args[2])
	}

	changed, err := db.PutMatchFile(cmd.Context(), key, filepath.Base(args[2]), data)
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	if !changed {
		fmt.Fprintf(os.Stdout, "%s already archived with identical contents.\n", key)
		return nil
	}
	fmt.Fprintf(os.Stdout, "Archived %s as %s\n", args[2], key)
	return nil
}

func importFromSource(cmd *cobra.Command, db *storage.DB) error {
	if cfg.Source.Kind == config.SourceArchive {
		return errors.New("--from-source needs a source other than the archive")
	}
	ctx := cmd.Context()
	src, err := source.Open(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	log := logging.Default()
	var stored, unchanged, missing int
	for _, r := range cfg.Schedule.ModelRounds() {
		for _, m := range r.Matches {
			f, err := src.Fetch(ctx, m.Key)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Info("match not available", "match", m.Key.String(), "error", err)
				missing++
				continue
			}
			changed, err := db.PutMatchFile(ctx, m.Key, filepath.Base(f.Name), f.Data)
			if err != nil {
				return fmt.Errorf("archive %s: %w", m.Key, err)
			}
			if changed {
				stored++
			} else {
				unchanged++
			}
		}
	}
	fmt.Fprintf(os.Stdout, "Archived %d match(es) from %s (%d unchanged, %d unavailable).\n",
		stored, src, unchanged, missing)
	return nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := db.ListMatchFiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("list archive: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stdout, "Archive is empty. Run 'standings archive import' to add match sheets.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-24s  %8s  %-14s  %s\n", "MATCH", "FILE", "BYTES", "SHA256", "IMPORTED")
	fmt.Fprintf(os.Stdout, "%-10s  %-24s  %8s  %-14s  %s\n",
		"──────────", "────────────────────────", "────────", "──────────────", "────────────────────")
	for _, f := range files {
		fmt.Fprintf(os.Stdout, "%-10s  %-24s  %8d  %-14s  %s\n",
			f.Key, f.Name, f.Size, f.SHA256[:12], f.ImportedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runArchiveDrop(cmd *cobra.Command, args []string) error {
	target := args[0]
	var key model.MatchKey
	if len(args) == 2 {
		index, err := strconv.Atoi(args[1])
		if err != nil || index < 1 {
			return fmt.Errorf("invalid match index %q", args[1])
		}
		key = model.MatchKey{Round: args[0], Index: index}
		target = key.String()
	}
	if !archiveDropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete archived match data for %s from %s\n", target, cfg.ArchivePath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}

	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 2 {
		ok, err := db.DeleteMatchFile(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("drop %s: %w", key, err)
		}
		if !ok {
			fmt.Fprintf(os.Stdout, "%s is not archived, nothing to drop.\n", key)
			return nil
		}
		fmt.Fprintf(os.Stdout, "Dropped %s\n", key)
		return nil
	}

	n, err := db.DeleteRound(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("drop round %s: %w", args[0], err)
	}
	fmt.Fprintf(os.Stdout, "Dropped %d match(es) of %s\n", n, args[0])
	return nil
}
