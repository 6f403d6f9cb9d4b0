package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/config"
	"github.com/pable/squad-standings/internal/engine"
	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/metrics"
	"github.com/pable/squad-standings/internal/source"
	"github.com/pable/squad-standings/internal/storage"
)

var (
	cfgPath  string
	logLevel string

	// cfg is loaded once per invocation by the root pre-run hook.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "standings",
	Short: "Squad battle-royale tournament standings",
	Long: `Compute team standings, per-match tables and player leaderboards for a
squad battle-royale tournament from a roster file and per-match result sheets.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Default().Sync()
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides config)")

	rootCmd.AddCommand(standingsCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(highlightsCmd)
	rootCmd.AddCommand(teamsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(kdCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logging.SetDefault(logging.NewJSON(level))
	cfg = c
	return nil
}

// openEngine builds an engine from cfg. The returned close func releases the
// archive when the archive source is selected.
func openEngine(ctx context.Context, m *metrics.Metrics) (*engine.Engine, func(), error) {
	var (
		archive *storage.DB
		closeFn = func() {}
	)
	if cfg.Source.Kind == config.SourceArchive {
		db, err := storage.Open(cfg.ArchivePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open archive: %w", err)
		}
		archive = db
		closeFn = func() { db.Close() }
	}

	src, err := source.Open(ctx, cfg, archive)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("open source: %w", err)
	}
	logging.Default().Debug("match source ready", "source", src.String())

	eng := engine.New(
		engine.RosterFile(cfg.RosterPath),
		cfg.Schedule.ModelRounds(),
		src,
		engine.Options{
			Workers:      cfg.FetchWorkers,
			FetchTimeout: cfg.FetchTimeout,
			Logger:       logging.Default(),
			Metrics:      m,
		},
	)
	return eng, closeFn, nil
}

// compute runs one standings computation with the configured source.
func compute(ctx context.Context) (*engine.Result, error) {
	eng, closeFn, err := openEngine(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	res, err := eng.Compute(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute standings: %w", err)
	}
	return res, nil
}
