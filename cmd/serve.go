package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pable/squad-standings/internal/logging"
	"github.com/pable/squad-standings/internal/metrics"
	"github.com/pable/squad-standings/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve standings as JSON over HTTP",
	Long: `Starts the HTTP API. Each request recomputes the standings from the
configured source, so new match files show up without a restart.

Endpoints:
  GET /standings?sort=&order=
  GET /players?sort=&order=
  GET /highlights
  GET /matches/latest
  GET /matches/{round}/{index}
  GET /teams?search=
  GET /metrics
  GET /healthz`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	m := metrics.New()
	eng, closeFn, err := openEngine(cmd.Context(), m)
	if err != nil {
		return err
	}
	defer closeFn()

	return server.New(eng, m, logging.Default()).Run(cmd.Context(), addr)
}
