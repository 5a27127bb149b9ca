package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/johnharveymath/oxcovid19db/internal/logger"
	"github.com/johnharveymath/oxcovid19db/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the merge API over HTTP",
	Long: `Serve exposes:
  POST /v1/merge   {"left": table, "right": table, "how": "inner"}  (?format=json|csv|xlsx|md)
  GET  /v1/rules   aggregation rules
  GET  /healthz
  GET  /metrics    Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("listen") {
			addr = serveListen
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		rc, err := ruleCache(st)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.New(rc, logger.L()).ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides listen_addr)")
}
