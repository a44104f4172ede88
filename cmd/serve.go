package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/etl-productivo/subsidy-etl/internal/opsapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only ops HTTP server",
	Long:  "Serves health, run history, staging counts and rejected rows as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		pool, err := openPool(ctx, "serve")
		if err != nil {
			return err
		}
		defer pool.Close()

		router := opsapi.NewRouter(opsapi.NewPGStore(pool), cfg.Server.AllowedOrigins)
		return opsapi.Serve(ctx, cfg.Server.Port, router)
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP listen port")
	rootCmd.AddCommand(serveCmd)
}
