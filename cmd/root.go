package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "subsidy-etl",
	Short: "Agricultural subsidy ETL pipeline",
	Long:  "Stages subsidy spreadsheets (seeds, fertilizer, mechanization, plants) and loads them into the operational schema: persons, locations, organizations and benefits.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
