package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/etl-productivo/subsidy-etl/internal/etl/enrich"
	"github.com/etl-productivo/subsidy-etl/internal/etl/pipeline"
	"github.com/etl-productivo/subsidy-etl/internal/etl/runlog"
	"github.com/etl-productivo/subsidy-etl/internal/etl/validate"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Transform pending staging rows into the operational schema",
	Long: `Reads pending staging rows in keyset batches, cleans, standardizes, validates,
enriches and normalizes them, upserts persons, locations, organizations and benefits,
and marks the rows processed. Each batch commits independently.

With --all every subsidy type runs as an independent run, up to
pipeline.max_parallel at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		all, _ := cmd.Flags().GetBool("all")
		typeName, _ := cmd.Flags().GetString("type")
		if all == (typeName != "") {
			return eris.New("process: specify exactly one of --type or --all")
		}
		if cmd.Flags().Changed("validator") {
			cfg.Pipeline.Validator, _ = cmd.Flags().GetString("validator")
		}
		if cmd.Flags().Changed("batch-size") {
			cfg.Pipeline.BatchSize, _ = cmd.Flags().GetInt("batch-size")
		}

		policy, err := validate.Named(cfg.Pipeline.Validator, cfg.Pipeline.HectaresTolerance, cfg.Pipeline.AmountTolerance)
		if err != nil {
			return err
		}
		catalog := enrich.DefaultCatalog()
		if cfg.Pipeline.CatalogPath != "" {
			catalog, err = enrich.LoadCatalog(cfg.Pipeline.CatalogPath)
			if err != nil {
				return err
			}
		}

		types := model.AllSubsidyTypes()
		if !all {
			t, err := model.ParseSubsidyType(typeName)
			if err != nil {
				return err
			}
			types = []model.SubsidyType{t}
		}

		pool, err := openPool(ctx, "process")
		if err != nil {
			return err
		}
		defer pool.Close()

		engine := pipeline.NewEngine(pool, runlog.New(pool))
		opts := pipeline.Options{
			Policy:    policy,
			BatchSize: cfg.Pipeline.BatchSize,
			Catalog:   catalog,
		}

		var stats []*pipeline.RunStats
		if all {
			stats, err = engine.RunAll(ctx, opts, types, cfg.Pipeline.MaxParallel)
		} else {
			opts.Subsidy = types[0]
			var s *pipeline.RunStats
			s, err = engine.Run(ctx, opts)
			stats = []*pipeline.RunStats{s}
		}

		formatRunStats(os.Stdout, stats)
		if err != nil {
			return eris.Wrap(err, "process")
		}
		return nil
	},
}

func init() {
	processCmd.Flags().String("type", "", "subsidy type: seeds, fertilizer, mechanization or plants")
	processCmd.Flags().Bool("all", false, "process every subsidy type")
	processCmd.Flags().String("validator", "flexible", "validation policy: strict or flexible")
	processCmd.Flags().Int("batch-size", 1000, "staging rows per batch transaction")
	rootCmd.AddCommand(processCmd)
}

// formatRunStats writes one summary line per run. Nil entries are runs
// that failed before starting.
func formatRunStats(out io.Writer, stats []*pipeline.RunStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tPOLICY\tBATCHES\tROWS\tVALID\tINVALID\tPERSONS\tBENEFITS\tSKIPPED\tLOAD ERRORS\tELAPSED")
	_, _ = fmt.Fprintln(w, "----\t------\t-------\t----\t-----\t-------\t-------\t--------\t-------\t-----------\t-------")

	for _, s := range stats {
		if s == nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			s.Subsidy,
			s.Policy,
			s.Batches,
			s.RowsRead,
			s.Valid,
			s.Invalid,
			s.Load.PersonsInserted,
			s.Load.BenefitsInserted,
			s.Load.BenefitsSkipped,
			s.Load.Errors(),
			s.Elapsed.Round(time.Millisecond),
		)
	}
	_ = w.Flush()
}
