package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/etl/source"
	"github.com/etl-productivo/subsidy-etl/internal/etl/staging"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Load a subsidy spreadsheet into its staging table",
	Long:  "Reads an .xlsx or .csv export, maps its headers to staging columns and copies the rows into staging.<type>.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		typeName, _ := cmd.Flags().GetString("type")
		path, _ := cmd.Flags().GetString("file")
		subsidy, err := model.ParseSubsidyType(typeName)
		if err != nil {
			return err
		}
		layout, ok := source.LayoutFor(subsidy)
		if !ok {
			return eris.Errorf("stage: no layout for %s", subsidy)
		}
		if _, err := os.Stat(path); err != nil {
			return eris.Wrap(err, "stage: input file")
		}

		if cmd.Flags().Changed("batch-size") {
			cfg.Staging.BatchSize, _ = cmd.Flags().GetInt("batch-size")
		}
		if cmd.Flags().Changed("truncate") {
			cfg.Staging.Truncate, _ = cmd.Flags().GetBool("truncate")
		}

		opts := source.Options{}
		opts.Sheet, _ = cmd.Flags().GetString("sheet")
		opts.HeaderRow, _ = cmd.Flags().GetInt("header-row")
		if d, _ := cmd.Flags().GetString("delimiter"); d != "" {
			opts.Delimiter = []rune(d)[0]
		}

		pool, err := openPool(ctx, "stage")
		if err != nil {
			return err
		}
		defer pool.Close()

		w := staging.NewWriter(pool, subsidy,
			staging.WithBatchSize(cfg.Staging.BatchSize),
			staging.WithRowsPerSecond(cfg.Staging.RowsPerSec),
		)
		if cfg.Staging.Truncate {
			if err := w.Truncate(ctx); err != nil {
				return err
			}
		}

		n, err := stageFile(ctx, w, path, layout, opts)
		if err != nil {
			return eris.Wrap(err, "stage")
		}

		zap.L().Info("file staged",
			zap.String("subsidy", string(subsidy)),
			zap.String("file", path),
			zap.Int64("rows", n),
		)
		return nil
	},
}

// stageFile streams path through the writer. Extraction stops when the
// writer fails.
func stageFile(ctx context.Context, w *staging.Writer, path string, layout source.Layout, opts source.Options) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := source.Stream(ctx, path, layout, opts)
	n, writeErr := w.Write(ctx, rowCh)
	if writeErr != nil {
		cancel()
		for range rowCh {
		}
		return n, writeErr
	}
	if err := <-errCh; err != nil {
		return n, err
	}
	return n, nil
}

func init() {
	stageCmd.Flags().String("type", "", "subsidy type: seeds, fertilizer, mechanization or plants (required)")
	stageCmd.Flags().String("file", "", "path to the .xlsx or .csv export (required)")
	stageCmd.Flags().String("sheet", "", "worksheet name (default: the type's standard sheet)")
	stageCmd.Flags().Int("header-row", 0, "zero-based row index of the header row")
	stageCmd.Flags().String("delimiter", "", "CSV field delimiter (default ',')")
	stageCmd.Flags().Int("batch-size", 1000, "rows per COPY batch")
	stageCmd.Flags().Bool("truncate", false, "empty the staging table before loading")
	_ = stageCmd.MarkFlagRequired("type")
	_ = stageCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(stageCmd)
}
