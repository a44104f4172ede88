package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/etl-productivo/subsidy-etl/internal/etl/runlog"
	"github.com/etl-productivo/subsidy-etl/internal/etl/staging"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show staging counts and recent runs",
	Long:  "Displays total, processed, pending and errored staging rows per subsidy type, followed by the most recent process runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx, "query")
		if err != nil {
			return err
		}
		defer pool.Close()

		stats, err := staging.AllStats(ctx, pool)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		limit, _ := cmd.Flags().GetInt("runs")
		entries, err := runlog.New(pool).Recent(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		formatStagingStats(os.Stdout, stats)
		_, _ = fmt.Fprintln(os.Stdout)
		formatRunEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("runs", 20, "number of recent runs to list")
	rootCmd.AddCommand(statusCmd)
}

// formatStagingStats writes a tabular representation of staging counts to w.
func formatStagingStats(out io.Writer, stats []staging.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tTOTAL\tPROCESSED\tPENDING\tWITH ERRORS")
	_, _ = fmt.Fprintln(w, "----\t-----\t---------\t-------\t-----------")

	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			s.Subsidy,
			s.Total,
			s.Processed,
			s.Pending,
			s.WithErrors,
		)
	}
	_ = w.Flush()
}

// formatRunEntries writes a tabular representation of run log entries to w.
func formatRunEntries(out io.Writer, entries []runlog.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tTYPE\tPOLICY\tSTATUS\tSTARTED\tDURATION\tROWS\tERROR")
	_, _ = fmt.Fprintln(w, "---\t----\t------\t------\t-------\t--------\t----\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID.String()[:8],
			e.Subsidy,
			e.Policy,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.RowsRead,
			truncate(e.Error, 60),
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
