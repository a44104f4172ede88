package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/etl-productivo/subsidy-etl/internal/etl/staging"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

var rejectsCmd = &cobra.Command{
	Use:   "rejects",
	Short: "List processed staging rows that carry errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		typeName, _ := cmd.Flags().GetString("type")
		subsidy, err := model.ParseSubsidyType(typeName)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		pool, err := openPool(ctx, "query")
		if err != nil {
			return err
		}
		defer pool.Close()

		rejects, err := staging.Rejects(ctx, pool, subsidy, limit)
		if err != nil {
			return eris.Wrap(err, "rejects")
		}

		formatRejects(os.Stdout, rejects)
		_, _ = fmt.Fprintln(os.Stdout)
		formatHistogram(os.Stdout, staging.ErrorHistogram(rejects))
		return nil
	},
}

func init() {
	rejectsCmd.Flags().String("type", "", "subsidy type (required)")
	rejectsCmd.Flags().Int("limit", 100, "maximum rows to list")
	_ = rejectsCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(rejectsCmd)
}

func formatRejects(out io.Writer, rejects []staging.Reject) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tID NUMBER\tCANTON\tERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t------\t-----")

	for _, r := range rejects {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			truncate(model.Deref(r.FullName), 30),
			model.Deref(r.IDNumber),
			model.Deref(r.Canton),
			truncate(r.Error, 80),
		)
	}
	_ = w.Flush()
}

// formatHistogram writes error codes by descending count.
func formatHistogram(out io.Writer, hist map[string]int) {
	codes := make([]string, 0, len(hist))
	for c := range hist {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		if hist[codes[i]] != hist[codes[j]] {
			return hist[codes[i]] > hist[codes[j]]
		}
		return codes[i] < codes[j]
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ERROR\tROWS")
	_, _ = fmt.Fprintln(w, "-----\t----")
	for _, c := range codes {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", c, hist[c])
	}
	_ = w.Flush()
}
