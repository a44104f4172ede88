package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/etl/enrich"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Crop catalog commands",
	Long:  "Inspect the crop catalog used for enrichment and seed it into ref.crop.",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the crop catalog into ref.crop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		pool, err := openPool(ctx, "query")
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := enrich.Seed(ctx, pool, catalog)
		if err != nil {
			return eris.Wrap(err, "catalog seed")
		}

		zap.L().Info("crop catalog seeded", zap.Int64("rows", n))
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the crop catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		formatCatalog(os.Stdout, catalog)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogSeedCmd)
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

// loadCatalog returns the configured catalog file, or the embedded default.
func loadCatalog() (*enrich.Catalog, error) {
	if cfg.Pipeline.CatalogPath == "" {
		return enrich.DefaultCatalog(), nil
	}
	return enrich.LoadCatalog(cfg.Pipeline.CatalogPath)
}

func formatCatalog(out io.Writer, c *enrich.Catalog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tFAMILY\tCYCLE\tDAYS\tUSE")
	_, _ = fmt.Fprintln(w, "----\t----\t------\t-----\t----\t---")

	for _, crop := range c.All() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			crop.Code,
			crop.CommonName,
			crop.Family,
			crop.CycleType,
			crop.CycleDays,
			crop.MainUse,
		)
	}
	_ = w.Flush()
}
