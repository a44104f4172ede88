package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/etl-productivo/subsidy-etl/internal/db"
)

var cropColumns = []string{
	"code", "common_name", "scientific_name", "family", "genus",
	"cycle_type", "cycle_days", "classification", "main_use", "seasonality", "water_need",
}

// Seed upserts every catalog entry into ref.crop so the operational schema
// can join benefits to crop attributes.
func Seed(ctx context.Context, pool db.Pool, c *Catalog) (int64, error) {
	crops := c.All()
	rows := make([][]any, len(crops))
	for i, cr := range crops {
		rows[i] = []any{
			cr.Code, cr.CommonName, nullIfEmpty(cr.ScientificName), nullIfEmpty(cr.Family), nullIfEmpty(cr.Genus),
			nullIfEmpty(cr.CycleType), cr.CycleDays, cr.Classification, nullIfEmpty(cr.MainUse),
			nullIfEmpty(cr.Seasonality), nullIfEmpty(cr.WaterNeed),
		}
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "ref.crop",
		Columns:      cropColumns,
		ConflictKeys: []string{"code"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "enrich: seed crop catalog")
	}
	return n, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
