package enrich

import (
	"strings"

	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Enricher attaches catalog entries to records by crop code.
type Enricher struct {
	catalog *Catalog
	unknown map[string]int
	log     *zap.Logger
}

// New returns an Enricher over catalog.
func New(catalog *Catalog) *Enricher {
	return &Enricher{
		catalog: catalog,
		unknown: make(map[string]int),
		log:     zap.L().With(zap.String("component", "enrich")),
	}
}

// Enrich sets CropInfo on valid records that carry a crop code. Unknown
// codes get a minimal NOT_CLASSIFIED entry.
func (e *Enricher) Enrich(recs []*model.Record) {
	for _, r := range recs {
		if !r.Valid || r.CropCode == nil {
			continue
		}
		crop := e.Lookup(*r.CropCode, model.Deref(r.CropName))
		r.CropInfo = &crop
	}
}

// Lookup resolves code, falling back to a NOT_CLASSIFIED entry named after
// the source text.
func (e *Enricher) Lookup(code, name string) model.Crop {
	if crop, ok := e.catalog.Lookup(code); ok {
		return crop
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if e.unknown[code] == 0 {
		e.log.Warn("crop not in catalog", zap.String("code", code))
	}
	e.unknown[code]++
	if name == "" {
		name = code
	}
	return model.Crop{Code: code, CommonName: name, Classification: NotClassified}
}

// Unknown returns how many lookups missed the catalog, per code.
func (e *Enricher) Unknown() map[string]int {
	out := make(map[string]int, len(e.unknown))
	for k, v := range e.unknown {
		out[k] = v
	}
	return out
}
