// Package source extracts subsidy spreadsheets into raw staging rows. Each
// subsidy type has its own sheet name and header dictionary.
package source

import (
	"github.com/etl-productivo/subsidy-etl/internal/etl/standardize"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Pseudo-columns assembled into full_name when a sheet splits the name.
const (
	colSurnames   = "_surnames"
	colGivenNames = "_given_names"
)

// Layout describes one subsidy type's source sheet.
type Layout struct {
	Subsidy model.SubsidyType
	Sheet   string
	// Headers maps a folded header (see standardize.Fold) to a RawColumns name.
	Headers map[string]string
}

// common headers every sheet may carry.
var commonHeaders = map[string]string{
	"ASOCIACIONES":             "organization",
	"CEDULA":                   "id_number",
	"TELEFONO":                 "phone",
	"GENERO":                   "gender",
	"EDAD":                     "age",
	"CANTON":                   "canton",
	"PARROQUIA":                "parish",
	"RECINTO, COMUNA O SECTOR": "locality",
	"RECINTO":                  "locality",
	"X":                        "coord_x",
	"Y":                        "coord_y",
	"HECTAREAS":                "hectares_benefited",
	"HECTAREAS TOTALES":        "hectares_total",
	"FECHA DE ENTREGA":         "delivery_date",
	"LUGAR DE ENTREGA":         "delivery_place",
	"OBSERVACION":              "observation",
	"ANO":                      "year",
	"INVERSION":                "amount",
	"MONTO":                    "amount",
}

var layouts = map[model.SubsidyType]Layout{
	model.SubsidySeeds: newLayout(model.SubsidySeeds, "SEMILLAS", map[string]string{
		"ACTAS":                  "act_number",
		"NOMBRES COMPLETOS":      "full_name",
		"ENTREGA":                "quantity",
		"VARIEDAD":               "variety",
		"CULTIVO 1":              "crop",
		"RESPONSABLE DE AGRIPAC": "responsible",
		"CEDULA2":                "responsible_id",
		"PRECIO UNITARIO":        "unit_price",
	}),
	model.SubsidyFertilizer: newLayout(model.SubsidyFertilizer, "FERTILIZANTES", map[string]string{
		"APELLIDOS Y NOMBRES":         "full_name",
		"FERTILIZANTE NITROGENADO":    "nitrogen_fertilizer",
		"(N-P-K) + ELEMENTOS MENORES": "npk_fertilizer",
		"ORGANICO FOLIAR":             "organic_foliar",
		"CULTIVO":                     "crop",
		"PRECIO_KIT":                  "unit_price",
	}),
	model.SubsidyMechanization: newLayout(model.SubsidyMechanization, "MECANIZACIÓN", map[string]string{
		"APELLIDOS Y NOMBRES":    "full_name",
		"CEDULA DE IDENTIDAD":    "id_number",
		"NUMERO DE TELEFONO":     "phone",
		"AGRUPACION":             "organization",
		"HECTAREAS BENEFICIADAS": "hectares_benefited",
		"CULTIVO":                "crop",
		"ESTADO":                 "status",
		"COMENTARIO":             "observation",
		"CU-HA":                  "unit_price",
	}),
	model.SubsidyPlants: newLayout(model.SubsidyPlants, "PLANTAS DE CACAO", map[string]string{
		"ACTAS":              "act_number",
		"APELLIDOS":          colSurnames,
		"NOMBRES":            colGivenNames,
		"NOMBRES COMPLETOS":  "full_name",
		"ENTREGA":            "quantity",
		"CULTIVO 1":          "crop",
		"CONTRATISTA":        "responsible",
		"CEDULA CONTRATISTA": "responsible_id",
		"PRECIO UNITARIO":    "unit_price",
		"RUBRO":              "category",
	}),
}

func newLayout(t model.SubsidyType, sheet string, specific map[string]string) Layout {
	h := make(map[string]string, len(commonHeaders)+len(specific))
	for k, v := range commonHeaders {
		h[standardize.Fold(k)] = v
	}
	for k, v := range specific {
		h[standardize.Fold(k)] = v
	}
	return Layout{Subsidy: t, Sheet: sheet, Headers: h}
}

// LayoutFor returns the layout registered for t.
func LayoutFor(t model.SubsidyType) (Layout, bool) {
	l, ok := layouts[t]
	return l, ok
}

// Column resolves a header cell to a staging column, or "" when unmapped.
func (l Layout) Column(header string) string {
	return l.Headers[standardize.Fold(header)]
}
