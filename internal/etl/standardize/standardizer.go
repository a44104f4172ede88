// Package standardize maps free-text categorical values to canonical enumerations.
package standardize

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// NoStatus is stored when a row carries no observation/status text.
const NoStatus = "NO STATUS"

var genderMap = map[string]model.Gender{
	"MASCULINO": model.GenderMale,
	"HOMBRE":    model.GenderMale,
	"MASC":      model.GenderMale,
	"M":         model.GenderMale,
	"FEMENINO":  model.GenderFemale,
	"MUJER":     model.GenderFemale,
	"FEM":       model.GenderFemale,
	"F":         model.GenderFemale,
}

var cropMap = map[string]string{
	"ARROZ":   model.CropRice,
	"MAIZ":    model.CropCorn,
	"SOYA":    model.CropSoy,
	"SOJA":    model.CropSoy,
	"CACAO":   model.CropCocoa,
	"BANANO":  model.CropBanana,
	"PLATANO": model.CropPlantain,
}

var statusMap = map[string]string{
	"RECIBIDO":   "RECEIVED",
	"ENTREGADO":  "RECEIVED",
	"PENDIENTE":  "PENDING",
	"EN PROCESO": "PENDING",
	"CANCELADO":  "CANCELLED",
	"ANULADO":    "CANCELLED",
}

// Stats counts what the standardizer changed over its lifetime.
type Stats struct {
	CoordinatesRepaired int `json:"coordinates_repaired"`
	UnmappedCrops       int `json:"unmapped_crops"`
	PhonesFormatted     int `json:"phones_formatted"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.CoordinatesRepaired += o.CoordinatesRepaired
	s.UnmappedCrops += o.UnmappedCrops
	s.PhonesFormatted += o.PhonesFormatted
}

// Standardizer canonicalizes cleaned records in place. It never fails a row.
type Standardizer struct {
	stats Stats
	log   *zap.Logger
}

// New returns a Standardizer.
func New() *Standardizer {
	return &Standardizer{log: zap.L().With(zap.String("component", "standardize"))}
}

// Stats returns the running counters.
func (s *Standardizer) Stats() Stats { return s.stats }

// Standardize rewrites categorical fields of every record.
func (s *Standardizer) Standardize(recs []*model.Record) {
	for _, r := range recs {
		if r.GenderText != nil {
			g := Gender(*r.GenderText)
			r.Gender = &g
		}

		if r.Phone != nil {
			p := Phone(*r.Phone)
			if p == "" {
				r.Phone = nil
			} else {
				if strings.HasPrefix(p, "+593") {
					s.stats.PhonesFormatted++
				}
				r.Phone = &p
			}
		}

		if r.CropName != nil {
			code := CropCode(*r.CropName)
			if code == model.CropOther {
				s.stats.UnmappedCrops++
			}
			r.CropCode = &code
		}

		r.Canton = foldPtr(r.Canton)
		r.Parish = foldPtr(r.Parish)
		r.Locality = foldPtr(r.Locality)

		st := Status(r.Status, r.Observation)
		r.Status = &st

		r.CoordX = s.repair(r.CoordX)
		r.CoordY = s.repair(r.CoordY)
	}
	s.log.Debug("batch standardized", zap.Int("rows", len(recs)))
}

func (s *Standardizer) repair(v *float64) *float64 {
	if v == nil {
		return nil
	}
	fixed, ok := RepairCoordinate(*v)
	if ok {
		s.stats.CoordinatesRepaired++
		return &fixed
	}
	return v
}

// Gender maps free text to the gender enumeration. Anything unrecognized
// becomes UNSPECIFIED.
func Gender(raw string) model.Gender {
	if g, ok := genderMap[Fold(raw)]; ok {
		return g
	}
	return model.GenderUnspecified
}

// CropCode maps a crop name to its canonical code, OTRO when unknown.
func CropCode(raw string) string {
	if c, ok := cropMap[Fold(raw)]; ok {
		return c
	}
	return model.CropOther
}

// Phone keeps the digits of raw and adds the +593 prefix when they look like
// a national number: ten digits with a trunk 0, or nine digits without it.
func Phone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10 && digits[0] == '0':
		return "+593" + digits[1:]
	case len(digits) == 9:
		return "+593" + digits
	}
	return digits
}

// Status canonicalizes the delivery status. The explicit status column
// wins over the free-text observation; unknown values are kept folded.
func Status(status, observation *string) string {
	src := status
	if src == nil || *src == "" {
		src = observation
	}
	if src == nil || strings.TrimSpace(*src) == "" {
		return NoStatus
	}
	folded := Fold(*src)
	if canon, ok := statusMap[folded]; ok {
		return canon
	}
	return folded
}

// RepairCoordinate fixes values where two coordinates were pasted into one
// cell: more than ten integer digits above 10,000,000 in magnitude keep the
// first six digits plus two decimals. ok is false when v was left alone.
func RepairCoordinate(v float64) (float64, bool) {
	if math.Abs(v) <= 10_000_000 {
		return v, false
	}
	digits := strconv.FormatFloat(math.Trunc(math.Abs(v)), 'f', 0, 64)
	if len(digits) <= 10 {
		return v, false
	}
	fixed, err := strconv.ParseFloat(digits[:6]+"."+digits[6:8], 64)
	if err != nil {
		return v, false
	}
	if v < 0 {
		fixed = -fixed
	}
	return fixed, true
}

func foldPtr(s *string) *string {
	if s == nil {
		return nil
	}
	f := Fold(*s)
	if f == "" {
		return nil
	}
	return &f
}
