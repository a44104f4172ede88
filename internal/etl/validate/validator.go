// Package validate flags standardized records as valid or invalid under a
// Policy and attaches human-readable violation codes.
package validate

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/etl/geo"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Violation codes. Amount and year codes carry detail in parentheses.
const (
	CodeInvalidID           = "invalid id number"
	CodeYearMismatch        = "year mismatch"
	CodeAmountMismatch      = "amount mismatch"
	CodeHectaresExceedTotal = "hectares benefited exceed total"
	CodeHectaresExcessive   = "hectares benefited excessive"
	CodeCoordinateX         = "coordinate x out of range"
	CodeCoordinateY         = "coordinate y out of range"
	CodeOrgWithoutName      = "organization without beneficiary"
	CodeMissingName         = "missing beneficiary name"
	CodeHectaresWithoutCrop = "hectares without crop"
	codeChecksumAdvisory    = "id checksum mismatch"
)

// Summary aggregates a validator's results over its lifetime.
type Summary struct {
	Policy      string         `json:"policy"`
	Valid       int            `json:"valid"`
	Invalid     int            `json:"invalid"`
	IDsRepaired int            `json:"ids_repaired"`
	Errors      map[string]int `json:"errors,omitempty"`
	Advisories  map[string]int `json:"advisories,omitempty"`
}

// Add accumulates o into s.
func (s *Summary) Add(o Summary) {
	s.Valid += o.Valid
	s.Invalid += o.Invalid
	s.IDsRepaired += o.IDsRepaired
	s.Errors = addCounts(s.Errors, o.Errors)
	s.Advisories = addCounts(s.Advisories, o.Advisories)
}

// Validator applies a Policy. It mutates records only through their
// validity fields and CorrectedID.
type Validator struct {
	policy  Policy
	summary Summary
	log     *zap.Logger
}

// New returns a Validator for p.
func New(p Policy) *Validator {
	return &Validator{
		policy: p,
		summary: Summary{
			Policy:     p.Name,
			Errors:     make(map[string]int),
			Advisories: make(map[string]int),
		},
		log: zap.L().With(zap.String("component", "validate"), zap.String("policy", p.Name)),
	}
}

// Policy returns the validator's policy.
func (v *Validator) Policy() Policy { return v.policy }

// Summary returns a copy of the running totals.
func (v *Validator) Summary() Summary {
	s := v.summary
	s.Errors = copyCounts(v.summary.Errors)
	s.Advisories = copyCounts(v.summary.Advisories)
	return s
}

// Validate sets Valid, Errors and CorrectedID on every record.
func (v *Validator) Validate(recs []*model.Record) {
	for _, r := range recs {
		v.validate(r)
		if r.Valid {
			v.summary.Valid++
		} else {
			v.summary.Invalid++
		}
	}
}

func (v *Validator) validate(r *model.Record) {
	r.Valid = true
	r.Errors = nil
	r.CorrectedID = nil
	p := v.policy
	hasID := r.IDNumber != nil

	if r.IDNumber != nil {
		res := CheckID(*r.IDNumber, p.ID)
		switch {
		case !res.OK:
			v.apply(r, Reject, CodeInvalidID)
		case res.Accepted == "":
			hasID = false
		default:
			id := res.Accepted
			r.CorrectedID = &id
			if id != *r.IDNumber {
				v.summary.IDsRepaired++
			}
			if res.ChecksumFailed {
				v.apply(r, Advisory, codeChecksumAdvisory)
			}
		}
	}

	if r.Year != nil && r.DeliveryDate != nil && r.DeliveryDate.Year() != *r.Year {
		v.apply(r, p.YearMismatch, fmt.Sprintf("%s (%d != %d)", CodeYearMismatch, r.DeliveryDate.Year(), *r.Year))
	}

	if r.HectaresBenefited != nil && r.UnitPrice != nil && r.Amount != nil {
		expected := *r.HectaresBenefited * *r.UnitPrice
		if amountOff(expected, *r.Amount, p) {
			v.apply(r, p.Amount, fmt.Sprintf("%s (expected %.2f)", CodeAmountMismatch, expected))
		}
	}

	if r.HectaresBenefited != nil && r.HectaresTotal != nil && *r.HectaresBenefited > *r.HectaresTotal*p.HectaresRatio {
		code := CodeHectaresExceedTotal
		if p.HectaresRatio > 1 {
			code = CodeHectaresExcessive
		}
		v.apply(r, Reject, code)
	}

	if r.CoordX != nil && !geo.XInRange(*r.CoordX) {
		v.apply(r, p.Coordinates, CodeCoordinateX)
	}
	if r.CoordY != nil && !geo.YInRange(*r.CoordY) {
		v.apply(r, p.Coordinates, CodeCoordinateY)
	}

	if r.FullName == nil {
		switch {
		case r.Organization != nil && p.OrganizationWithoutName == Reject:
			v.apply(r, Reject, CodeOrgWithoutName)
		case hasID:
			v.apply(r, p.NameWithID, CodeMissingName)
		}
	}

	if r.HectaresBenefited != nil && *r.HectaresBenefited > 0 && r.CropCode == nil {
		v.apply(r, p.HectaresWithoutCrop, CodeHectaresWithoutCrop)
	}
}

func amountOff(expected, declared float64, p Policy) bool {
	diff := math.Abs(expected - declared)
	if !p.AmountRelative {
		return diff > p.AmountTolerance
	}
	if declared <= 0 {
		return false
	}
	return diff/declared > p.AmountTolerance
}

func (v *Validator) apply(r *model.Record, sev Severity, code string) {
	switch sev {
	case Reject:
		r.AddError(code)
		v.summary.Errors[code]++
	case Advisory:
		v.summary.Advisories[code]++
		v.log.Debug("advisory", zap.Int64("staging_id", r.StagingID), zap.String("code", code))
	}
}

// LogReport writes the violation histogram, most frequent first.
func (v *Validator) LogReport() {
	v.summary.Report(v.log)
}

// Report writes s to log, errors most frequent first.
func (s Summary) Report(log *zap.Logger) {
	log.Info("validation summary",
		zap.Int("valid", s.Valid),
		zap.Int("invalid", s.Invalid),
		zap.Int("ids_repaired", s.IDsRepaired),
	)
	for _, kc := range sortedCounts(s.Errors) {
		log.Info("validation error", zap.String("code", kc.key), zap.Int("count", kc.n))
	}
}

type keyCount struct {
	key string
	n   int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, n := range m {
		out = append(out, keyCount{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, n := range m {
		out[k] = n
	}
	return out
}

func addCounts(dst, src map[string]int) map[string]int {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]int, len(src))
	}
	for k, n := range src {
		dst[k] += n
	}
	return dst
}
