// Package clean coerces raw staging text into typed records. It nulls
// implausible cells and never drops a row.
package clean

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// Plausibility limits.
const (
	MinAge  = 0
	MaxAge  = 120
	MinYear = 2000
	MaxYear = 2030
)

var minDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// excelEpoch is day zero of the 1900 date system as Excel counts it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01-02-06",
	"1/2/06",
}

var nullSentinels = map[string]bool{
	"":     true,
	"NAN":  true,
	"NONE": true,
	"NULL": true,
	"NAT":  true,
}

// Stats counts what the cleaner changed.
type Stats struct {
	Rows            int `json:"rows"`
	NulledCells     int `json:"nulled_cells"`
	MissingRequired int `json:"missing_required"`
	DuplicateActs   int `json:"duplicate_acts"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Rows += o.Rows
	s.NulledCells += o.NulledCells
	s.MissingRequired += o.MissingRequired
	s.DuplicateActs += o.DuplicateActs
}

// Cleaner turns RawRows into Records for one subsidy type.
type Cleaner struct {
	subsidy model.SubsidyType
	now     func() time.Time
	stats   Stats
	log     *zap.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithClock overrides the clock used for the future-date limit.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) { c.now = now }
}

// New returns a Cleaner for the given subsidy type.
func New(subsidy model.SubsidyType, opts ...Option) *Cleaner {
	c := &Cleaner{
		subsidy: subsidy,
		now:     time.Now,
		log:     zap.L().With(zap.String("component", "clean"), zap.String("subsidy", string(subsidy))),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stats returns the running counters.
func (c *Cleaner) Stats() Stats { return c.stats }

// Clean converts a batch. The output has one record per input row, in order.
func (c *Cleaner) Clean(rows []model.RawRow) []*model.Record {
	out := make([]*model.Record, 0, len(rows))
	acts := make(map[string]int, len(rows))

	for i := range rows {
		rec := c.cleanRow(&rows[i])
		if rec.ActNumber != nil {
			acts[*rec.ActNumber]++
		}
		out = append(out, rec)
	}

	for _, rec := range out {
		if rec.ActNumber != nil && acts[*rec.ActNumber] > 1 {
			rec.DuplicateAct = true
			c.stats.DuplicateActs++
		}
		if rec.MissingRequired {
			c.stats.MissingRequired++
		}
	}
	c.stats.Rows += len(rows)

	c.log.Debug("batch cleaned", zap.Int("rows", len(rows)), zap.Int("nulled_cells", c.stats.NulledCells))
	return out
}

func (c *Cleaner) cleanRow(raw *model.RawRow) *model.Record {
	rec := &model.Record{
		StagingID: raw.ID,
		Subsidy:   c.subsidy,

		ActNumber:    c.key(raw.ActNumber),
		Organization: c.key(raw.Organization),
		FullName:     c.key(raw.FullName),
		IDNumber:     c.key(raw.IDNumber),
		Phone:        c.text(raw.Phone),
		GenderText:   c.key(raw.Gender),
		Age:          c.intRange(raw.Age, MinAge, MaxAge),

		Canton:   c.key(raw.Canton),
		Parish:   c.key(raw.Parish),
		Locality: c.key(raw.Locality),
		CoordX:   c.number(raw.CoordX),
		CoordY:   c.number(raw.CoordY),

		HectaresTotal:     c.nonNegative(raw.HectaresTotal),
		HectaresBenefited: c.nonNegative(raw.HectaresBenefited),
		Quantity:          c.nonNegative(raw.Quantity),
		UnitPrice:         c.nonNegative(raw.UnitPrice),
		Amount:            c.nonNegative(raw.Amount),

		Variety:  c.key(raw.Variety),
		CropName: c.key(raw.Crop),

		DeliveryDate:  c.date(raw.DeliveryDate),
		DeliveryPlace: c.key(raw.DeliveryPlace),
		Responsible:   c.key(raw.Responsible),
		ResponsibleID: c.key(raw.ResponsibleID),
		Observation:   c.key(raw.Observation),
		Status:        c.key(raw.Status),
		Year:          c.intRange(raw.Year, MinYear, MaxYear),

		NitrogenFertilizer: c.key(raw.NitrogenFertilizer),
		NPKFertilizer:      c.key(raw.NPKFertilizer),
		OrganicFoliar:      c.key(raw.OrganicFoliar),
		Category:           c.key(raw.Category),
	}
	rec.MissingRequired = c.missingRequired(rec)
	return rec
}

// missingRequired flags rows lacking act number (for sheets that carry one),
// beneficiary name or canton.
func (c *Cleaner) missingRequired(r *model.Record) bool {
	if r.FullName == nil || r.Canton == nil {
		return true
	}
	switch c.subsidy {
	case model.SubsidySeeds, model.SubsidyPlants:
		return r.ActNumber == nil
	}
	return false
}

// text trims and maps null sentinels to nil.
func (c *Cleaner) text(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if nullSentinels[strings.ToUpper(s)] {
		if s != "" {
			c.stats.NulledCells++
		}
		return nil
	}
	return &s
}

// key is text upper-cased, for values used in grouping.
func (c *Cleaner) key(v *string) *string {
	s := c.text(v)
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}

func (c *Cleaner) number(v *string) *float64 {
	s := c.text(v)
	if s == nil {
		return nil
	}
	f, ok := ParseNumber(*s)
	if !ok {
		c.stats.NulledCells++
		return nil
	}
	return &f
}

func (c *Cleaner) nonNegative(v *string) *float64 {
	f := c.number(v)
	if f != nil && *f < 0 {
		c.stats.NulledCells++
		return nil
	}
	return f
}

func (c *Cleaner) intRange(v *string, lo, hi int) *int {
	f := c.number(v)
	if f == nil {
		return nil
	}
	n := int(math.Round(*f))
	if n < lo || n > hi {
		c.stats.NulledCells++
		return nil
	}
	return &n
}

func (c *Cleaner) date(v *string) *time.Time {
	s := c.text(v)
	if s == nil {
		return nil
	}
	d, ok := ParseDate(*s)
	if !ok {
		c.stats.NulledCells++
		return nil
	}
	if d.Before(minDate) || d.After(c.now().AddDate(0, 0, 365)) {
		c.stats.NulledCells++
		return nil
	}
	return &d
}

// Digit groups of three after a 1-3 digit head, e.g. "12,345" or "1.500.000".
var (
	commaGroupsRe = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+$`)
	dotGroupsRe   = regexp.MustCompile(`^[-+]?\d{1,3}(\.\d{3}){2,}$`)
)

// ParseNumber reads a decimal that may carry a currency sign, thousands
// separators or a decimal comma. With both separators present the last one
// is the decimal mark. A lone comma followed by three-digit groups is a
// thousands separator; any other lone comma is the decimal mark.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, " ", "")

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
			if strings.Contains(s, ",") {
				return 0, false
			}
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		switch {
		case commaGroupsRe.MatchString(s):
			s = strings.ReplaceAll(s, ",", "")
		case strings.Count(s, ",") == 1:
			s = strings.Replace(s, ",", ".", 1)
		default:
			return 0, false
		}
	case dotGroupsRe.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate accepts the layouts seen in the source sheets and Excel serial
// day numbers. The result is truncated to the day in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < 100000 {
		return truncateDay(excelEpoch.AddDate(0, 0, int(f))), true
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
