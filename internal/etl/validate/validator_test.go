package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func date(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

// cleanRecord returns a record that passes both policies.
func cleanRecord() *model.Record {
	return &model.Record{
		StagingID:         1,
		FullName:          model.Str("JUAN PEREZ"),
		IDNumber:          model.Str("1710034065"),
		Organization:      model.Str("ASOCIACION EL PROGRESO"),
		HectaresTotal:     model.Float(5),
		HectaresBenefited: model.Float(3),
		UnitPrice:         model.Float(10),
		Amount:            model.Float(30),
		CropCode:          model.Str("ARROZ"),
		Year:              model.Int(2024),
		DeliveryDate:      date(2024, 3, 15),
		CoordX:            model.Float(-79.5),
		CoordY:            model.Float(-1.2),
	}
}

func TestValidate_CleanRecordPassesBoth(t *testing.T) {
	for _, p := range []Policy{Strict(), Flexible()} {
		t.Run(p.Name, func(t *testing.T) {
			r := cleanRecord()
			New(p).Validate([]*model.Record{r})
			assert.True(t, r.Valid)
			assert.Empty(t, r.Errors)
			require.NotNil(t, r.CorrectedID)
			assert.Equal(t, "1710034065", *r.CorrectedID)
		})
	}
}

func TestValidate_StrictRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.Record)
		code   string
	}{
		{"bad checksum", func(r *model.Record) { r.IDNumber = model.Str("1710034064") }, CodeInvalidID},
		{"year mismatch", func(r *model.Record) { r.Year = model.Int(2023) }, "year mismatch (2024 != 2023)"},
		{"amount off by more than a cent", func(r *model.Record) { r.Amount = model.Float(30.02) }, "amount mismatch (expected 30.00)"},
		{"benefited above total", func(r *model.Record) { r.HectaresBenefited = model.Float(5.5); r.Amount = model.Float(55) }, CodeHectaresExceedTotal},
		{"x out of range", func(r *model.Record) { r.CoordX = model.Float(100) }, CodeCoordinateX},
		{"y out of range utm", func(r *model.Record) { r.CoordY = model.Float(9000000) }, CodeCoordinateY},
		{"organization without name", func(r *model.Record) { r.FullName = nil }, CodeOrgWithoutName},
		{"hectares without crop", func(r *model.Record) { r.CropCode = nil }, CodeHectaresWithoutCrop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := cleanRecord()
			tt.mutate(r)
			New(Strict()).Validate([]*model.Record{r})
			assert.False(t, r.Valid)
			assert.Contains(t, r.Errors, tt.code)
		})
	}
}

func TestValidate_StrictAmountWithinCent(t *testing.T) {
	r := cleanRecord()
	r.Amount = model.Float(30.005)
	New(Strict()).Validate([]*model.Record{r})
	assert.True(t, r.Valid)
}

func TestValidate_FlexibleAdvisories(t *testing.T) {
	r := cleanRecord()
	r.Year = model.Int(2023)
	r.Amount = model.Float(50)
	r.CoordX = model.Float(100)
	r.CropCode = nil
	r.IDNumber = model.Str("1710034064")

	v := New(Flexible())
	v.Validate([]*model.Record{r})

	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
	s := v.Summary()
	assert.Equal(t, 1, s.Advisories["amount mismatch (expected 30.00)"])
	assert.Equal(t, 1, s.Advisories[CodeCoordinateX])
	assert.Equal(t, 1, s.Advisories[codeChecksumAdvisory])
	assert.Equal(t, 1, s.Advisories["year mismatch (2024 != 2023)"])
}

func TestValidate_FlexibleRepairsNineDigitID(t *testing.T) {
	r := &model.Record{
		FullName:          model.Str("JUAN PEREZ"),
		IDNumber:          model.Str("171234567"),
		HectaresTotal:     model.Float(5),
		HectaresBenefited: model.Float(3),
		UnitPrice:         model.Float(10),
		Amount:            model.Float(30),
	}
	v := New(Flexible())
	v.Validate([]*model.Record{r})

	assert.True(t, r.Valid)
	require.NotNil(t, r.CorrectedID)
	assert.Equal(t, "0171234567", *r.CorrectedID)
	assert.Equal(t, "171234567", *r.IDNumber, "original kept")
	assert.Equal(t, 1, v.Summary().IDsRepaired)
}

func TestValidate_FlexibleExcessiveHectares(t *testing.T) {
	r := &model.Record{
		FullName:          model.Str("JUAN PEREZ"),
		HectaresTotal:     model.Float(5),
		HectaresBenefited: model.Float(8),
	}
	New(Flexible()).Validate([]*model.Record{r})
	assert.False(t, r.Valid)
	assert.Equal(t, []string{CodeHectaresExcessive}, r.Errors)
	assert.Equal(t, "hectares benefited excessive", *r.ErrorText())

	ok := &model.Record{FullName: model.Str("A"), HectaresTotal: model.Float(5), HectaresBenefited: model.Float(7.5)}
	New(Flexible()).Validate([]*model.Record{ok})
	assert.True(t, ok.Valid, "exactly 1.5x is tolerated")
}

func TestValidate_FlexibleMissingName(t *testing.T) {
	withID := &model.Record{IDNumber: model.Str("1710034065"), Organization: model.Str("ASOC")}
	noID := &model.Record{Organization: model.Str("ASOC")}
	New(Flexible()).Validate([]*model.Record{withID, noID})

	assert.False(t, withID.Valid)
	assert.Equal(t, []string{CodeMissingName}, withID.Errors)
	assert.True(t, noID.Valid)
}

func TestValidate_FlexiblePlaceholderIDTreatedAsAbsent(t *testing.T) {
	v := New(Flexible())
	for _, placeholder := range []string{"S/N", "-", "N/A", "SIN CEDULA"} {
		t.Run(placeholder, func(t *testing.T) {
			r := &model.Record{FullName: model.Str("JUAN PEREZ"), IDNumber: model.Str(placeholder)}
			v.Validate([]*model.Record{r})
			assert.True(t, r.Valid)
			assert.Empty(t, r.Errors)
			assert.Nil(t, r.CorrectedID)
		})
	}
	assert.Equal(t, 0, v.Summary().IDsRepaired)

	noName := &model.Record{IDNumber: model.Str("S/N"), Organization: model.Str("ASOC")}
	New(Flexible()).Validate([]*model.Record{noName})
	assert.True(t, noName.Valid, "placeholder id does not trigger the missing-name rule")

	strict := &model.Record{FullName: model.Str("JUAN PEREZ"), IDNumber: model.Str("S/N")}
	New(Strict()).Validate([]*model.Record{strict})
	assert.Equal(t, []string{CodeInvalidID}, strict.Errors)
}

func TestValidate_FlexibleUnrecoverableID(t *testing.T) {
	r := &model.Record{FullName: model.Str("A"), IDNumber: model.Str("12-34")}
	New(Flexible()).Validate([]*model.Record{r})
	assert.False(t, r.Valid)
	assert.Nil(t, r.CorrectedID)
	assert.Equal(t, []string{CodeInvalidID}, r.Errors)
}

func TestValidate_FlexibleRecallAtLeastStrict(t *testing.T) {
	build := func() []*model.Record {
		var recs []*model.Record
		ids := []string{"1710034065", "1710034064", "171234567", "9512345678", "12", "1790012345001", ""}
		names := []*string{model.Str("A"), nil}
		orgs := []*string{model.Str("ASOC"), nil}
		hect := [][2]float64{{5, 3}, {5, 6}, {5, 8}}
		for _, id := range ids {
			for _, n := range names {
				for _, o := range orgs {
					for _, h := range hect {
						r := cleanRecord()
						if id == "" {
							r.IDNumber = nil
						} else {
							r.IDNumber = model.Str(id)
						}
						r.FullName = n
						r.Organization = o
						r.HectaresTotal = model.Float(h[0])
						r.HectaresBenefited = model.Float(h[1])
						r.Amount = model.Float(h[1] * 10)
						recs = append(recs, r)
					}
				}
			}
		}
		return recs
	}

	strict := New(Strict())
	strictRecs := build()
	strict.Validate(strictRecs)

	flexible := New(Flexible())
	flexRecs := build()
	flexible.Validate(flexRecs)

	assert.GreaterOrEqual(t, flexible.Summary().Valid, strict.Summary().Valid)
	for i := range strictRecs {
		if strictRecs[i].Valid {
			assert.True(t, flexRecs[i].Valid, "row %d valid under strict but not flexible", i)
		}
	}
}

func TestNamed(t *testing.T) {
	p, err := Named("strict", 2, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.HectaresRatio)

	p, err = Named("flexible", 2, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.HectaresRatio)
	assert.Equal(t, 0.2, p.AmountTolerance)

	p, err = Named("flexible", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, p.HectaresRatio)

	_, err = Named("lenient", 0, 0)
	assert.Error(t, err)
}

func TestLogReport_HistogramMostFrequentFirst(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	v := New(Strict())
	restore()

	v.Validate([]*model.Record{
		{IDNumber: model.Str("123")},
		{IDNumber: model.Str("456"), FullName: model.Str("A")},
		{FullName: model.Str("B"), HectaresTotal: model.Float(1), HectaresBenefited: model.Float(2), CropCode: model.Str("ARROZ")},
	})
	v.LogReport()

	summary := logs.FilterMessage("validation summary").All()
	require.Len(t, summary, 1)
	assert.Equal(t, int64(3), summary[0].ContextMap()["invalid"])

	errs := logs.FilterMessage("validation error").All()
	require.Len(t, errs, 3)
	assert.Equal(t, CodeInvalidID, errs[0].ContextMap()["code"])
	assert.Equal(t, int64(2), errs[0].ContextMap()["count"])
}
