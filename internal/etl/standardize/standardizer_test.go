package standardize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  San  José de Chamanga ", "SAN JOSE DE CHAMANGA"},
		{"Babahoyo", "BABAHOYO"},
		{"PLÁTANO", "PLATANO"},
		{"Año", "ANO"},
		{"\tvinces\n", "VINCES"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, "PEREZ JUAN CARLOS", NameKey("Pérez, Juan-Carlos"))
	assert.Equal(t, "ASOC AGRICOLA EL PROGRESO", NameKey("Asoc. Agrícola \"El Progreso\""))
}

func TestGender(t *testing.T) {
	tests := []struct {
		input string
		want  model.Gender
	}{
		{"MASCULINO", model.GenderMale},
		{"hombre", model.GenderMale},
		{"M", model.GenderMale},
		{"Femenino", model.GenderFemale},
		{"MUJER", model.GenderFemale},
		{"F", model.GenderFemale},
		{"X", model.GenderUnspecified},
		{"", model.GenderUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Gender(tt.input))
		})
	}
}

func TestCropCode(t *testing.T) {
	assert.Equal(t, "MAIZ", CropCode("maíz"))
	assert.Equal(t, "MAIZ", CropCode("MAIZ"))
	assert.Equal(t, "SOYA", CropCode("soja"))
	assert.Equal(t, "PLATANO", CropCode("Plátano"))
	assert.Equal(t, "ARROZ", CropCode(" arroz "))
	assert.Equal(t, "OTRO", CropCode("QUINUA"))
}

func TestPhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0991234567", "+593991234567"},
		{"099-123-4567", "+593991234567"},
		{"991234567", "+593991234567"},
		{"052345", "052345"},
		{"abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.input))
		})
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "RECEIVED", Status(nil, model.Str("Entregado")))
	assert.Equal(t, "PENDING", Status(model.Str("en proceso"), model.Str("RECIBIDO")))
	assert.Equal(t, "CANCELLED", Status(nil, model.Str("ANULADO")))
	assert.Equal(t, "FALTA FIRMA", Status(nil, model.Str("falta firma")))
	assert.Equal(t, NoStatus, Status(nil, nil))
	assert.Equal(t, NoStatus, Status(model.Str(""), model.Str("  ")))
}

func TestRepairCoordinate(t *testing.T) {
	v, ok := RepairCoordinate(62345678976543)
	require.True(t, ok)
	assert.InDelta(t, 623456.78, v, 0.0001)

	v, ok = RepairCoordinate(-62345678976543)
	require.True(t, ok)
	assert.InDelta(t, -623456.78, v, 0.0001)

	// Valid northing above ten million is left alone.
	v, ok = RepairCoordinate(10050000)
	assert.False(t, ok)
	assert.Equal(t, 10050000.0, v)

	v, ok = RepairCoordinate(-79.5)
	assert.False(t, ok)
	assert.Equal(t, -79.5, v)
}

func TestStandardize(t *testing.T) {
	recs := []*model.Record{
		{
			GenderText: model.Str("MUJER"),
			Phone:      model.Str("0987654321"),
			CropName:   model.Str("Maíz"),
			Canton:     model.Str("  Quevedo "),
			Parish:     model.Str("San  Camilo"),
			Locality:   model.Str("Recinto   La Unión"),
			CoordX:     model.Float(62345678976543),
			CoordY:     model.Float(9876543),
		},
		{
			Phone:    model.Str("---"),
			CropName: model.Str("Quinua"),
		},
	}

	s := New()
	s.Standardize(recs)

	r := recs[0]
	require.NotNil(t, r.Gender)
	assert.Equal(t, model.GenderFemale, *r.Gender)
	assert.Equal(t, "+593987654321", *r.Phone)
	assert.Equal(t, "MAIZ", *r.CropCode)
	assert.Equal(t, "QUEVEDO", *r.Canton)
	assert.Equal(t, "SAN CAMILO", *r.Parish)
	assert.Equal(t, "RECINTO LA UNION", *r.Locality)
	assert.InDelta(t, 623456.78, *r.CoordX, 0.0001)
	assert.InDelta(t, 9876543, *r.CoordY, 0.0001)
	assert.Equal(t, NoStatus, *r.Status)

	r = recs[1]
	assert.Nil(t, r.Gender)
	assert.Nil(t, r.Phone)
	assert.Equal(t, "OTRO", *r.CropCode)

	st := s.Stats()
	assert.Equal(t, 1, st.CoordinatesRepaired)
	assert.Equal(t, 1, st.UnmappedCrops)
	assert.Equal(t, 1, st.PhonesFormatted)
}
