package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

func validRecord(id int64) *model.Record {
	return &model.Record{
		StagingID: id,
		Subsidy:   model.SubsidySeeds,
		Valid:     true,
	}
}

func TestNormalize_SkipsInvalid(t *testing.T) {
	r := validRecord(1)
	r.Valid = false
	r.FullName = model.Str("JUAN PEREZ")

	ents := New().Normalize([]*model.Record{r})
	assert.Empty(t, ents.Persons)
	assert.Empty(t, ents.Benefits)
}

func TestNormalize_RepairedIDScenario(t *testing.T) {
	r := validRecord(7)
	r.IDNumber = model.Str("171234567")
	r.CorrectedID = model.Str("0171234567")
	r.FullName = model.Str("Juan  Pérez")
	r.Canton = model.Str("QUITO")

	ents := New().Normalize([]*model.Record{r})

	require.Len(t, ents.Persons, 1)
	assert.Equal(t, "ID:0171234567", ents.Persons[0].Key)
	assert.Equal(t, "0171234567", *ents.Persons[0].IDNumber)
	assert.Equal(t, "JUAN PEREZ", ents.Persons[0].FullName)

	require.Len(t, ents.Benefits, 1)
	b := ents.Benefits[0]
	assert.Equal(t, int64(7), b.StagingID)
	assert.Equal(t, "ID:0171234567", b.PersonKey)
	assert.Equal(t, "171234567", *b.OriginalID)
	assert.Equal(t, "0171234567", *b.CorrectedID)
	require.NotNil(t, b.LocationKey)
	assert.Equal(t, model.LocationKey{Canton: "QUITO"}, *b.LocationKey)
}

func TestNormalize_DedupsPersons(t *testing.T) {
	a := validRecord(1)
	a.CorrectedID = model.Str("1710034065")
	a.FullName = model.Str("ANA LOPEZ")
	a.Phone = model.Str("+593991234567")

	b := validRecord(2)
	b.CorrectedID = model.Str("1710034065")
	b.FullName = model.Str("ANA LOPEZ")
	b.Age = model.Int(40)

	c := validRecord(3)
	c.FullName = model.Str("ana   lópez")

	ents := New().Normalize([]*model.Record{a, b, c})

	require.Len(t, ents.Persons, 2)
	assert.Equal(t, "ID:1710034065", ents.Persons[0].Key)
	assert.Equal(t, "+593991234567", *ents.Persons[0].Phone)
	assert.Equal(t, 40, *ents.Persons[0].Age)
	assert.Equal(t, "NAME:ANA LOPEZ", ents.Persons[1].Key)
	assert.Len(t, ents.Benefits, 3)
}

func TestNormalize_NoIdentity(t *testing.T) {
	r := validRecord(1)
	r.Canton = model.Str("DAULE")

	ents := New().Normalize([]*model.Record{r})
	assert.Equal(t, 1, ents.NoIdentity)
	assert.Empty(t, ents.Benefits)
	assert.Empty(t, ents.Locations)
}

func TestNormalize_LocationCoordinates(t *testing.T) {
	a := validRecord(1)
	a.FullName = model.Str("A")
	a.Canton = model.Str("QUITO")
	a.Parish = model.Str("CENTRO")
	a.Locality = model.Str("BARRIO A")
	a.CoordX = model.Float(123)
	a.CoordY = model.Float(-2)

	b := validRecord(2)
	b.FullName = model.Str("B")
	b.Canton = model.Str("QUITO")
	b.Parish = model.Str("CENTRO")
	b.Locality = model.Str("BARRIO A")
	b.CoordX = model.Float(500000)
	b.CoordY = model.Float(9800000)

	c := validRecord(3)
	c.FullName = model.Str("C")
	c.Canton = model.Str("QUITO")
	c.Parish = model.Str("CENTRO")
	c.Locality = model.Str("BARRIO A")
	c.CoordX = model.Float(-79.5)
	c.CoordY = model.Float(-1.2)

	ents := New().Normalize([]*model.Record{a, b, c})

	require.Len(t, ents.Locations, 1)
	loc := ents.Locations[0]
	assert.Equal(t, model.LocationKey{Canton: "QUITO", Parish: "CENTRO", Locality: "BARRIO A"}, loc.Key)
	require.NotNil(t, loc.X)
	assert.Equal(t, 500000.0, *loc.X)
	assert.Equal(t, 9800000.0, *loc.Y)
}

func TestNormalize_Organizations(t *testing.T) {
	a := validRecord(1)
	a.FullName = model.Str("A")
	a.Organization = model.Str("Asociación  San Juan")

	b := validRecord(2)
	b.FullName = model.Str("B")
	b.Organization = model.Str("ASOCIACION SAN JUAN")

	ents := New().Normalize([]*model.Record{a, b})

	require.Len(t, ents.Organizations, 1)
	assert.Equal(t, "ASOCIACION SAN JUAN", ents.Organizations[0].Name)
	assert.Equal(t, model.OrgAssociation, ents.Organizations[0].Type)
	assert.Len(t, ents.Memberships, 2)
	assert.Equal(t, "ASOCIACION SAN JUAN", *ents.Benefits[1].OrgName)
}

func TestInferOrgType(t *testing.T) {
	tests := []struct {
		name string
		want model.OrgType
	}{
		{"ASOC. AGRICOLA EL PROGRESO", model.OrgAssociation},
		{"Cooperativa Las Palmas", model.OrgCooperative},
		{"JUNTA DE REGANTES", model.OrgBoard},
		{"Centro Agrícola Daule", model.OrgCenter},
		{"GRUPO LOS RIOS", model.OrgGroup},
		{"COMUNA SAN PEDRO", model.OrgOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferOrgType(tt.name))
		})
	}
}

func TestBenefitKey(t *testing.T) {
	r := validRecord(1)
	d := time.Date(2023, 5, 4, 0, 0, 0, 0, time.UTC)
	r.DeliveryDate = &d
	r.ActNumber = model.Str("A-12")
	r.CropCode = model.Str("ARROZ")

	assert.Equal(t, "seeds|ID:1|2023-05-04|A-12|ARROZ", BenefitKey(model.SubsidySeeds, "ID:1", r))
	assert.Equal(t, "fertilizer|NAME:X|||", BenefitKey(model.SubsidyFertilizer, "NAME:X", validRecord(2)))
}

func TestDetail(t *testing.T) {
	r := validRecord(1)
	assert.Nil(t, detail(r))

	r.Variety = model.Str("INIAP 14")
	r.DuplicateAct = true
	r.CropInfo = &model.Crop{Code: "ARROZ", Family: "Poaceae"}
	d := detail(r)
	assert.Equal(t, "INIAP 14", d["variety"])
	assert.Equal(t, true, d["duplicate_act"])
	assert.Equal(t, "Poaceae", d["crop"].(map[string]any)["family"])
}
