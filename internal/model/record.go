package model

import "time"

// Gender is the canonical gender enumeration.
type Gender string

const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderUnspecified Gender = "UNSPECIFIED"
)

// Crop codes produced by the standardizer.
const (
	CropRice     = "ARROZ"
	CropCorn     = "MAIZ"
	CropSoy      = "SOYA"
	CropCocoa    = "CACAO"
	CropBanana   = "BANANO"
	CropPlantain = "PLATANO"
	CropOther    = "OTRO"
)

// Record is a typed staging row as it moves through clean, standardize,
// validate and enrich. A nil pointer always means "no value".
type Record struct {
	StagingID int64
	Subsidy   SubsidyType

	ActNumber    *string
	Organization *string
	FullName     *string
	IDNumber     *string
	Phone        *string
	GenderText   *string
	Gender       *Gender
	Age          *int

	Canton   *string
	Parish   *string
	Locality *string
	CoordX   *float64
	CoordY   *float64

	HectaresTotal     *float64
	HectaresBenefited *float64
	Quantity          *float64
	UnitPrice         *float64
	Amount            *float64

	Variety  *string
	CropName *string
	CropCode *string

	DeliveryDate  *time.Time
	DeliveryPlace *string
	Responsible   *string
	ResponsibleID *string
	Observation   *string
	Status        *string
	Year          *int

	NitrogenFertilizer *string
	NPKFertilizer      *string
	OrganicFoliar      *string
	Category           *string

	// Cleaner annotations.
	MissingRequired bool
	DuplicateAct    bool

	// Validator output. CorrectedID is the ID accepted by the validator,
	// possibly repaired; nil when the row has no usable ID.
	Valid       bool
	Errors      []string
	CorrectedID *string

	// Enricher output.
	CropInfo *Crop
}

// AddError records a violation and marks the record invalid.
func (r *Record) AddError(code string) {
	r.Valid = false
	r.Errors = append(r.Errors, code)
}

// ErrorText joins the violation codes with "; ", or returns nil when there are none.
func (r *Record) ErrorText() *string {
	if len(r.Errors) == 0 {
		return nil
	}
	s := r.Errors[0]
	for _, e := range r.Errors[1:] {
		s += "; " + e
	}
	return &s
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
