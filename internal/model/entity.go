package model

import "time"

// OrgType is inferred from an organization name.
type OrgType string

const (
	OrgAssociation OrgType = "ASSOCIATION"
	OrgCooperative OrgType = "COOPERATIVE"
	OrgBoard       OrgType = "BOARD"
	OrgCenter      OrgType = "CENTER"
	OrgGroup       OrgType = "GROUP"
	OrgOther       OrgType = "OTHER"
)

// Person is a beneficiary. IdentityKey is "ID:<number>" or "NAME:<normalized name>".
type Person struct {
	ID          int64   `json:"id"`
	IdentityKey string  `json:"identity_key"`
	IDNumber    *string `json:"id_number,omitempty"`
	FullName    string  `json:"full_name"`
	Phone       *string `json:"phone,omitempty"`
	Gender      *Gender `json:"gender,omitempty"`
	Age         *int    `json:"age,omitempty"`
}

// LocationKey is the natural key of a Location. Missing parts are "".
type LocationKey struct {
	Canton   string
	Parish   string
	Locality string
}

// Location is a canton/parish/locality triple with optional coordinates.
type Location struct {
	ID  int64       `json:"id"`
	Key LocationKey `json:"key"`
	X   *float64    `json:"x,omitempty"`
	Y   *float64    `json:"y,omitempty"`
}

// Organization is a farmer association, cooperative or similar group.
type Organization struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Type OrgType `json:"type"`
}

// Benefit is one disbursement to one person.
type Benefit struct {
	ID             int64       `json:"id"`
	NaturalKey     string      `json:"natural_key"`
	Subsidy        SubsidyType `json:"subsidy"`
	StagingID      int64       `json:"staging_id"`
	PersonID       int64       `json:"person_id"`
	LocationID     *int64      `json:"location_id,omitempty"`
	OrganizationID *int64      `json:"organization_id,omitempty"`
	CropCode       *string     `json:"crop_code,omitempty"`
	HectaresTotal  *float64    `json:"hectares_total,omitempty"`
	Hectares       *float64    `json:"hectares_benefited,omitempty"`
	Quantity       *float64    `json:"quantity,omitempty"`
	UnitPrice      *float64    `json:"unit_price,omitempty"`
	Amount         *float64    `json:"amount,omitempty"`
	DeliveryDate   *time.Time  `json:"delivery_date,omitempty"`
	Year           *int        `json:"year,omitempty"`
	ActNumber      *string     `json:"act_number,omitempty"`
	OriginalID     *string     `json:"original_id_number,omitempty"`
	CorrectedID    *string     `json:"corrected_id_number,omitempty"`
	Valid          bool        `json:"valid"`
	Status         *string     `json:"status,omitempty"`
	Detail         []byte      `json:"-"`
}

// Crop is a read-only crop catalog entry.
type Crop struct {
	Code           string `json:"code" yaml:"code"`
	CommonName     string `json:"common_name" yaml:"common_name"`
	ScientificName string `json:"scientific_name" yaml:"scientific_name"`
	Family         string `json:"family" yaml:"family"`
	Genus          string `json:"genus" yaml:"genus"`
	CycleType      string `json:"cycle_type" yaml:"cycle_type"`
	CycleDays      int    `json:"cycle_days" yaml:"cycle_days"`
	Classification string `json:"classification" yaml:"classification"`
	MainUse        string `json:"main_use" yaml:"main_use"`
	Seasonality    string `json:"seasonality,omitempty" yaml:"seasonality"`
	WaterNeed      string `json:"water_need,omitempty" yaml:"water_need"`
}
