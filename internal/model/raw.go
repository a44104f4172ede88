package model

// RawColumns lists the staging text columns in COPY/SELECT order. Every
// staging table carries all of them; a sheet that lacks a column leaves it null.
var RawColumns = []string{
	"act_number", "organization", "full_name", "id_number", "phone", "gender", "age",
	"canton", "parish", "locality", "coord_x", "coord_y",
	"hectares_total", "hectares_benefited", "quantity", "variety", "crop",
	"delivery_date", "delivery_place", "responsible", "responsible_id",
	"unit_price", "amount", "observation", "status", "year",
	"nitrogen_fertilizer", "npk_fertilizer", "organic_foliar", "category",
}

// RawRow is one staging record exactly as extracted: every cell is text or null.
type RawRow struct {
	ID int64

	ActNumber         *string
	Organization      *string
	FullName          *string
	IDNumber          *string
	Phone             *string
	Gender            *string
	Age               *string
	Canton            *string
	Parish            *string
	Locality          *string
	CoordX            *string
	CoordY            *string
	HectaresTotal     *string
	HectaresBenefited *string
	Quantity          *string
	Variety           *string
	Crop              *string
	DeliveryDate      *string
	DeliveryPlace     *string
	Responsible       *string
	ResponsibleID     *string
	UnitPrice         *string
	Amount            *string
	Observation       *string
	Status            *string
	Year              *string

	NitrogenFertilizer *string
	NPKFertilizer      *string
	OrganicFoliar      *string
	Category           *string
}

// Field returns the address of the cell backing a RawColumns name, or nil.
func (r *RawRow) Field(name string) **string {
	switch name {
	case "act_number":
		return &r.ActNumber
	case "organization":
		return &r.Organization
	case "full_name":
		return &r.FullName
	case "id_number":
		return &r.IDNumber
	case "phone":
		return &r.Phone
	case "gender":
		return &r.Gender
	case "age":
		return &r.Age
	case "canton":
		return &r.Canton
	case "parish":
		return &r.Parish
	case "locality":
		return &r.Locality
	case "coord_x":
		return &r.CoordX
	case "coord_y":
		return &r.CoordY
	case "hectares_total":
		return &r.HectaresTotal
	case "hectares_benefited":
		return &r.HectaresBenefited
	case "quantity":
		return &r.Quantity
	case "variety":
		return &r.Variety
	case "crop":
		return &r.Crop
	case "delivery_date":
		return &r.DeliveryDate
	case "delivery_place":
		return &r.DeliveryPlace
	case "responsible":
		return &r.Responsible
	case "responsible_id":
		return &r.ResponsibleID
	case "unit_price":
		return &r.UnitPrice
	case "amount":
		return &r.Amount
	case "observation":
		return &r.Observation
	case "status":
		return &r.Status
	case "year":
		return &r.Year
	case "nitrogen_fertilizer":
		return &r.NitrogenFertilizer
	case "npk_fertilizer":
		return &r.NPKFertilizer
	case "organic_foliar":
		return &r.OrganicFoliar
	case "category":
		return &r.Category
	}
	return nil
}

// Set stores v under the named column. Unknown names are ignored.
func (r *RawRow) Set(name string, v *string) {
	if f := r.Field(name); f != nil {
		*f = v
	}
}

// Values returns the cells in RawColumns order for COPY.
func (r *RawRow) Values() []any {
	out := make([]any, len(RawColumns))
	for i, c := range RawColumns {
		out[i] = *r.Field(c)
	}
	return out
}

// ScanTargets returns id followed by the cell addresses in RawColumns order.
func (r *RawRow) ScanTargets() []any {
	out := make([]any, 0, len(RawColumns)+1)
	out = append(out, &r.ID)
	for _, c := range RawColumns {
		out = append(out, r.Field(c))
	}
	return out
}

// Empty reports whether every cell is null or blank.
func (r *RawRow) Empty() bool {
	for _, c := range RawColumns {
		if v := *r.Field(c); v != nil && *v != "" {
			return false
		}
	}
	return true
}
