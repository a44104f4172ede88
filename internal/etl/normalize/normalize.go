// Package normalize decomposes a validated batch into deduplicated entity
// candidates. Candidates reference each other by natural key; the loader
// resolves keys to database ids.
package normalize

import (
	"strings"
	"time"

	"github.com/etl-productivo/subsidy-etl/internal/etl/geo"
	"github.com/etl-productivo/subsidy-etl/internal/etl/standardize"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// PersonCandidate is a Person keyed by identity key.
type PersonCandidate struct {
	Key      string
	IDNumber *string
	FullName string
	Phone    *string
	Gender   *model.Gender
	Age      *int
}

// LocationCandidate carries coordinates only when they fall inside the
// plausible region.
type LocationCandidate struct {
	Key model.LocationKey
	X   *float64
	Y   *float64
}

// OrganizationCandidate is keyed by its normalized name.
type OrganizationCandidate struct {
	Name string
	Type model.OrgType
}

// Membership links a person to an organization.
type Membership struct {
	PersonKey string
	OrgName   string
}

// BenefitCandidate is one disbursement with its references as natural keys.
type BenefitCandidate struct {
	StagingID   int64
	Subsidy     model.SubsidyType
	NaturalKey  string
	PersonKey   string
	LocationKey *model.LocationKey
	OrgName     *string

	CropCode      *string
	HectaresTotal *float64
	Hectares      *float64
	Quantity      *float64
	UnitPrice     *float64
	Amount        *float64
	DeliveryDate  *time.Time
	Year          *int
	ActNumber     *string
	OriginalID    *string
	CorrectedID   *string
	Status        *string
	Detail        map[string]any
}

// Entities is the normalizer's output for one batch.
type Entities struct {
	Persons       []PersonCandidate
	Locations     []LocationCandidate
	Organizations []OrganizationCandidate
	Memberships   []Membership
	Benefits      []BenefitCandidate
	// NoIdentity counts valid rows that had neither an ID nor a name.
	NoIdentity int
}

// Normalizer holds the dedup indexes for a single batch. Create a new one
// per batch.
type Normalizer struct {
	persons   map[string]int
	locations map[model.LocationKey]int
	orgs      map[string]int
	members   map[Membership]bool
	out       Entities
}

// New returns an empty Normalizer.
func New() *Normalizer {
	return &Normalizer{
		persons:   make(map[string]int),
		locations: make(map[model.LocationKey]int),
		orgs:      make(map[string]int),
		members:   make(map[Membership]bool),
	}
}

// Normalize makes a single pass over recs. Invalid records are skipped.
func (n *Normalizer) Normalize(recs []*model.Record) Entities {
	for _, r := range recs {
		if !r.Valid {
			continue
		}
		n.add(r)
	}
	return n.out
}

func (n *Normalizer) add(r *model.Record) {
	personKey, ok := PersonKey(r)
	if !ok {
		n.out.NoIdentity++
		return
	}
	n.addPerson(personKey, r)

	var locKey *model.LocationKey
	if k, ok := LocationKeyOf(r); ok {
		n.addLocation(k, r)
		locKey = &k
	}

	var orgName *string
	if r.Organization != nil {
		name := standardize.NameKey(*r.Organization)
		if name != "" {
			n.addOrganization(name)
			orgName = &name
			m := Membership{PersonKey: personKey, OrgName: name}
			if !n.members[m] {
				n.members[m] = true
				n.out.Memberships = append(n.out.Memberships, m)
			}
		}
	}

	n.out.Benefits = append(n.out.Benefits, BenefitCandidate{
		StagingID:     r.StagingID,
		Subsidy:       r.Subsidy,
		NaturalKey:    BenefitKey(r.Subsidy, personKey, r),
		PersonKey:     personKey,
		LocationKey:   locKey,
		OrgName:       orgName,
		CropCode:      r.CropCode,
		HectaresTotal: r.HectaresTotal,
		Hectares:      r.HectaresBenefited,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		Amount:        r.Amount,
		DeliveryDate:  r.DeliveryDate,
		Year:          r.Year,
		ActNumber:     r.ActNumber,
		OriginalID:    r.IDNumber,
		CorrectedID:   r.CorrectedID,
		Status:        r.Status,
		Detail:        detail(r),
	})
}

func (n *Normalizer) addPerson(key string, r *model.Record) {
	if i, ok := n.persons[key]; ok {
		// Later sightings in the same batch refresh mutable attributes.
		p := &n.out.Persons[i]
		if r.Phone != nil {
			p.Phone = r.Phone
		}
		if r.Gender != nil {
			p.Gender = r.Gender
		}
		if r.Age != nil {
			p.Age = r.Age
		}
		if p.FullName == "" && r.FullName != nil {
			p.FullName = *r.FullName
		}
		return
	}

	p := PersonCandidate{
		Key:      key,
		IDNumber: r.CorrectedID,
		Phone:    r.Phone,
		Gender:   r.Gender,
		Age:      r.Age,
	}
	if r.FullName != nil {
		p.FullName = standardize.Fold(*r.FullName)
	}
	n.persons[key] = len(n.out.Persons)
	n.out.Persons = append(n.out.Persons, p)
}

func (n *Normalizer) addLocation(key model.LocationKey, r *model.Record) {
	x, y := plausibleCoords(r.CoordX, r.CoordY)
	if i, ok := n.locations[key]; ok {
		l := &n.out.Locations[i]
		if l.X == nil && l.Y == nil && x != nil {
			l.X, l.Y = x, y
		}
		return
	}
	n.locations[key] = len(n.out.Locations)
	n.out.Locations = append(n.out.Locations, LocationCandidate{Key: key, X: x, Y: y})
}

func (n *Normalizer) addOrganization(name string) {
	if _, ok := n.orgs[name]; ok {
		return
	}
	n.orgs[name] = len(n.out.Organizations)
	n.out.Organizations = append(n.out.Organizations, OrganizationCandidate{Name: name, Type: InferOrgType(name)})
}

// PersonKey returns "ID:<number>" when the validator accepted an ID, else
// "NAME:<normalized name>". ok is false when neither exists.
func PersonKey(r *model.Record) (string, bool) {
	if r.CorrectedID != nil && *r.CorrectedID != "" {
		return "ID:" + *r.CorrectedID, true
	}
	if r.FullName != nil {
		if name := standardize.NameKey(*r.FullName); name != "" {
			return "NAME:" + name, true
		}
	}
	return "", false
}

// LocationKeyOf returns the (canton, parish, locality) key; canton is required.
func LocationKeyOf(r *model.Record) (model.LocationKey, bool) {
	if r.Canton == nil || *r.Canton == "" {
		return model.LocationKey{}, false
	}
	return model.LocationKey{
		Canton:   *r.Canton,
		Parish:   model.Deref(r.Parish),
		Locality: model.Deref(r.Locality),
	}, true
}

// BenefitKey identifies a disbursement across reloads of the same sheet.
func BenefitKey(subsidy model.SubsidyType, personKey string, r *model.Record) string {
	date := ""
	if r.DeliveryDate != nil {
		date = r.DeliveryDate.Format("2006-01-02")
	}
	return strings.Join([]string{
		string(subsidy), personKey, date, model.Deref(r.ActNumber), model.Deref(r.CropCode),
	}, "|")
}

// InferOrgType guesses the organization type from name substrings.
func InferOrgType(name string) model.OrgType {
	n := standardize.Fold(name)
	switch {
	case strings.Contains(n, "ASOC"):
		return model.OrgAssociation
	case strings.Contains(n, "COOP"):
		return model.OrgCooperative
	case strings.Contains(n, "JUNTA"):
		return model.OrgBoard
	case strings.Contains(n, "CENTRO"):
		return model.OrgCenter
	case strings.Contains(n, "GRUPO"):
		return model.OrgGroup
	}
	return model.OrgOther
}

func plausibleCoords(x, y *float64) (*float64, *float64) {
	if x == nil || y == nil || geo.SRID(*x, *y) == 0 {
		return nil, nil
	}
	return x, y
}

// detail collects the type-specific and enrichment fields stored as JSON.
func detail(r *model.Record) map[string]any {
	d := make(map[string]any)
	put := func(k string, v *string) {
		if v != nil {
			d[k] = *v
		}
	}
	put("variety", r.Variety)
	put("crop_name", r.CropName)
	put("delivery_place", r.DeliveryPlace)
	put("responsible", r.Responsible)
	put("responsible_id", r.ResponsibleID)
	put("observation", r.Observation)
	put("nitrogen_fertilizer", r.NitrogenFertilizer)
	put("npk_fertilizer", r.NPKFertilizer)
	put("organic_foliar", r.OrganicFoliar)
	put("category", r.Category)
	if r.DuplicateAct {
		d["duplicate_act"] = true
	}
	if r.MissingRequired {
		d["missing_required"] = true
	}
	if c := r.CropInfo; c != nil {
		d["crop"] = map[string]any{
			"scientific_name": c.ScientificName,
			"family":          c.Family,
			"cycle_type":      c.CycleType,
			"classification":  c.Classification,
		}
	}
	if len(d) == 0 {
		return nil
	}
	return d
}
