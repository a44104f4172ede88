// Package load writes normalized entities into the ops schema. Every
// candidate runs inside its own savepoint so one bad row never aborts the
// surrounding batch transaction.
package load

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/etl-productivo/subsidy-etl/internal/db"
	"github.com/etl-productivo/subsidy-etl/internal/etl/geo"
	"github.com/etl-productivo/subsidy-etl/internal/etl/normalize"
	"github.com/etl-productivo/subsidy-etl/internal/model"
)

const savepoint = "load_candidate"

const (
	insertPersonSQL = `INSERT INTO ops.person (identity_key, id_number, full_name, phone, gender, age)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (identity_key) DO NOTHING
RETURNING id`
	selectPersonSQL = `SELECT id FROM ops.person WHERE identity_key = $1`
	updatePersonSQL = `UPDATE ops.person SET
	phone = COALESCE($2, phone),
	gender = COALESCE($3, gender),
	age = COALESCE($4, age),
	updated_at = now()
WHERE id = $1`

	insertLocationSQL = `INSERT INTO ops.location (canton, parish, locality, coord_x, coord_y, srid, geom)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (canton, parish, locality) DO NOTHING
RETURNING id`
	selectLocationSQL = `SELECT id, coord_x IS NOT NULL FROM ops.location
WHERE canton = $1 AND parish = $2 AND locality = $3`
	fillLocationSQL = `UPDATE ops.location SET coord_x = $2, coord_y = $3, srid = $4, geom = $5, updated_at = now()
WHERE id = $1 AND coord_x IS NULL`

	insertOrganizationSQL = `INSERT INTO ops.organization (name, org_type)
VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING
RETURNING id`
	selectOrganizationSQL = `SELECT id FROM ops.organization WHERE name = $1`

	insertMembershipSQL = `INSERT INTO ops.person_organization (person_id, organization_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`

	insertBenefitSQL = `INSERT INTO ops.benefit (
	natural_key, subsidy_type, staging_id, person_id, location_id, organization_id,
	crop_code, hectares_total, hectares_benefited, quantity, unit_price, amount,
	delivery_date, year, act_number, original_id_number, corrected_id_number,
	valid, status, detail
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
ON CONFLICT (natural_key) DO NOTHING`
)

// Result is the outcome of loading one batch.
type Result struct {
	Stats Stats
	// Failures maps staging ids whose benefit could not be written to the
	// error text recorded on the staging row.
	Failures map[int64]string
}

// Loader upserts entity candidates by natural key, resolving ids through
// the session cache before touching the database.
type Loader struct {
	cache *Cache
	log   *zap.Logger
}

// New returns a Loader bound to a run's session cache.
func New(cache *Cache) *Loader {
	if cache == nil {
		cache = NewCache()
	}
	return &Loader{
		cache: cache,
		log:   zap.L().With(zap.String("component", "load")),
	}
}

// Cache returns the loader's session cache.
func (l *Loader) Cache() *Cache { return l.cache }

// Load writes ents through q, which must be an open transaction. Entities
// are written parents first: persons, locations, organizations, memberships,
// then benefits. A returned error means the transaction is unusable and the
// batch must be rolled back.
func (l *Loader) Load(ctx context.Context, q db.Querier, ents normalize.Entities) (Result, error) {
	res := Result{Failures: make(map[int64]string)}
	s := &res.Stats

	for _, p := range ents.Persons {
		err := l.isolate(ctx, q, func() error { return l.person(ctx, q, p, s) })
		if err := l.candidateErr(err, &s.PersonErrors, "person", p.Key); err != nil {
			return res, err
		}
	}

	for _, loc := range ents.Locations {
		err := l.isolate(ctx, q, func() error { return l.location(ctx, q, loc, s) })
		if err := l.candidateErr(err, &s.LocationErrors, "location", loc.Key.Canton+"/"+loc.Key.Parish+"/"+loc.Key.Locality); err != nil {
			return res, err
		}
	}

	for _, o := range ents.Organizations {
		err := l.isolate(ctx, q, func() error { return l.organization(ctx, q, o, s) })
		if err := l.candidateErr(err, &s.OrganizationErrors, "organization", o.Name); err != nil {
			return res, err
		}
	}

	for _, m := range ents.Memberships {
		err := l.isolate(ctx, q, func() error { return l.membership(ctx, q, m, s) })
		if err := l.candidateErr(err, &s.MembershipErrors, "membership", m.PersonKey+"@"+m.OrgName); err != nil {
			return res, err
		}
	}

	for _, b := range ents.Benefits {
		err := l.isolate(ctx, q, func() error { return l.benefit(ctx, q, b, s) })
		var ce *candidateError
		if errors.As(err, &ce) {
			res.Failures[b.StagingID] = "load: " + ce.err.Error()
		}
		if err := l.candidateErr(err, &s.BenefitErrors, "benefit", b.NaturalKey); err != nil {
			return res, err
		}
	}

	return res, nil
}

// candidateError marks a failure that was rolled back to the savepoint.
type candidateError struct{ err error }

func (e *candidateError) Error() string { return e.err.Error() }
func (e *candidateError) Unwrap() error { return e.err }

// isolate runs fn inside a savepoint. A failing fn is rolled back and
// reported as *candidateError; savepoint failures are returned as-is.
func (l *Loader) isolate(ctx context.Context, q db.Querier, fn func() error) error {
	if _, err := q.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
		return eris.Wrap(err, "load: savepoint")
	}
	if err := fn(); err != nil {
		if _, rbErr := q.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return eris.Wrap(rbErr, "load: rollback to savepoint")
		}
		return &candidateError{err: err}
	}
	if _, err := q.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return eris.Wrap(err, "load: release savepoint")
	}
	return nil
}

// candidateErr counts and logs a rolled-back candidate and passes through
// anything fatal.
func (l *Loader) candidateErr(err error, counter *int, entity, key string) error {
	if err == nil {
		return nil
	}
	var ce *candidateError
	if errors.As(err, &ce) {
		*counter++
		l.log.Warn("candidate failed",
			zap.String("entity", entity),
			zap.String("key", key),
			zap.Error(ce.err),
		)
		return nil
	}
	return err
}

func (l *Loader) person(ctx context.Context, q db.Querier, p normalize.PersonCandidate, s *Stats) error {
	if id, ok := l.cache.Person(p.Key); ok {
		return l.refreshPerson(ctx, q, id, p, s)
	}

	var id int64
	err := q.QueryRow(ctx, insertPersonSQL,
		p.Key, p.IDNumber, p.FullName, p.Phone, genderText(p.Gender), p.Age,
	).Scan(&id)
	switch {
	case err == nil:
		s.PersonsInserted++
		l.cache.persons[p.Key] = id
		return nil
	case !db.IsNoRows(err):
		return eris.Wrapf(err, "insert person %s", p.Key)
	}

	if err := q.QueryRow(ctx, selectPersonSQL, p.Key).Scan(&id); err != nil {
		return eris.Wrapf(err, "lookup person %s", p.Key)
	}
	if err := l.refreshPerson(ctx, q, id, p, s); err != nil {
		return err
	}
	l.cache.persons[p.Key] = id
	return nil
}

// refreshPerson overwrites the mutable attributes the candidate carries.
func (l *Loader) refreshPerson(ctx context.Context, q db.Querier, id int64, p normalize.PersonCandidate, s *Stats) error {
	if p.Phone == nil && p.Gender == nil && p.Age == nil {
		return nil
	}
	if _, err := q.Exec(ctx, updatePersonSQL, id, p.Phone, genderText(p.Gender), p.Age); err != nil {
		return eris.Wrapf(err, "update person %d", id)
	}
	s.PersonsUpdated++
	return nil
}

func (l *Loader) location(ctx context.Context, q db.Querier, c normalize.LocationCandidate, s *Stats) error {
	pt, err := newPoint(c)
	if err != nil {
		return err
	}

	if e, ok := l.cache.locations[c.Key]; ok {
		if e.hasCoords || pt == nil {
			return nil
		}
		if err := l.fillLocation(ctx, q, e.id, pt, s); err != nil {
			return err
		}
		l.cache.locations[c.Key] = locationEntry{id: e.id, hasCoords: true}
		return nil
	}

	var id int64
	args := []any{c.Key.Canton, c.Key.Parish, c.Key.Locality, nil, nil, nil, nil}
	if pt != nil {
		args[3], args[4], args[5], args[6] = pt.x, pt.y, pt.srid, pt.ewkb
	}
	err = q.QueryRow(ctx, insertLocationSQL, args...).Scan(&id)
	switch {
	case err == nil:
		s.LocationsInserted++
		l.cache.locations[c.Key] = locationEntry{id: id, hasCoords: pt != nil}
		return nil
	case !db.IsNoRows(err):
		return eris.Wrapf(err, "insert location %s", c.Key.Canton)
	}

	var hasCoords bool
	if err := q.QueryRow(ctx, selectLocationSQL, c.Key.Canton, c.Key.Parish, c.Key.Locality).Scan(&id, &hasCoords); err != nil {
		return eris.Wrapf(err, "lookup location %s", c.Key.Canton)
	}
	if !hasCoords && pt != nil {
		if err := l.fillLocation(ctx, q, id, pt, s); err != nil {
			return err
		}
		hasCoords = true
	}
	l.cache.locations[c.Key] = locationEntry{id: id, hasCoords: hasCoords}
	return nil
}

// fillLocation sets coordinates only where none are stored yet.
func (l *Loader) fillLocation(ctx context.Context, q db.Querier, id int64, pt *point, s *Stats) error {
	tag, err := q.Exec(ctx, fillLocationSQL, id, pt.x, pt.y, pt.srid, pt.ewkb)
	if err != nil {
		return eris.Wrapf(err, "fill location %d", id)
	}
	if tag.RowsAffected() > 0 {
		s.LocationsUpdated++
	}
	return nil
}

func (l *Loader) organization(ctx context.Context, q db.Querier, o normalize.OrganizationCandidate, s *Stats) error {
	if _, ok := l.cache.organizations[o.Name]; ok {
		return nil
	}

	var id int64
	err := q.QueryRow(ctx, insertOrganizationSQL, o.Name, string(o.Type)).Scan(&id)
	switch {
	case err == nil:
		s.OrganizationsInserted++
	case db.IsNoRows(err):
		if err := q.QueryRow(ctx, selectOrganizationSQL, o.Name).Scan(&id); err != nil {
			return eris.Wrapf(err, "lookup organization %s", o.Name)
		}
	default:
		return eris.Wrapf(err, "insert organization %s", o.Name)
	}
	l.cache.organizations[o.Name] = id
	return nil
}

func (l *Loader) membership(ctx context.Context, q db.Querier, m normalize.Membership, s *Stats) error {
	personID, ok := l.cache.Person(m.PersonKey)
	if !ok {
		return eris.Errorf("person %s not resolved", m.PersonKey)
	}
	orgID, ok := l.cache.Organization(m.OrgName)
	if !ok {
		return eris.Errorf("organization %s not resolved", m.OrgName)
	}
	tag, err := q.Exec(ctx, insertMembershipSQL, personID, orgID)
	if err != nil {
		return eris.Wrap(err, "insert membership")
	}
	s.MembershipsInserted += int(tag.RowsAffected())
	return nil
}

func (l *Loader) benefit(ctx context.Context, q db.Querier, b normalize.BenefitCandidate, s *Stats) error {
	personID, ok := l.cache.Person(b.PersonKey)
	if !ok {
		return eris.Errorf("person %s not resolved", b.PersonKey)
	}

	var locationID, orgID *int64
	if b.LocationKey != nil {
		id, ok := l.cache.Location(*b.LocationKey)
		if !ok {
			return eris.Errorf("location %s/%s/%s not resolved", b.LocationKey.Canton, b.LocationKey.Parish, b.LocationKey.Locality)
		}
		locationID = &id
	}
	if b.OrgName != nil {
		id, ok := l.cache.Organization(*b.OrgName)
		if !ok {
			return eris.Errorf("organization %s not resolved", *b.OrgName)
		}
		orgID = &id
	}

	var detail []byte
	if b.Detail != nil {
		var err error
		if detail, err = json.Marshal(b.Detail); err != nil {
			return eris.Wrap(err, "marshal benefit detail")
		}
	}

	tag, err := q.Exec(ctx, insertBenefitSQL,
		b.NaturalKey, string(b.Subsidy), b.StagingID, personID, locationID, orgID,
		b.CropCode, b.HectaresTotal, b.Hectares, b.Quantity, b.UnitPrice, b.Amount,
		b.DeliveryDate, b.Year, b.ActNumber, b.OriginalID, b.CorrectedID,
		true, b.Status, detail,
	)
	if err != nil {
		return eris.Wrapf(err, "insert benefit %s", b.NaturalKey)
	}
	if tag.RowsAffected() == 0 {
		s.BenefitsSkipped++
		return nil
	}
	s.BenefitsInserted++
	return nil
}

type point struct {
	x, y float64
	srid int
	ewkb []byte
}

func newPoint(c normalize.LocationCandidate) (*point, error) {
	if c.X == nil || c.Y == nil {
		return nil, nil
	}
	b, srid, err := geo.EncodePoint(*c.X, *c.Y)
	if err != nil {
		return nil, eris.Wrapf(err, "encode location %s", c.Key.Canton)
	}
	return &point{x: *c.X, y: *c.Y, srid: srid, ewkb: b}, nil
}

func genderText(g *model.Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}
