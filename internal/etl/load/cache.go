package load

import "github.com/etl-productivo/subsidy-etl/internal/model"

type locationEntry struct {
	id        int64
	hasCoords bool
}

// Cache maps natural keys to database ids for the lifetime of one run.
// It is a lookup shortcut only; the unique constraints in the ops schema
// remain the source of truth. A Cache is not safe for concurrent use.
type Cache struct {
	persons       map[string]int64
	locations     map[model.LocationKey]locationEntry
	organizations map[string]int64
}

// NewCache returns an empty session cache.
func NewCache() *Cache {
	return &Cache{
		persons:       make(map[string]int64),
		locations:     make(map[model.LocationKey]locationEntry),
		organizations: make(map[string]int64),
	}
}

// Person returns the id stored for an identity key.
func (c *Cache) Person(key string) (int64, bool) {
	id, ok := c.persons[key]
	return id, ok
}

// Location returns the id stored for a location key.
func (c *Cache) Location(key model.LocationKey) (int64, bool) {
	e, ok := c.locations[key]
	return e.id, ok
}

// Organization returns the id stored for an organization name.
func (c *Cache) Organization(name string) (int64, bool) {
	id, ok := c.organizations[name]
	return id, ok
}

// Len reports the number of cached persons, locations and organizations.
func (c *Cache) Len() (persons, locations, organizations int) {
	return len(c.persons), len(c.locations), len(c.organizations)
}
