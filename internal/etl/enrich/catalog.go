// Package enrich attaches crop reference attributes to validated records.
package enrich

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/etl-productivo/subsidy-etl/internal/model"
)

// NotClassified is the classification given to codes missing from the catalog.
const NotClassified = "NOT_CLASSIFIED"

//go:embed crops.yaml
var builtinCatalog []byte

type catalogFile struct {
	Crops []model.Crop `yaml:"crops"`
}

// Catalog is a read-only crop lookup keyed by upper-cased code.
type Catalog struct {
	crops map[string]model.Crop
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(builtinCatalog)
	if err != nil {
		panic(err) // embedded file is fixed at build time
	}
	return c
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: read catalog %s", path)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "enrich: parse catalog")
	}
	if len(f.Crops) == 0 {
		return nil, eris.New("enrich: catalog has no crops")
	}

	c := &Catalog{crops: make(map[string]model.Crop, len(f.Crops))}
	for _, crop := range f.Crops {
		code := strings.ToUpper(strings.TrimSpace(crop.Code))
		if code == "" {
			return nil, eris.New("enrich: catalog entry without code")
		}
		crop.Code = code
		c.crops[code] = crop
	}
	return c, nil
}

// Lookup returns the entry for code.
func (c *Catalog) Lookup(code string) (model.Crop, bool) {
	crop, ok := c.crops[strings.ToUpper(strings.TrimSpace(code))]
	return crop, ok
}

// All returns every entry ordered by code.
func (c *Catalog) All() []model.Crop {
	out := make([]model.Crop, 0, len(c.crops))
	for _, crop := range c.crops {
		out = append(out, crop)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.crops) }
