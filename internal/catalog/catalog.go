// Package catalog loads the control catalog: families and their controls
// with point weights.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/controlgap/internal/model"
)

//go:embed data/rev3.yaml
var defaultCatalog []byte

// Catalog is immutable reference data once loaded
type Catalog struct {
	Families []model.Family  `yaml:"families"`
	Controls []model.Control `yaml:"controls"`

	byID map[string]int
}

// Default returns the built-in rev3 sample catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a catalog from YAML
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Controls are sorted by id.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", model.ErrInvalidInput, err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

// New builds a catalog from already decoded records
func New(families []model.Family, controls []model.Control) (*Catalog, error) {
	c := &Catalog{
		Families: append([]model.Family(nil), families...),
		Controls: append([]model.Control(nil), controls...),
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) index() error {
	known := make(map[string]bool, len(c.Families))
	for i, f := range c.Families {
		code := model.NormalizeFamily(f.Code)
		if code == "" {
			return model.InvalidInputf("family %d has no code", i)
		}
		if known[code] {
			return model.InvalidInputf("duplicate family %s", code)
		}
		known[code] = true
		c.Families[i].Code = code
	}
	sort.Slice(c.Families, func(i, j int) bool {
		return c.Families[i].Code < c.Families[j].Code
	})

	sort.Slice(c.Controls, func(i, j int) bool {
		return c.Controls[i].ID < c.Controls[j].ID
	})

	c.byID = make(map[string]int, len(c.Controls))
	for i := range c.Controls {
		ctl := &c.Controls[i]
		if ctl.ID == "" {
			return model.InvalidInputf("control with title %q has no id", ctl.Title)
		}
		if _, dup := c.byID[ctl.ID]; dup {
			return model.InvalidInputf("duplicate control %s", ctl.ID)
		}
		ctl.Family = model.NormalizeFamily(ctl.Family)
		if len(known) > 0 && !known[ctl.Family] {
			return model.InvalidInputf("control %s references unknown family %q", ctl.ID, ctl.Family)
		}
		if ctl.Weight < 0 {
			return model.InvalidInputf("control %s has negative weight %d", ctl.ID, ctl.Weight)
		}
		c.byID[ctl.ID] = i
	}
	return nil
}

// Control returns a control by id
func (c *Catalog) Control(id string) (model.Control, error) {
	i, ok := c.byID[id]
	if !ok {
		return model.Control{}, model.NotFoundf("control %s", id)
	}
	return c.Controls[i], nil
}

// Has reports whether the control id is in the catalog
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Family returns a family by code (case-insensitive)
func (c *Catalog) Family(code string) (model.Family, error) {
	code = model.NormalizeFamily(code)
	for _, f := range c.Families {
		if f.Code == code {
			return f, nil
		}
	}
	return model.Family{}, model.NotFoundf("family %s", code)
}

// Names maps family codes to display names
func (c *Catalog) Names() map[string]string {
	names := make(map[string]string, len(c.Families))
	for _, f := range c.Families {
		names[f.Code] = f.Name
	}
	return names
}
