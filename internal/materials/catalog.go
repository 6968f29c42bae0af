// Package materials holds the designer-authored material catalog. Entities
// reference a material by id; its density feeds mass derivation in the
// collision pass.
package materials

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDensity is used when an entity references no material or an unknown
// one. Water density keeps neutral objects plausible.
const DefaultDensity = 1000.0

// Definition models the authored contract for one material. It is shared
// with the schema generator so validation and editor tooling stay in sync
// with the loader.
type Definition struct {
	ID         string  `json:"id" yaml:"id" jsonschema:"title=Material id,pattern=^[a-z0-9\\-]+$,description=Designer facing identifier for the material"`
	Density    float64 `json:"density" yaml:"density" jsonschema:"title=Density,description=Mass per cubic meter in kilograms,minimum=0"`
	Elasticity float64 `json:"elasticity" yaml:"elasticity" jsonschema:"title=Elasticity,description=Restitution coefficient applied on hard contact,minimum=0"`
	Damping    float64 `json:"damping" yaml:"damping" jsonschema:"title=Damping,description=Tangential damping coefficient between 0 and 1,minimum=0,maximum=1"`
	Friction   float64 `json:"friction" yaml:"friction" jsonschema:"title=Friction,description=Surface friction coefficient,minimum=0"`
}

// FileDefinitions represents the contents of a materials file: a flat list
// of definitions.
type FileDefinitions []Definition

func (d Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("material with empty id")
	}
	if d.Density <= 0 {
		return fmt.Errorf("material %q: non-positive density %v", d.ID, d.Density)
	}
	if d.Elasticity < 0 {
		return fmt.Errorf("material %q: negative elasticity %v", d.ID, d.Elasticity)
	}
	if d.Damping < 0 || d.Damping > 1 {
		return fmt.Errorf("material %q: damping %v outside [0,1]", d.ID, d.Damping)
	}
	if d.Friction < 0 {
		return fmt.Errorf("material %q: negative friction %v", d.ID, d.Friction)
	}
	return nil
}

// Catalog is an immutable lookup over loaded definitions.
type Catalog struct {
	byID map[string]Definition
}

// Default returns the built-in catalog used when no file is configured.
func Default() *Catalog {
	catalog, err := FromDefinitions(FileDefinitions{
		{ID: "wood", Density: 650, Elasticity: 0.4, Damping: 0.3, Friction: 0.6},
		{ID: "stone", Density: 2400, Elasticity: 0.2, Damping: 0.5, Friction: 0.9},
		{ID: "metal", Density: 7800, Elasticity: 0.6, Damping: 0.1, Friction: 0.4},
		{ID: "rubber", Density: 1100, Elasticity: 0.9, Damping: 0.2, Friction: 1.0},
	})
	if err != nil {
		panic(fmt.Sprintf("materials: built-in catalog invalid: %v", err))
	}
	return catalog
}

// FromDefinitions validates and indexes a definition list.
func FromDefinitions(defs FileDefinitions) (*Catalog, error) {
	byID := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if err := def.validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[def.ID]; dup {
			return nil, fmt.Errorf("material %q defined twice", def.ID)
		}
		byID[def.ID] = def
	}
	return &Catalog{byID: byID}, nil
}

// Load reads a YAML materials file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("materials: read %s: %w", path, err)
	}
	var defs FileDefinitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("materials: parse %s: %w", path, err)
	}
	catalog, err := FromDefinitions(defs)
	if err != nil {
		return nil, fmt.Errorf("materials: %s: %w", path, err)
	}
	return catalog, nil
}

func (c *Catalog) Lookup(id string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	def, ok := c.byID[id]
	return def, ok
}

// DensityFor resolves the density for a material id, falling back to
// DefaultDensity for unknown or empty ids.
func (c *Catalog) DensityFor(id string) float64 {
	if def, ok := c.Lookup(id); ok {
		return def.Density
	}
	return DefaultDensity
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}
