// Package unit provides the read-only unit-type catalog consumed by the combat engine.
package unit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category classifies a unit type for targeting and phase gating.
// Values persist as stable string tags.
type Category string

const (
	Infantry Category = "infantry"
	Cavalry  Category = "cavalry"
	Ranged   Category = "ranged"
	Siege    Category = "siege"
)

// Categories lists every category in ordinal order.
var Categories = []Category{Infantry, Cavalry, Ranged, Siege}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case Infantry, Cavalry, Ranged, Siege:
		return true
	default:
		return false
	}
}

// IsMelee reports whether units of this category fight in melee.
//
// Postcondition: Returns true iff c is Infantry or Cavalry.
func (c Category) IsMelee() bool { return c == Infantry || c == Cavalry }

// Type identifies a unit type in the catalog.
type Type string

// Stats holds the catalog entry for one unit type.
type Stats struct {
	ID           Type     `yaml:"id"`
	Name         string   `yaml:"name"`
	Category     Category `yaml:"category"`
	HP           float64  `yaml:"hp"`
	MeleeAttack  float64  `yaml:"melee_attack"`
	PierceAttack float64  `yaml:"pierce_attack"`
	MeleeArmor   float64  `yaml:"melee_armor"`
	PierceArmor  float64  `yaml:"pierce_armor"`
	Population   int      `yaml:"population"`
}

// Validate checks that s satisfies the catalog invariants.
//
// Postcondition: Returns nil iff ID is non-empty, Category is valid, HP > 0,
// attacks and armor are >= 0 and Population >= 0.
func (s *Stats) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("unit stats: id must not be empty")
	}
	if !s.Category.Valid() {
		return fmt.Errorf("unit %q: category %q is not one of %v", s.ID, s.Category, Categories)
	}
	if s.HP <= 0 {
		return fmt.Errorf("unit %q: hp must be > 0", s.ID)
	}
	if s.MeleeAttack < 0 || s.PierceAttack < 0 {
		return fmt.Errorf("unit %q: attack values must be >= 0", s.ID)
	}
	if s.MeleeArmor < 0 || s.PierceArmor < 0 {
		return fmt.Errorf("unit %q: armor values must be >= 0", s.ID)
	}
	if s.Population < 0 {
		return fmt.Errorf("unit %q: population must be >= 0", s.ID)
	}
	return nil
}

// Attack returns the attack value the unit uses: pierce for ranged and siege, melee otherwise.
func (s *Stats) Attack() float64 {
	if s.Category.IsMelee() {
		return s.MeleeAttack
	}
	return s.PierceAttack
}

// ArmorAgainst returns the armor s presents to an attacker of category attacker.
func (s *Stats) ArmorAgainst(attacker Category) float64 {
	if attacker.IsMelee() {
		return s.MeleeArmor
	}
	return s.PierceArmor
}

// Catalog is an immutable lookup of unit stats by type.
// It is safe for concurrent reads.
type Catalog struct {
	stats map[Type]*Stats
}

// NewCatalog builds a Catalog from the given stats.
//
// Precondition: every entry must pass Validate; IDs must be unique.
// Postcondition: Returns a populated Catalog or an error on the first violation.
func NewCatalog(stats ...*Stats) (*Catalog, error) {
	c := &Catalog{stats: make(map[Type]*Stats, len(stats))}
	for _, s := range stats {
		if s == nil {
			return nil, fmt.Errorf("unit catalog: nil stats entry")
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.stats[s.ID]; dup {
			return nil, fmt.Errorf("unit catalog: duplicate unit id %q", s.ID)
		}
		cp := *s
		c.stats[s.ID] = &cp
	}
	return c, nil
}

// Get returns the stats for t.
//
// Postcondition: Returns (stats, true) if t is known, or (nil, false) otherwise.
func (c *Catalog) Get(t Type) (*Stats, bool) {
	s, ok := c.stats[t]
	return s, ok
}

// HP returns the per-unit hit points of t, or 0 if t is unknown.
func (c *Catalog) HP(t Type) float64 {
	if s, ok := c.stats[t]; ok {
		return s.HP
	}
	return 0
}

// CategoryOf returns the category of t.
func (c *Catalog) CategoryOf(t Type) (Category, bool) {
	if s, ok := c.stats[t]; ok {
		return s.Category, true
	}
	return "", false
}

// Types returns all known unit types in lexicographic order.
func (c *Catalog) Types() []Type {
	out := make([]Type, 0, len(c.stats))
	for t := range c.stats {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of unit types in the catalog.
func (c *Catalog) Len() int { return len(c.stats) }

// LoadStatsFromBytes parses a YAML document holding a list of unit stats.
//
// Postcondition: Returns the parsed and validated stats, or an error.
func LoadStatsFromBytes(data []byte) ([]*Stats, error) {
	var doc struct {
		Units []*Stats `yaml:"units"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing unit YAML: %w", err)
	}
	for _, s := range doc.Units {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Units, nil
}

// LoadCatalog reads every *.yaml file in dir and builds a Catalog from their units.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a Catalog or an error on the first read, parse or validation failure.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading unit dir %q: %w", dir, err)
	}

	var all []*Stats
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		stats, err := LoadStatsFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		all = append(all, stats...)
	}
	return NewCatalog(all...)
}
