// Package terrain provides the read-only terrain lookup table.
package terrain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Type identifies a terrain kind, e.g. "plains" or "forest".
type Type string

// Modifiers holds the combat and movement scalars for one terrain type.
type Modifiers struct {
	Type                  Type    `yaml:"type"`
	DefenderDefenseBonus  float64 `yaml:"defender_defense_bonus"`
	AttackerAttackPenalty float64 `yaml:"attacker_attack_penalty"`
	MovementCost          float64 `yaml:"movement_cost"`
}

// Neutral is returned for unknown terrain: no bonus, no penalty.
var Neutral = Modifiers{Type: "open", DefenderDefenseBonus: 1.0, AttackerAttackPenalty: 1.0, MovementCost: 1.0}

// Validate checks that the modifiers are usable as multipliers.
//
// Postcondition: Returns nil iff Type is non-empty and all scalars are > 0.
func (m Modifiers) Validate() error {
	if m.Type == "" {
		return fmt.Errorf("terrain: type must not be empty")
	}
	if m.DefenderDefenseBonus <= 0 || m.AttackerAttackPenalty <= 0 {
		return fmt.Errorf("terrain %q: combat multipliers must be > 0", m.Type)
	}
	if m.MovementCost <= 0 {
		return fmt.Errorf("terrain %q: movement_cost must be > 0", m.Type)
	}
	return nil
}

// Table maps terrain types to modifiers.
type Table struct {
	entries map[Type]Modifiers
}

// NewTable builds a Table from mods.
//
// Postcondition: Returns a Table or an error on the first invalid or duplicate entry.
func NewTable(mods ...Modifiers) (*Table, error) {
	t := &Table{entries: make(map[Type]Modifiers, len(mods))}
	for _, m := range mods {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.entries[m.Type]; dup {
			return nil, fmt.Errorf("terrain: duplicate type %q", m.Type)
		}
		t.entries[m.Type] = m
	}
	return t, nil
}

// Lookup returns the modifiers for typ, or Neutral (with Type set to typ) when unknown.
func (t *Table) Lookup(typ Type) Modifiers {
	if t != nil {
		if m, ok := t.entries[typ]; ok {
			return m
		}
	}
	n := Neutral
	if typ != "" {
		n.Type = typ
	}
	return n
}

// LoadTable parses a YAML terrain file of the form `terrain: [ {type: ..., ...}, ... ]`.
//
// Precondition: path must be a readable YAML file.
// Postcondition: Returns a validated Table or an error.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading terrain file %q: %w", path, err)
	}
	var doc struct {
		Terrain []Modifiers `yaml:"terrain"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing terrain YAML: %w", err)
	}
	return NewTable(doc.Terrain...)
}
