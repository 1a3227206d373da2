// Package scenario defines YAML combat scenarios and runs them against the engine.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/hex"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// Mode selects how a scenario's armies meet.
type Mode string

const (
	// ModeSingle is one standalone engagement between an attacker and a defender.
	ModeSingle Mode = "single"
	// ModeStack assaults a tile; defenders are gathered from the tile and its coverage.
	ModeStack Mode = "stack"
)

// ArmySpec declares one army placed on the map before the fight starts.
type ArmySpec struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Owner     string         `yaml:"owner"`
	Commander string         `yaml:"commander"`
	Units     map[string]int `yaml:"units"`
	// Position defaults to the scenario location.
	Position   *hex.Coord `yaml:"position"`
	Home       hex.Coord  `yaml:"home"`
	Entrenched bool       `yaml:"entrenched"`
	Coverage   int        `yaml:"coverage"`
	Villagers  bool       `yaml:"villagers"`
}

// Composition converts the declared units to a unit.Composition.
func (a ArmySpec) Composition() unit.Composition {
	c := make(unit.Composition, len(a.Units))
	for t, n := range a.Units {
		c[unit.Type(t)] = n
	}
	return c
}

// Reinforcement sends an army into the single-mode engagement once At has elapsed.
type Reinforcement struct {
	At   string      `yaml:"at"`
	Army string      `yaml:"army"`
	Side combat.Side `yaml:"side"`
}

// Retreat withdraws an army once At has elapsed.
type Retreat struct {
	At   string `yaml:"at"`
	Army string `yaml:"army"`
}

// Scenario is a complete combat setup loaded from YAML.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Mode        Mode         `yaml:"mode"`
	Location    hex.Coord    `yaml:"location"`
	Terrain     terrain.Type `yaml:"terrain"`
	Armies      []ArmySpec   `yaml:"armies"`
	// Attackers lists attacking army IDs in pairing order. Single mode takes exactly one.
	Attackers []string `yaml:"attackers"`
	// Defender is the defending army in single mode.
	Defender       string          `yaml:"defender"`
	AttackerStance combat.Stance   `yaml:"attacker_stance"`
	DefenderStance combat.Stance   `yaml:"defender_stance"`
	Reinforcements []Reinforcement `yaml:"reinforcements"`
	Retreats       []Retreat       `yaml:"retreats"`
	// Script is a Lua file, relative to the scenario file, providing optional hooks.
	Script string `yaml:"script"`
	// Seed makes damage variance reproducible; zero means unseeded.
	Seed uint64 `yaml:"seed"`

	dir string
}

// ScriptPath returns the absolute location of the scenario script, or "" when
// the scenario has none.
func (s *Scenario) ScriptPath() string {
	if s.Script == "" {
		return ""
	}
	if filepath.IsAbs(s.Script) || s.dir == "" {
		return s.Script
	}
	return filepath.Join(s.dir, s.Script)
}

// Validate checks the scenario against the unit catalog.
//
// Precondition: catalog must be non-nil.
// Postcondition: Returns nil iff every army is well formed, every referenced
// army is declared, and the mode's participant rules hold.
func (s *Scenario) Validate(catalog *unit.Catalog) error {
	if s.Name == "" {
		return fmt.Errorf("scenario: name must not be empty")
	}
	if s.Mode != ModeSingle && s.Mode != ModeStack {
		return fmt.Errorf("scenario %q: mode must be %q or %q, got %q", s.Name, ModeSingle, ModeStack, s.Mode)
	}

	declared := make(map[string]bool, len(s.Armies))
	for _, a := range s.Armies {
		if err := validateArmy(a, catalog); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		if declared[a.ID] {
			return fmt.Errorf("scenario %q: duplicate army %q", s.Name, a.ID)
		}
		declared[a.ID] = true
	}

	if len(s.Attackers) == 0 {
		return fmt.Errorf("scenario %q: at least one attacker is required", s.Name)
	}
	for _, id := range s.Attackers {
		if !declared[id] {
			return fmt.Errorf("scenario %q: attacker %q is not declared", s.Name, id)
		}
	}

	switch s.Mode {
	case ModeSingle:
		if len(s.Attackers) != 1 {
			return fmt.Errorf("scenario %q: single mode takes exactly one attacker", s.Name)
		}
		if !declared[s.Defender] {
			return fmt.Errorf("scenario %q: defender %q is not declared", s.Name, s.Defender)
		}
		if s.Defender == s.Attackers[0] {
			return fmt.Errorf("scenario %q: army %q cannot fight itself", s.Name, s.Defender)
		}
		if err := validateStance(s.AttackerStance); err != nil {
			return fmt.Errorf("scenario %q: attacker_stance: %w", s.Name, err)
		}
		if err := validateStance(s.DefenderStance); err != nil {
			return fmt.Errorf("scenario %q: defender_stance: %w", s.Name, err)
		}
	case ModeStack:
		if s.Defender != "" {
			return fmt.Errorf("scenario %q: stack mode gathers defenders from the tile; remove defender", s.Name)
		}
		if len(s.Reinforcements) > 0 {
			return fmt.Errorf("scenario %q: reinforcements are only supported in single mode", s.Name)
		}
	}

	// An army joins an engagement at most once and never after leaving it.
	joins := make(map[string]float64, len(s.Reinforcements))
	for i, r := range s.Reinforcements {
		at, err := parseAt(r.At)
		if err != nil {
			return fmt.Errorf("scenario %q: reinforcement %d: %w", s.Name, i, err)
		}
		if !declared[r.Army] {
			return fmt.Errorf("scenario %q: reinforcement %d: army %q is not declared", s.Name, i, r.Army)
		}
		if r.Side != combat.SideAttacker && r.Side != combat.SideDefender {
			return fmt.Errorf("scenario %q: reinforcement %d: side must be %q or %q", s.Name, i, combat.SideAttacker, combat.SideDefender)
		}
		if r.Army == s.Defender || slices.Contains(s.Attackers, r.Army) {
			return fmt.Errorf("scenario %q: reinforcement %d: army %q already fights from the start", s.Name, i, r.Army)
		}
		if _, dup := joins[r.Army]; dup {
			return fmt.Errorf("scenario %q: reinforcement %d: army %q is already reinforcing", s.Name, i, r.Army)
		}
		joins[r.Army] = at
	}
	for i, r := range s.Retreats {
		at, err := parseAt(r.At)
		if err != nil {
			return fmt.Errorf("scenario %q: retreat %d: %w", s.Name, i, err)
		}
		if !declared[r.Army] {
			return fmt.Errorf("scenario %q: retreat %d: army %q is not declared", s.Name, i, r.Army)
		}
		if join, ok := joins[r.Army]; ok && at <= join {
			return fmt.Errorf("scenario %q: retreat %d: army %q retreats before it joins", s.Name, i, r.Army)
		}
	}
	return nil
}


func validateArmy(a ArmySpec, catalog *unit.Catalog) error {
	if a.ID == "" {
		return fmt.Errorf("army id must not be empty")
	}
	if a.Owner == "" {
		return fmt.Errorf("army %q: owner must not be empty", a.ID)
	}
	if len(a.Units) == 0 {
		return fmt.Errorf("army %q: units must not be empty", a.ID)
	}
	for t, n := range a.Units {
		if _, ok := catalog.Get(unit.Type(t)); !ok {
			return fmt.Errorf("army %q: unknown unit type %q", a.ID, t)
		}
		if n <= 0 {
			return fmt.Errorf("army %q: unit %q count must be > 0", a.ID, t)
		}
	}
	if a.Coverage < 0 {
		return fmt.Errorf("army %q: coverage must be >= 0", a.ID)
	}
	return nil
}

func validateStance(s combat.Stance) error {
	switch s {
	case "", combat.StanceFrontline, combat.StanceFlank:
		return nil
	default:
		return fmt.Errorf("stance %q is not %q or %q", s, combat.StanceFrontline, combat.StanceFlank)
	}
}

// parseAt converts a duration string such as "4s" or "1m30s" to simulated seconds.
func parseAt(at string) (float64, error) {
	d, err := time.ParseDuration(at)
	if err != nil {
		return 0, fmt.Errorf("at %q is not a valid duration: %w", at, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("at %q must not be negative", at)
	}
	return d.Seconds(), nil
}

// Army converts a spec into a registry army placed according to the scenario.
func (s *Scenario) Army(a ArmySpec) *army.Army {
	pos := s.Location
	if a.Position != nil {
		pos = *a.Position
	}
	name := a.Name
	if name == "" {
		name = a.ID
	}
	return &army.Army{
		ID:             a.ID,
		Name:           name,
		Owner:          a.Owner,
		Commander:      a.Commander,
		Units:          a.Composition(),
		Position:       pos,
		HomeBase:       a.Home,
		Entrenched:     a.Entrenched,
		CoverageRadius: a.Coverage,
		Villagers:      a.Villagers,
	}
}

// LoadFromBytes parses a scenario from raw YAML bytes without validating it.
func LoadFromBytes(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	return &s, nil
}

// Load reads the scenario file at path. Script paths resolve relative to it.
//
// Precondition: path must be a readable YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", path, err)
	}
	s, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// action is one timeline entry.
type action struct {
	at    float64
	order int
	run   func() error
	desc  string
}

// timeline returns the scenario's scheduled actions ordered by time, then by
// declaration order.
func timeline(actions []action) []action {
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].at != actions[j].at {
			return actions[i].at < actions[j].at
		}
		return actions[i].order < actions[j].order
	})
	return actions
}
