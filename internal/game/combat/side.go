package combat

import (
	"math"

	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// SideState aggregates unit counts, damage accumulators and reporting totals for
// one side of a single engagement.
//
// Invariant: UnitCounts[t] > 0 for every present entry; zero entries are removed.
// Invariant: 0 <= DamageAccumulators[t] < hp(t) after every ApplyDamage call.
type SideState struct {
	UnitCounts           unit.Composition      `json:"unit_counts"`
	DamageAccumulators   map[unit.Type]float64 `json:"damage_accumulators"`
	InitialComposition   unit.Composition      `json:"initial_composition"`
	DamageDealtByType    map[unit.Type]float64 `json:"damage_dealt_by_type"`
	DamageReceivedByType map[unit.Type]float64 `json:"damage_received_by_type"`
	CavalryStance        Stance                `json:"cavalry_stance"`

	catalog *unit.Catalog
}

// NewSideState creates a side from a composition snapshot.
//
// Precondition: catalog must be non-nil.
// Postcondition: UnitCounts and InitialComposition equal the positive entries of
// composition; every present type has a zeroed accumulator and report totals.
func NewSideState(catalog *unit.Catalog, composition unit.Composition, stance Stance) *SideState {
	if stance == "" {
		stance = StanceFrontline
	}
	s := &SideState{
		UnitCounts:           unit.Composition{},
		DamageAccumulators:   make(map[unit.Type]float64),
		InitialComposition:   unit.Composition{},
		DamageDealtByType:    make(map[unit.Type]float64),
		DamageReceivedByType: make(map[unit.Type]float64),
		CavalryStance:        stance,
		catalog:              catalog,
	}
	s.Merge(composition)
	return s
}

// Merge folds a joining army's composition into the side. InitialComposition grows
// too, so reports reflect every participant rather than only the opening force.
func (s *SideState) Merge(composition unit.Composition) {
	for t, n := range composition {
		if n <= 0 {
			continue
		}
		s.UnitCounts[t] += n
		s.InitialComposition[t] += n
		if _, ok := s.DamageAccumulators[t]; !ok {
			s.DamageAccumulators[t] = 0
		}
		if _, ok := s.DamageDealtByType[t]; !ok {
			s.DamageDealtByType[t] = 0
		}
		if _, ok := s.DamageReceivedByType[t]; !ok {
			s.DamageReceivedByType[t] = 0
		}
	}
}

// ApplyDamage adds amount to the accumulator for t and converts whole units of
// hit points into kills.
//
// When the last unit of t dies the accumulator entry is dropped along with any
// leftover fraction: overkill is lost.
//
// Postcondition: Returns 0 if t is absent, unknown to the catalog, or amount <= 0.
// Postcondition: 0 <= returned kills <= previous UnitCounts[t].
func (s *SideState) ApplyDamage(amount float64, t unit.Type) int {
	count := s.UnitCounts[t]
	if count <= 0 || !(amount > 0) {
		return 0
	}
	hp := s.hp(t)
	if hp <= 0 {
		return 0
	}

	s.DamageReceivedByType[t] += amount
	acc := s.DamageAccumulators[t] + amount
	kills := int(math.Floor(acc / hp))
	if kills > count {
		kills = count
	}
	count -= kills
	if count == 0 {
		delete(s.UnitCounts, t)
		delete(s.DamageAccumulators, t)
		return kills
	}
	s.UnitCounts[t] = count
	rem := math.Mod(acc, hp)
	if rem < 0 || rem >= hp {
		rem = 0
	}
	s.DamageAccumulators[t] = rem
	return kills
}

// TrackDamageDealt records damage dealt by units of t. It never changes counts.
func (s *SideState) TrackDamageDealt(amount float64, t unit.Type) {
	if !(amount > 0) {
		return
	}
	s.DamageDealtByType[t] += amount
}

// RemoveUnits takes units off the side without killing them, e.g. for a retreating army.
// Counts clamp at zero; a type that reaches zero loses its accumulator.
func (s *SideState) RemoveUnits(composition unit.Composition) {
	for t, n := range composition {
		if n <= 0 {
			continue
		}
		left := s.UnitCounts[t] - n
		if left <= 0 {
			delete(s.UnitCounts, t)
			delete(s.DamageAccumulators, t)
			continue
		}
		s.UnitCounts[t] = left
	}
}

// Count returns the live count of t.
func (s *SideState) Count(t unit.Type) int { return s.UnitCounts[t] }

// TotalUnits returns the number of live units on the side.
func (s *SideState) TotalUnits() int { return s.UnitCounts.Total() }

// MeleeUnits returns the number of live infantry and cavalry.
func (s *SideState) MeleeUnits() int { return s.InfantryUnits() + s.CavalryUnits() }

// RangedUnits returns the number of live ranged units.
func (s *SideState) RangedUnits() int { return s.countCategory(unit.Ranged) }

// SiegeUnits returns the number of live siege units.
func (s *SideState) SiegeUnits() int { return s.countCategory(unit.Siege) }

// InfantryUnits returns the number of live infantry.
func (s *SideState) InfantryUnits() int { return s.countCategory(unit.Infantry) }

// CavalryUnits returns the number of live cavalry.
func (s *SideState) CavalryUnits() int { return s.countCategory(unit.Cavalry) }

// CurrentTotalHP returns the remaining hit points of the side: full HP of every
// live unit less the damage already accumulated against them.
func (s *SideState) CurrentTotalHP() float64 {
	total := 0.0
	for t, n := range s.UnitCounts {
		total += float64(n)*s.hp(t) - s.DamageAccumulators[t]
	}
	return total
}

// InitialTotalHP returns the hit points of every unit that has fought on the side.
func (s *SideState) InitialTotalHP() float64 {
	total := 0.0
	for t, n := range s.InitialComposition {
		total += float64(n) * s.hp(t)
	}
	return total
}

// TotalDamageDealt returns the sum of DamageDealtByType.
func (s *SideState) TotalDamageDealt() float64 {
	total := 0.0
	for _, v := range s.DamageDealtByType {
		total += v
	}
	return total
}

// Catalog returns the unit catalog the side resolves stats against.
func (s *SideState) Catalog() *unit.Catalog { return s.catalog }

func (s *SideState) countCategory(c unit.Category) int {
	n := 0
	for t, count := range s.UnitCounts {
		if cat, ok := s.categoryOf(t); ok && cat == c {
			n += count
		}
	}
	return n
}

func (s *SideState) categoryOf(t unit.Type) (unit.Category, bool) {
	if s.catalog == nil {
		return "", false
	}
	return s.catalog.CategoryOf(t)
}

func (s *SideState) hp(t unit.Type) float64 {
	if s.catalog == nil {
		return 0
	}
	return s.catalog.HP(t)
}

// relink attaches the catalog after deserialization and restores nil maps.
func (s *SideState) relink(catalog *unit.Catalog) {
	s.catalog = catalog
	if s.UnitCounts == nil {
		s.UnitCounts = unit.Composition{}
	}
	if s.DamageAccumulators == nil {
		s.DamageAccumulators = make(map[unit.Type]float64)
	}
	if s.InitialComposition == nil {
		s.InitialComposition = unit.Composition{}
	}
	if s.DamageDealtByType == nil {
		s.DamageDealtByType = make(map[unit.Type]float64)
	}
	if s.DamageReceivedByType == nil {
		s.DamageReceivedByType = make(map[unit.Type]float64)
	}
}
