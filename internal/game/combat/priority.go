package combat

import (
	"sort"

	"github.com/cory-johannsen/warfront/internal/game/unit"
)

var (
	rangedPriority    = []unit.Category{unit.Siege, unit.Cavalry, unit.Infantry, unit.Ranged}
	siegePriority     = []unit.Category{unit.Siege, unit.Ranged, unit.Infantry, unit.Cavalry}
	infantryPriority  = []unit.Category{unit.Infantry, unit.Cavalry, unit.Ranged, unit.Siege}
	frontlinePriority = []unit.Category{unit.Infantry, unit.Cavalry, unit.Ranged, unit.Siege}
	// Flanking cavalry hunts ranged units.
	flankPriority = []unit.Category{unit.Ranged, unit.Siege, unit.Infantry, unit.Cavalry}
)

// TargetPriority returns the ordered list of enemy categories an attacker of the
// given category strikes. stance only matters for cavalry.
//
// Postcondition: Returns a fresh slice containing all four categories exactly once.
func TargetPriority(attacker unit.Category, stance Stance) []unit.Category {
	var src []unit.Category
	switch attacker {
	case unit.Ranged:
		src = rangedPriority
	case unit.Siege:
		src = siegePriority
	case unit.Cavalry:
		if stance == StanceFlank {
			src = flankPriority
		} else {
			src = frontlinePriority
		}
	default:
		src = infantryPriority
	}
	out := make([]unit.Category, len(src))
	copy(out, src)
	return out
}

// FindTarget returns the unit type in enemy that an attacker of the given category
// should strike. Within a category the lexicographically lowest unit type wins.
//
// Postcondition: Returns ("", false) iff enemy holds no unit with a known category.
func FindTarget(attacker unit.Category, stance Stance, enemy *SideState) (unit.Type, bool) {
	if enemy == nil {
		return "", false
	}
	byCategory := make(map[unit.Category][]unit.Type, len(unit.Categories))
	for t, n := range enemy.UnitCounts {
		if n <= 0 {
			continue
		}
		cat, ok := enemy.categoryOf(t)
		if !ok {
			continue
		}
		byCategory[cat] = append(byCategory[cat], t)
	}
	for _, cat := range TargetPriority(attacker, stance) {
		types := byCategory[cat]
		if len(types) == 0 {
			continue
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
		return types[0], true
	}
	return "", false
}
