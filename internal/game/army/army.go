// Package army provides the army snapshot consumed by the combat engine and the
// ID-keyed registry of live armies.
package army

import (
	"github.com/cory-johannsen/warfront/internal/game/hex"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// UnknownName is the placeholder used when an owner or commander cannot be resolved.
const UnknownName = "Unknown"

// Status is the lifecycle state of a live army.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusEngaged    Status = "engaged"
	StatusRetreating Status = "retreating"
)

// Army is a live army tracked by the Registry.
type Army struct {
	ID        string
	Name      string
	Owner     string
	Commander string // empty when the army has no commander
	Units     unit.Composition
	Position  hex.Coord
	HomeBase  hex.Coord
	// Entrenched armies form the first defensive tier and may cover adjacent tiles.
	Entrenched bool
	// CoverageRadius is the hex distance an entrenched army defends beyond its own tile.
	CoverageRadius int
	// Villagers marks a civilian group; it is only engaged after all military tiers.
	Villagers bool
	Status    Status
}

// Snapshot is the read-only view of an army handed to the combat engine.
// The engine never mutates live armies; casualties flow back through the Registry.
type Snapshot struct {
	ID             string
	Name           string
	Owner          string
	Commander      string
	Military       unit.Composition
	Position       hex.Coord
	HomeBase       hex.Coord
	Entrenched     bool
	CoverageRadius int
	Villagers      bool
}

// Snapshot returns an independent copy of a's combat-relevant state.
//
// Postcondition: Mutating the result never affects a.
func (a *Army) Snapshot() Snapshot {
	return Snapshot{
		ID:             a.ID,
		Name:           a.Name,
		Owner:          a.Owner,
		Commander:      a.Commander,
		Military:       a.Units.Clone(),
		Position:       a.Position,
		HomeBase:       a.HomeBase,
		Entrenched:     a.Entrenched,
		CoverageRadius: a.CoverageRadius,
		Villagers:      a.Villagers,
	}
}

// OwnerName returns the owner or UnknownName.
func (s Snapshot) OwnerName() string {
	if s.Owner == "" {
		return UnknownName
	}
	return s.Owner
}

// CommanderName returns the commander or UnknownName.
func (s Snapshot) CommanderName() string {
	if s.Commander == "" {
		return UnknownName
	}
	return s.Commander
}

// Covers reports whether an entrenched army defends tile from its own position.
//
// Postcondition: Returns false for non-entrenched armies; true for the army's own tile
// and for tiles within CoverageRadius.
func (s Snapshot) Covers(tile hex.Coord) bool {
	if !s.Entrenched {
		return false
	}
	return s.Position.Distance(tile) <= s.CoverageRadius
}
