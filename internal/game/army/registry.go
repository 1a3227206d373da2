package army

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/warfront/internal/game/hex"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// ErrArmyNotFound is returned when an army ID is not registered.
var ErrArmyNotFound = errors.New("army not found")

// Registry tracks all live armies by ID and by tile.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	armies  map[string]*Army
	byTile  map[hex.Coord]map[string]bool
	arrival map[string]uint64
	seq     uint64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		armies:  make(map[string]*Army),
		byTile:  make(map[hex.Coord]map[string]bool),
		arrival: make(map[string]uint64),
	}
}

// Register adds a to the registry at a.Position.
//
// Precondition: a must be non-nil with a non-empty, unregistered ID.
// Postcondition: a is retrievable by ID and appears in its tile's index.
func (r *Registry) Register(a *Army) error {
	if a == nil {
		return fmt.Errorf("army.Registry.Register: army must not be nil")
	}
	if a.ID == "" {
		return fmt.Errorf("army.Registry.Register: id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.armies[a.ID]; exists {
		return fmt.Errorf("army %q already registered", a.ID)
	}
	if a.Units == nil {
		a.Units = unit.Composition{}
	}
	if a.Status == "" {
		a.Status = StatusIdle
	}
	r.armies[a.ID] = a
	r.index(a.ID, a.Position)
	return nil
}

// Remove deletes an army by ID.
//
// Postcondition: Returns ErrArmyNotFound if the army is not registered.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.armies[id]
	if !ok {
		return fmt.Errorf("removing %q: %w", id, ErrArmyNotFound)
	}
	r.unindex(id, a.Position)
	delete(r.armies, id)
	delete(r.arrival, id)
	return nil
}

// Snapshot returns a read-only snapshot of the army with the given ID.
//
// Postcondition: Returns (snapshot, true) if found, or (zero, false) otherwise.
func (r *Registry) Snapshot(id string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.armies[id]
	if !ok {
		return Snapshot{}, false
	}
	return a.Snapshot(), true
}

// Status returns the lifecycle status of the army with the given ID.
func (r *Registry) Status(id string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.armies[id]
	if !ok {
		return "", false
	}
	return a.Status, true
}

// SetStatus updates the lifecycle status of an army.
func (r *Registry) SetStatus(id string, s Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.armies[id]
	if !ok {
		return fmt.Errorf("setting status of %q: %w", id, ErrArmyNotFound)
	}
	a.Status = s
	return nil
}

// Move relocates an army to tile. Arrival order on the new tile is refreshed.
func (r *Registry) Move(id string, tile hex.Coord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.armies[id]
	if !ok {
		return fmt.Errorf("moving %q: %w", id, ErrArmyNotFound)
	}
	r.unindex(id, a.Position)
	a.Position = tile
	r.index(id, tile)
	return nil
}

// ApplyCasualties subtracts casualties from the army's live composition.
// Counts clamp at zero.
//
// Postcondition: Returns ErrArmyNotFound if the army is not registered.
func (r *Registry) ApplyCasualties(id string, casualties unit.Composition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.armies[id]
	if !ok {
		return fmt.Errorf("applying casualties to %q: %w", id, ErrArmyNotFound)
	}
	for t, n := range casualties {
		if n <= 0 {
			continue
		}
		if n > a.Units[t] {
			n = a.Units[t]
		}
		a.Units.Add(t, -n)
	}
	return nil
}

// InTile returns snapshots of every army on tile, most recently arrived first.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (r *Registry) InTile(tile hex.Coord) []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(r.byTile[tile])
}

// Covering returns snapshots of entrenched armies whose coverage includes tile,
// including those standing on it, most recently arrived first.
func (r *Registry) Covering(tile hex.Coord) []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make(map[string]bool)
	for id, a := range r.armies {
		if a.Entrenched && a.Position.Distance(tile) <= a.CoverageRadius {
			ids[id] = true
		}
	}
	return r.collect(ids)
}

// Len returns the number of registered armies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.armies)
}

func (r *Registry) collect(ids map[string]bool) []Snapshot {
	out := make([]Snapshot, 0, len(ids))
	order := make([]string, 0, len(ids))
	for id := range ids {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return r.arrival[order[i]] > r.arrival[order[j]] })
	for _, id := range order {
		out = append(out, r.armies[id].Snapshot())
	}
	return out
}

func (r *Registry) index(id string, tile hex.Coord) {
	if r.byTile[tile] == nil {
		r.byTile[tile] = make(map[string]bool)
	}
	r.byTile[tile][id] = true
	r.seq++
	r.arrival[id] = r.seq
}

func (r *Registry) unindex(id string, tile hex.Coord) {
	if set, ok := r.byTile[tile]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byTile, tile)
		}
	}
}
