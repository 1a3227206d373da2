package combat

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// SnapshotVersion is the current persisted engine state version.
const SnapshotVersion = 1

// State is the persisted form of an Engine. Armies are referenced by ID only.
type State struct {
	Version int                    `json:"version"`
	Combats []*ActiveCombat        `json:"combats"`
	Stacks  []*StackCombat         `json:"stacks"`
	Pending []PendingReinforcement `json:"pending,omitempty"`
}

// RelinkWarning reports an army referenced by saved combat state that is no
// longer registered. The combat keeps its saved names for that army.
type RelinkWarning struct {
	CombatID string `json:"combat_id"`
	ArmyID   string `json:"army_id"`
}

// Error implements error so warnings can be logged or joined like errors.
func (w RelinkWarning) Error() string {
	return fmt.Sprintf("combat %q references unknown army %q", w.CombatID, w.ArmyID)
}

// Save serializes every engagement, stack combat and queued reinforcement.
//
// Postcondition: Returns JSON accepted by Load.
func (e *Engine) Save() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := State{
		Version: SnapshotVersion,
		Combats: make([]*ActiveCombat, 0, len(e.combats)),
		Stacks:  make([]*StackCombat, 0, len(e.stacks)),
		Pending: e.pending,
	}
	for _, id := range sortedKeys(e.combats) {
		st.Combats = append(st.Combats, e.combats[id])
	}
	for _, id := range sortedKeys(e.stacks) {
		st.Stacks = append(st.Stacks, e.stacks[id])
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshalling engine state: %w", err)
	}
	return data, nil
}

// Load replaces the Engine's contents with previously saved state and relinks it
// against the unit catalog and the army registry.
//
// Postcondition: On error the Engine is unchanged. Missing armies do not fail the
// load; each is returned as a RelinkWarning.
func (e *Engine) Load(data []byte) ([]RelinkWarning, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshalling engine state: %w", err)
	}
	if st.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported engine state version %d", st.Version)
	}

	combats := make(map[string]*ActiveCombat, len(st.Combats))
	for _, c := range st.Combats {
		if c == nil || c.ID == "" {
			return nil, fmt.Errorf("engine state holds a combat without an ID")
		}
		combats[c.ID] = c
	}
	stacks := make(map[string]*StackCombat, len(st.Stacks))
	for _, s := range st.Stacks {
		if s == nil || s.ID == "" {
			return nil, fmt.Errorf("engine state holds a stack combat without an ID")
		}
		stacks[s.ID] = s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.combats = combats
	e.stacks = stacks
	e.pending = st.Pending
	e.buffered = nil
	return e.relinkLocked(), nil
}

// Relink reattaches every engagement to the unit catalog and checks that each
// referenced army is still registered.
func (e *Engine) Relink() []RelinkWarning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.relinkLocked()
}

func (e *Engine) relinkLocked() []RelinkWarning {
	var warnings []RelinkWarning
	for _, id := range sortedKeys(e.combats) {
		c := e.combats[id]
		c.relink(e.catalog)
		for _, s := range []Side{SideAttacker, SideDefender} {
			for _, a := range c.Armies(s) {
				if _, ok := e.armies.Snapshot(a.ArmyID); ok {
					continue
				}
				w := RelinkWarning{CombatID: c.ID, ArmyID: a.ArmyID}
				e.logger.Warn("relinking combat state", zap.Error(w))
				warnings = append(warnings, w)
			}
		}
	}
	for _, s := range e.stacks {
		s.relink()
	}
	return warnings
}
