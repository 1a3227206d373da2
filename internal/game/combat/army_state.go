package combat

import (
	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// ArmyState is the per-army bookkeeping of one army on one side of an engagement.
// It refers to the live army only by ID.
type ArmyState struct {
	ArmyID             string                `json:"army_id"`
	ArmyName           string                `json:"army_name"`
	OwnerName          string                `json:"owner_name"`
	CommanderName      string                `json:"commander_name"`
	JoinTime           float64               `json:"join_time"`
	InitialComposition unit.Composition      `json:"initial_composition"`
	CurrentUnits       unit.Composition      `json:"current_units"`
	CasualtiesByType   map[unit.Type]int     `json:"casualties_by_type"`
	DamageDealtByType  map[unit.Type]float64 `json:"damage_dealt_by_type"`
	// Set only for reinforcements.
	ChargePhaseEndTime *float64 `json:"charge_phase_end_time,omitempty"`
	RangedPhaseEndTime *float64 `json:"ranged_phase_end_time,omitempty"`
	// Withdrawn is set when the army retreats out of the engagement.
	Withdrawn bool `json:"withdrawn,omitempty"`
}

// NewArmyState snapshots an army joining an engagement at joinTime.
// Reinforcements receive charge and ranged bonus windows ending at
// joinTime + window; original combatants receive none.
//
// Postcondition: InitialComposition and CurrentUnits are independent copies of snap.Military.
func NewArmyState(snap army.Snapshot, joinTime float64, isReinforcement bool, window float64) *ArmyState {
	a := &ArmyState{
		ArmyID:             snap.ID,
		ArmyName:           snap.Name,
		OwnerName:          snap.OwnerName(),
		CommanderName:      snap.CommanderName(),
		JoinTime:           joinTime,
		InitialComposition: snap.Military.Clone(),
		CurrentUnits:       snap.Military.Clone(),
		CasualtiesByType:   make(map[unit.Type]int),
		DamageDealtByType:  make(map[unit.Type]float64),
	}
	if isReinforcement {
		if window <= 0 {
			window = DefaultReinforcementWindow
		}
		charge := joinTime + window
		ranged := joinTime + window
		a.ChargePhaseEndTime = &charge
		a.RangedPhaseEndTime = &ranged
	}
	return a
}

// IsReinforcement reports whether the army joined after the engagement started.
func (a *ArmyState) IsReinforcement() bool { return a.ChargePhaseEndTime != nil }

// IsInChargeWindow reports whether combatTime falls inside the charge bonus window.
// An absent window means never.
func (a *ArmyState) IsInChargeWindow(combatTime float64) bool {
	return a.ChargePhaseEndTime != nil && combatTime < *a.ChargePhaseEndTime
}

// IsInRangedWindow reports whether combatTime falls inside the ranged bonus window.
func (a *ArmyState) IsInRangedWindow(combatTime float64) bool {
	return a.RangedPhaseEndTime != nil && combatTime < *a.RangedPhaseEndTime
}

// ApplyCasualties removes up to count units of t.
//
// Postcondition: Returns the number actually removed, clamped to the units available.
func (a *ArmyState) ApplyCasualties(t unit.Type, count int) int {
	have := a.CurrentUnits[t]
	if count <= 0 || have <= 0 {
		return 0
	}
	if count > have {
		count = have
	}
	a.CurrentUnits.Add(t, -count)
	a.CasualtiesByType[t] += count
	return count
}

// TrackDamageDealt records damage dealt by this army's units of t.
func (a *ArmyState) TrackDamageDealt(amount float64, t unit.Type) {
	if amount > 0 {
		a.DamageDealtByType[t] += amount
	}
}

// TotalUnits returns the army's live unit count.
func (a *ArmyState) TotalUnits() int { return a.CurrentUnits.Total() }

// IsActive reports whether the army still has units in the fight.
func (a *ArmyState) IsActive() bool { return !a.Withdrawn && a.TotalUnits() > 0 }

// TotalCasualties returns the number of units the army has lost.
func (a *ArmyState) TotalCasualties() int {
	n := 0
	for _, v := range a.CasualtiesByType {
		n += v
	}
	return n
}

// TotalDamageDealt returns the sum of DamageDealtByType.
func (a *ArmyState) TotalDamageDealt() float64 {
	total := 0.0
	for _, v := range a.DamageDealtByType {
		total += v
	}
	return total
}

// Casualties returns an independent copy of the casualties, suitable for applying
// back to the live army.
func (a *ArmyState) Casualties() unit.Composition {
	out := make(unit.Composition, len(a.CasualtiesByType))
	for t, n := range a.CasualtiesByType {
		if n > 0 {
			out[t] = n
		}
	}
	return out
}

func (a *ArmyState) relink() {
	if a.InitialComposition == nil {
		a.InitialComposition = unit.Composition{}
	}
	if a.CurrentUnits == nil {
		a.CurrentUnits = unit.Composition{}
	}
	if a.CasualtiesByType == nil {
		a.CasualtiesByType = make(map[unit.Type]int)
	}
	if a.DamageDealtByType == nil {
		a.DamageDealtByType = make(map[unit.Type]float64)
	}
	if a.OwnerName == "" {
		a.OwnerName = army.UnknownName
	}
	if a.CommanderName == "" {
		a.CommanderName = army.UnknownName
	}
}
