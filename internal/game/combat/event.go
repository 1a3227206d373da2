package combat

// EventKind classifies an Engine event.
type EventKind string

const (
	EventCombatStarted EventKind = "combat_started"
	EventPhaseChanged  EventKind = "phase_changed"
	EventCombatEnded   EventKind = "combat_ended"
	EventReinforced    EventKind = "reinforced"
	EventArmyDefeated  EventKind = "army_defeated"
	EventArmyRetreated EventKind = "army_retreated"
	EventStackStarted  EventKind = "stack_started"
	EventTierAdvanced  EventKind = "tier_advanced"
	EventStackEnded    EventKind = "stack_ended"
)

// Event reports something the Engine did. Only the fields relevant to Kind are set.
type Event struct {
	Kind          EventKind     `json:"kind"`
	CombatID      string        `json:"combat_id,omitempty"`
	StackID       string        `json:"stack_id,omitempty"`
	ArmyID        string        `json:"army_id,omitempty"`
	Side          Side          `json:"side,omitempty"`
	Phase         Phase         `json:"phase,omitempty"`
	PreviousPhase Phase         `json:"previous_phase,omitempty"`
	Tier          Tier          `json:"tier,omitempty"`
	Outcome       DefeatOutcome `json:"outcome,omitempty"`
	StackOutcome  StackOutcome  `json:"stack_outcome,omitempty"`
	// Record is set on EventCombatEnded.
	Record *DetailedCombatRecord `json:"record,omitempty"`
}
