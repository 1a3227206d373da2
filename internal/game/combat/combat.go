// Package combat implements the hex-tile combat resolution engine: per-side damage
// accumulation, the three-phase engagement state machine, reinforcement bonus
// windows, and tiered multi-army stack combat.
package combat

// Combat tuning defaults. Seconds of simulated time unless noted.
const (
	DefaultMeleeThreshold            = 3.0  // ranged exchange lasts this long
	DefaultReinforcementWindow       = 3.0  // charge/ranged bonus after a reinforcement joins
	DefaultStretchingPenaltyPerFront = 0.15 // damage lost per extra front
	DefaultEntrenchmentDefenseBonus  = 0.25 // additive, on top of terrain
	MinStretchingMultiplier          = 0.1
)

// Tuning holds the externally configured combat constants.
type Tuning struct {
	MeleeThreshold            float64 `json:"melee_threshold"`
	ReinforcementWindow       float64 `json:"reinforcement_window"`
	StretchingPenaltyPerFront float64 `json:"stretching_penalty_per_front"`
	EntrenchmentDefenseBonus  float64 `json:"entrenchment_defense_bonus"`
}

// DefaultTuning returns the stock tuning constants.
func DefaultTuning() Tuning {
	return Tuning{
		MeleeThreshold:            DefaultMeleeThreshold,
		ReinforcementWindow:       DefaultReinforcementWindow,
		StretchingPenaltyPerFront: DefaultStretchingPenaltyPerFront,
		EntrenchmentDefenseBonus:  DefaultEntrenchmentDefenseBonus,
	}
}

// withDefaults fills any non-positive field from DefaultTuning. A zero Tuning is
// the default tuning; otherwise StretchingPenaltyPerFront and
// EntrenchmentDefenseBonus may legitimately be zero.
func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t == (Tuning{}) {
		return d
	}
	if t.MeleeThreshold <= 0 {
		t.MeleeThreshold = d.MeleeThreshold
	}
	if t.ReinforcementWindow <= 0 {
		t.ReinforcementWindow = d.ReinforcementWindow
	}
	if t.StretchingPenaltyPerFront < 0 {
		t.StretchingPenaltyPerFront = d.StretchingPenaltyPerFront
	}
	if t.EntrenchmentDefenseBonus < 0 {
		t.EntrenchmentDefenseBonus = d.EntrenchmentDefenseBonus
	}
	return t
}

// Phase is the state of an ActiveCombat. Values persist as stable string tags.
type Phase string

const (
	PhaseRangedExchange  Phase = "ranged_exchange"
	PhaseMeleeEngagement Phase = "melee_engagement"
	PhaseCleanup         Phase = "cleanup"
	PhaseEnded           Phase = "ended"
)

// Side identifies one half of an engagement.
type Side string

const (
	SideAttacker Side = "attacker"
	SideDefender Side = "defender"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideAttacker {
		return SideDefender
	}
	return SideAttacker
}

// Result is the outcome of an engagement.
type Result string

const (
	ResultAttackerVictory Result = "attacker_victory"
	ResultDefenderVictory Result = "defender_victory"
	ResultDraw            Result = "draw"
)

// String returns a human-readable result label.
func (r Result) String() string {
	switch r {
	case ResultAttackerVictory:
		return "attacker victory"
	case ResultDefenderVictory:
		return "defender victory"
	default:
		return "draw"
	}
}

// Stance is the cavalry posture of a side.
type Stance string

const (
	StanceFrontline Stance = "frontline"
	StanceFlank     Stance = "flank"
)
