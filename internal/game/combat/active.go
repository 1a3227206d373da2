package combat

import (
	"time"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/hex"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// Params describes a new one-versus-one engagement.
type Params struct {
	ID       string
	Attacker army.Snapshot
	Defender army.Snapshot
	Location hex.Coord
	Terrain  terrain.Modifiers
	// AttackerStance and DefenderStance default to StanceFrontline.
	AttackerStance Stance
	DefenderStance Stance
	Catalog        *unit.Catalog
	Tuning         Tuning
	StartedAt      time.Time
	// StackID links the engagement to the stack combat that owns it, if any.
	StackID string
}

// ActiveCombat is the phase state machine for exactly one attacker-versus-defender
// engagement.
//
// Invariant: Phase is always one of the four Phase constants.
// Invariant: len(PhaseRecords) equals the number of completed phase transitions.
type ActiveCombat struct {
	ID          string       `json:"id"`
	StackID     string       `json:"stack_id,omitempty"`
	Location    hex.Coord    `json:"location"`
	TerrainType terrain.Type `json:"terrain_type"`
	// Stored for the damage step; never computed here.
	TerrainDefenseBonus      float64 `json:"terrain_defense_bonus"`
	TerrainAttackPenalty     float64 `json:"terrain_attack_penalty"`
	EntrenchmentDefenseBonus float64 `json:"entrenchment_defense_bonus"`

	Phase       Phase   `json:"phase"`
	ElapsedTime float64 `json:"elapsed_time"`

	Attacker       *SideState   `json:"attacker"`
	Defender       *SideState   `json:"defender"`
	AttackerArmies []*ArmyState `json:"attacker_armies"`
	DefenderArmies []*ArmyState `json:"defender_armies"`

	PhaseStartTime          float64           `json:"phase_start_time"`
	PhaseAttackerDamage     float64           `json:"phase_attacker_damage"`
	PhaseDefenderDamage     float64           `json:"phase_defender_damage"`
	PhaseAttackerCasualties map[unit.Type]int `json:"phase_attacker_casualties"`
	PhaseDefenderCasualties map[unit.Type]int `json:"phase_defender_casualties"`
	PhaseRecords            []PhaseRecord     `json:"phase_records"`

	Tuning    Tuning    `json:"tuning"`
	StartedAt time.Time `json:"started_at"`
}

// NewActiveCombat creates an engagement in the ranged exchange phase at time zero.
//
// Precondition: p.Catalog must be non-nil.
// Postcondition: Both sides hold exactly one non-reinforcement ArmyState. An empty
// side is legal and immediately satisfies ShouldEnd.
func NewActiveCombat(p Params) *ActiveCombat {
	tuning := p.Tuning.withDefaults()
	mods := p.Terrain
	if mods.DefenderDefenseBonus <= 0 || mods.AttackerAttackPenalty <= 0 {
		neutral := terrain.Neutral
		if mods.Type != "" {
			neutral.Type = mods.Type
		}
		mods = neutral
	}
	entrench := 0.0
	if p.Defender.Entrenched {
		entrench = tuning.EntrenchmentDefenseBonus
	}
	return &ActiveCombat{
		ID:                       p.ID,
		StackID:                  p.StackID,
		Location:                 p.Location,
		TerrainType:              mods.Type,
		TerrainDefenseBonus:      mods.DefenderDefenseBonus,
		TerrainAttackPenalty:     mods.AttackerAttackPenalty,
		EntrenchmentDefenseBonus: entrench,
		Phase:                    PhaseRangedExchange,
		Attacker:                 NewSideState(p.Catalog, p.Attacker.Military, p.AttackerStance),
		Defender:                 NewSideState(p.Catalog, p.Defender.Military, p.DefenderStance),
		AttackerArmies:           []*ArmyState{NewArmyState(p.Attacker, 0, false, tuning.ReinforcementWindow)},
		DefenderArmies:           []*ArmyState{NewArmyState(p.Defender, 0, false, tuning.ReinforcementWindow)},
		PhaseAttackerCasualties:  make(map[unit.Type]int),
		PhaseDefenderCasualties:  make(map[unit.Type]int),
		Tuning:                   tuning,
		StartedAt:                p.StartedAt,
	}
}

// Advance moves combat time forward by dt seconds. Ended combats do not advance.
func (c *ActiveCombat) Advance(dt float64) {
	if c.Phase == PhaseEnded || !(dt > 0) {
		return
	}
	c.ElapsedTime += dt
}

// UpdatePhase performs at most one phase transition.
//
//	ranged_exchange  -> melee_engagement  when ElapsedTime >= MeleeThreshold
//	melee_engagement -> cleanup           when either side has no melee units
//	cleanup          -> ended             when either side has no units
//
// Postcondition: Returns true iff a transition happened, in which case exactly one
// PhaseRecord was appended for the previous phase. Ended is terminal.
func (c *ActiveCombat) UpdatePhase() bool {
	var next Phase
	switch c.Phase {
	case PhaseRangedExchange:
		if c.ElapsedTime < c.Tuning.MeleeThreshold {
			return false
		}
		next = PhaseMeleeEngagement
	case PhaseMeleeEngagement:
		if c.Attacker.MeleeUnits() > 0 && c.Defender.MeleeUnits() > 0 {
			return false
		}
		next = PhaseCleanup
	case PhaseCleanup:
		if !c.ShouldEnd() {
			return false
		}
		next = PhaseEnded
	default:
		return false
	}
	c.RecordPhaseCompletion(c.Phase)
	c.Phase = next
	return true
}

// Finish ends the engagement from whichever phase it is in once ShouldEnd holds,
// recording the in-progress phase so that phase records partition the whole fight.
//
// Postcondition: Returns true iff the combat moved to PhaseEnded during this call.
func (c *ActiveCombat) Finish() bool {
	if c.Phase == PhaseEnded || !c.ShouldEnd() {
		return false
	}
	c.RecordPhaseCompletion(c.Phase)
	c.Phase = PhaseEnded
	return true
}

// RecordPhaseCompletion snapshots the accumulated phase totals into a PhaseRecord
// for prev and resets the accumulators.
//
// Postcondition: PhaseAttackerDamage == 0, PhaseDefenderDamage == 0, both phase
// casualty maps are empty and PhaseStartTime == ElapsedTime.
func (c *ActiveCombat) RecordPhaseCompletion(prev Phase) {
	rec := PhaseRecord{
		Phase:                    prev,
		Duration:                 c.ElapsedTime - c.PhaseStartTime,
		AttackerDamageDealt:      c.PhaseAttackerDamage,
		DefenderDamageDealt:      c.PhaseDefenderDamage,
		AttackerCasualtiesByType: copyCounts(c.PhaseAttackerCasualties),
		DefenderCasualtiesByType: copyCounts(c.PhaseDefenderCasualties),
	}
	c.PhaseRecords = append(c.PhaseRecords, rec)
	c.PhaseAttackerDamage = 0
	c.PhaseDefenderDamage = 0
	c.PhaseAttackerCasualties = make(map[unit.Type]int)
	c.PhaseDefenderCasualties = make(map[unit.Type]int)
	c.PhaseStartTime = c.ElapsedTime
}

// DealDamage applies amount of damage from sourceType units of armyID on side from
// to targetType units of the opposing side.
//
// Postcondition: Returns the number of target units killed. Nothing is recorded if
// the target type is absent or amount <= 0.
func (c *ActiveCombat) DealDamage(from Side, armyID string, sourceType, targetType unit.Type, amount float64) int {
	if c.Phase == PhaseEnded || !(amount > 0) {
		return 0
	}
	target := c.Side(from.Opponent())
	if target.Count(targetType) <= 0 {
		return 0
	}
	kills := target.ApplyDamage(amount, targetType)

	c.Side(from).TrackDamageDealt(amount, sourceType)
	if a := c.findArmy(from, armyID); a != nil {
		a.TrackDamageDealt(amount, sourceType)
	}

	if from == SideAttacker {
		c.PhaseAttackerDamage += amount
		if kills > 0 {
			c.PhaseDefenderCasualties[targetType] += kills
		}
	} else {
		c.PhaseDefenderDamage += amount
		if kills > 0 {
			c.PhaseAttackerCasualties[targetType] += kills
		}
	}
	c.attributeCasualties(from.Opponent(), targetType, kills)
	return kills
}

// attributeCasualties spreads kills over the side's armies holding t in join
// order, so the opening force absorbs losses before later arrivals.
func (c *ActiveCombat) attributeCasualties(s Side, t unit.Type, kills int) {
	for _, a := range c.Armies(s) {
		if kills <= 0 {
			return
		}
		if a.Withdrawn {
			continue
		}
		kills -= a.ApplyCasualties(t, kills)
	}
}

// AddReinforcement joins snap to side. The new ArmyState gets the bonus windows and
// its composition is merged into the side aggregate.
//
// Callers must invoke this only after the tick's damage and phase processing.
//
// Postcondition: Returns the new ArmyState, or nil if the combat has ended or the
// army has already fought on either side, withdrawn armies included.
func (c *ActiveCombat) AddReinforcement(side Side, snap army.Snapshot) *ArmyState {
	if c.Phase == PhaseEnded {
		return nil
	}
	if _, _, ok := c.Army(snap.ID); ok {
		return nil
	}
	a := NewArmyState(snap, c.ElapsedTime, true, c.Tuning.ReinforcementWindow)
	if side == SideAttacker {
		c.AttackerArmies = append(c.AttackerArmies, a)
	} else {
		c.DefenderArmies = append(c.DefenderArmies, a)
	}
	c.Side(side).Merge(snap.Military)
	return a
}

// WithdrawArmy pulls a retreating army's surviving units out of its side aggregate.
// The engagement is not aborted; the next UpdatePhase observes the reduced counts.
//
// Postcondition: Returns false if the army is unknown or already withdrawn.
func (c *ActiveCombat) WithdrawArmy(armyID string) bool {
	a, side, ok := c.Army(armyID)
	if !ok || a.Withdrawn {
		return false
	}
	c.Side(side).RemoveUnits(a.CurrentUnits)
	a.Withdrawn = true
	return true
}

// ShouldEnd reports whether either side has no units left.
func (c *ActiveCombat) ShouldEnd() bool {
	return c.Attacker.TotalUnits() == 0 || c.Defender.TotalUnits() == 0
}

// Winner returns the outcome. The result is only meaningful once ShouldEnd is true;
// an ongoing combat, or one where both sides are empty, yields ResultDraw.
func (c *ActiveCombat) Winner() Result {
	a, d := c.Attacker.TotalUnits(), c.Defender.TotalUnits()
	switch {
	case a > 0 && d == 0:
		return ResultAttackerVictory
	case d > 0 && a == 0:
		return ResultDefenderVictory
	default:
		return ResultDraw
	}
}

// Side returns the aggregate state of s.
func (c *ActiveCombat) Side(s Side) *SideState {
	if s == SideAttacker {
		return c.Attacker
	}
	return c.Defender
}

// Armies returns the army list of s in join order.
func (c *ActiveCombat) Armies(s Side) []*ArmyState {
	if s == SideAttacker {
		return c.AttackerArmies
	}
	return c.DefenderArmies
}

// TotalUnits returns the live unit count of s.
func (c *ActiveCombat) TotalUnits(s Side) int { return c.Side(s).TotalUnits() }

// Army finds an army by ID on either side.
func (c *ActiveCombat) Army(armyID string) (*ArmyState, Side, bool) {
	if a := c.findArmy(SideAttacker, armyID); a != nil {
		return a, SideAttacker, true
	}
	if a := c.findArmy(SideDefender, armyID); a != nil {
		return a, SideDefender, true
	}
	return nil, "", false
}

// ArmyIDs returns every army ID that has fought on s, in join order.
func (c *ActiveCombat) ArmyIDs(s Side) []string {
	armies := c.Armies(s)
	out := make([]string, 0, len(armies))
	for _, a := range armies {
		out = append(out, a.ArmyID)
	}
	return out
}

// CasualtyDeltas returns per-army casualties to be applied to the live armies.
//
// Postcondition: Armies without casualties are omitted. States sharing an army ID
// are summed.
func (c *ActiveCombat) CasualtyDeltas() map[string]unit.Composition {
	out := make(map[string]unit.Composition)
	for _, s := range []Side{SideAttacker, SideDefender} {
		for _, a := range c.Armies(s) {
			cas := a.Casualties()
			if len(cas) == 0 {
				continue
			}
			sum, ok := out[a.ArmyID]
			if !ok {
				sum = make(unit.Composition, len(cas))
				out[a.ArmyID] = sum
			}
			for t, n := range cas {
				sum[t] += n
			}
		}
	}
	return out
}

func (c *ActiveCombat) findArmy(s Side, armyID string) *ArmyState {
	for _, a := range c.Armies(s) {
		if a.ArmyID == armyID {
			return a
		}
	}
	return nil
}

func (c *ActiveCombat) relink(catalog *unit.Catalog) {
	if c.Attacker == nil {
		c.Attacker = &SideState{}
	}
	if c.Defender == nil {
		c.Defender = &SideState{}
	}
	c.Attacker.relink(catalog)
	c.Defender.relink(catalog)
	for _, s := range []Side{SideAttacker, SideDefender} {
		for _, a := range c.Armies(s) {
			a.relink()
		}
	}
	if c.PhaseAttackerCasualties == nil {
		c.PhaseAttackerCasualties = make(map[unit.Type]int)
	}
	if c.PhaseDefenderCasualties == nil {
		c.PhaseDefenderCasualties = make(map[unit.Type]int)
	}
	c.Tuning = c.Tuning.withDefaults()
}

func copyCounts(m map[unit.Type]int) map[unit.Type]int {
	out := make(map[unit.Type]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
