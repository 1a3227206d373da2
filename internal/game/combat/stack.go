package combat

import (
	"math"
	"time"

	"github.com/cory-johannsen/warfront/internal/game/hex"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
)

// Tier is a defensive priority class on a contested tile.
type Tier string

const (
	TierEntrenched Tier = "entrenched"
	TierRegular    Tier = "regular"
	TierVillagers  Tier = "villagers"
)

// tierOrder is the strict engagement order.
var tierOrder = []Tier{TierEntrenched, TierRegular, TierVillagers}

func tierIndex(t Tier) int {
	for i, v := range tierOrder {
		if v == t {
			return i
		}
	}
	return len(tierOrder)
}

// DefeatOutcome is what happens to a defeated army.
type DefeatOutcome string

const (
	DefeatDestroyed DefeatOutcome = "destroyed"
	// DefeatRetreat applies to cross-tile defenders, which fall back to their home base.
	DefeatRetreat DefeatOutcome = "retreat"
)

// Defeat reports an army beaten in a stack pairing.
type Defeat struct {
	ArmyID  string        `json:"army_id"`
	Side    Side          `json:"side"`
	Outcome DefeatOutcome `json:"outcome"`
}

// StackOutcome is the overall state of a stack combat.
type StackOutcome string

const (
	StackOngoing      StackOutcome = "ongoing"
	StackAttackersWin StackOutcome = "attackers_win"
	StackDefendersWin StackOutcome = "defenders_win"
	StackDraw         StackOutcome = "draw"
)

// Pairing links one attacker army and one defender army to the ActiveCombat
// fighting between them. Armies that later joined as reinforcements are listed
// separately.
type Pairing struct {
	AttackerArmyID         string   `json:"attacker_army_id"`
	DefenderArmyID         string   `json:"defender_army_id"`
	ActiveCombatID         string   `json:"active_combat_id"`
	AttackerReinforcements []string `json:"attacker_reinforcements,omitempty"`
	DefenderReinforcements []string `json:"defender_reinforcements,omitempty"`
	IsComplete             bool     `json:"is_complete"`
	WinnerArmyID           string   `json:"winner_army_id,omitempty"`
	LoserArmyID            string   `json:"loser_army_id,omitempty"`
}

func (p *Pairing) armies(s Side) int {
	if s == SideAttacker {
		return 1 + len(p.AttackerReinforcements)
	}
	return 1 + len(p.DefenderReinforcements)
}

func (p *Pairing) involves(armyID string) bool {
	if p.AttackerArmyID == armyID || p.DefenderArmyID == armyID {
		return true
	}
	return contains(p.AttackerReinforcements, armyID) || contains(p.DefenderReinforcements, armyID)
}

// Arena is the owner of the ActiveCombats a stack combat coordinates.
type Arena interface {
	// Available reports whether the army exists, still has units and is not
	// fighting in a running engagement.
	Available(armyID string) bool
	// StartPairing starts an engagement between the two armies on the stack's tile
	// and returns its ActiveCombat ID.
	StartPairing(stack *StackCombat, attackerID, defenderID string) (string, error)
	// Reinforce joins armyID to side of the given engagement.
	Reinforce(combatID string, side Side, armyID string) error
	// Combat returns the engagement with the given ID.
	Combat(combatID string) (*ActiveCombat, bool)
}

// StackParams describes a new stack combat.
type StackParams struct {
	ID                        string
	Location                  hex.Coord
	Terrain                   terrain.Modifiers
	StretchingPenaltyPerFront float64
	StartedAt                 time.Time
}

// StackCombat coordinates many simultaneous engagements on one contested tile.
// Defenders are engaged tier by tier; each tier is fully resolved before the next
// is released.
//
// Invariant: an army ID appears in at most one of a pairing, AttackerQueue or DefenderQueue.
// Invariant: DefeatedArmyIDs and RetreatedArmyIDs are disjoint.
type StackCombat struct {
	ID                        string            `json:"id"`
	Location                  hex.Coord         `json:"location"`
	Terrain                   terrain.Modifiers `json:"terrain"`
	StretchingPenaltyPerFront float64           `json:"stretching_penalty_per_front"`
	StartedAt                 time.Time         `json:"started_at"`

	ActivePairings    []*Pairing `json:"active_pairings"`
	CompletedPairings []*Pairing `json:"completed_pairings"`
	AttackerQueue     []string   `json:"attacker_queue"`
	DefenderQueue     []string   `json:"defender_queue"`

	CurrentTier  Tier              `json:"current_tier"`
	TierReleased bool              `json:"tier_released"`
	PendingTiers map[Tier][]string `json:"pending_tiers"`

	FrontsPerArmy        map[string]int  `json:"fronts_per_army"`
	DefeatedArmyIDs      map[string]bool `json:"defeated_army_ids"`
	RetreatedArmyIDs     map[string]bool `json:"retreated_army_ids"`
	CrossTileDefenderIDs map[string]bool `json:"cross_tile_defender_ids"`

	Finished bool `json:"finished"`
}

// NewStackCombat creates an empty stack combat starting at the entrenched tier.
func NewStackCombat(p StackParams) *StackCombat {
	penalty := p.StretchingPenaltyPerFront
	if penalty < 0 {
		penalty = DefaultStretchingPenaltyPerFront
	}
	s := &StackCombat{
		ID:                        p.ID,
		Location:                  p.Location,
		Terrain:                   p.Terrain,
		StretchingPenaltyPerFront: penalty,
		StartedAt:                 p.StartedAt,
		CurrentTier:               TierEntrenched,
	}
	s.relink()
	return s
}

// AddAttacker queues an attacking army. Attackers are paired in arrival order.
//
// Postcondition: Returns false if the army is already part of this stack combat.
func (s *StackCombat) AddAttacker(armyID string) bool {
	if s.known(armyID) {
		return false
	}
	s.AttackerQueue = append(s.AttackerQueue, armyID)
	return true
}

// AddDefender registers a defending army in tier. Cross-tile defenders cover this
// tile from an adjacent one; they count an extra front and retreat when defeated.
//
// Postcondition: Returns false if the army is already part of this stack combat.
func (s *StackCombat) AddDefender(armyID string, tier Tier, crossTile bool) bool {
	if s.known(armyID) {
		return false
	}
	if crossTile {
		s.CrossTileDefenderIDs[armyID] = true
		s.AddFront(armyID)
	}
	if s.TierReleased && tierIndex(tier) <= tierIndex(s.CurrentTier) {
		s.DefenderQueue = append(s.DefenderQueue, armyID)
		return true
	}
	s.PendingTiers[tier] = append(s.PendingTiers[tier], armyID)
	return true
}

// Advance resolves finished pairings, releases the next tier when the current one
// is exhausted, starts new pairings and feeds unmatched armies into ongoing ones
// as reinforcements.
//
// Callers must run this after the tick's damage and phase processing.
//
// Postcondition: Returns the armies defeated during this call.
func (s *StackCombat) Advance(arena Arena) []Defeat {
	if s.Finished {
		return nil
	}
	defeats := s.resolvePairings(arena)
	s.advanceTier()
	s.pairQueued(arena)
	s.reinforceOngoing(arena)
	if s.Outcome() != StackOngoing {
		s.Finished = true
	}
	return defeats
}

// Outcome reports the overall result of the stack combat.
func (s *StackCombat) Outcome() StackOutcome {
	if len(s.ActivePairings) > 0 {
		return StackOngoing
	}
	attackersLeft := len(s.AttackerQueue) > 0
	defendersLeft := len(s.DefenderQueue) > 0 || !s.tiersExhausted()
	switch {
	case attackersLeft && defendersLeft:
		return StackOngoing
	case attackersLeft:
		return StackAttackersWin
	case defendersLeft:
		return StackDefendersWin
	default:
		return StackDraw
	}
}

// AllArmyDefendersEngaged reports whether the current tier's defender queue is drained.
func (s *StackCombat) AllArmyDefendersEngaged() bool { return len(s.DefenderQueue) == 0 }

// RemoveArmy handles an individual retreat: the army leaves both queues and any
// pending tier, is marked retreated and loses a front. An ongoing pairing is not
// terminated; its engagement observes the departure on its own.
//
// Postcondition: Returns the pairing the army is still fighting in, if any.
func (s *StackCombat) RemoveArmy(armyID string) (*Pairing, bool) {
	s.AttackerQueue = remove(s.AttackerQueue, armyID)
	s.DefenderQueue = remove(s.DefenderQueue, armyID)
	for tier, ids := range s.PendingTiers {
		s.PendingTiers[tier] = remove(ids, armyID)
	}
	if !s.DefeatedArmyIDs[armyID] {
		s.RetreatedArmyIDs[armyID] = true
	}
	s.RemoveFront(armyID)
	return s.PairingOf(armyID)
}

// PairingOf returns the active pairing the army fights in.
func (s *StackCombat) PairingOf(armyID string) (*Pairing, bool) {
	for _, p := range s.ActivePairings {
		if p.involves(armyID) {
			return p, true
		}
	}
	return nil, false
}

// StretchingMultiplier returns the damage multiplier of an army engaged on several fronts:
// max(0.1, 1 - penalty*(fronts-1)).
func (s *StackCombat) StretchingMultiplier(armyID string) float64 {
	fronts, ok := s.FrontsPerArmy[armyID]
	if !ok {
		fronts = 1
	}
	return math.Max(MinStretchingMultiplier, 1-s.StretchingPenaltyPerFront*float64(fronts-1))
}

// AddFront records that the army is engaged on one more front.
func (s *StackCombat) AddFront(armyID string) {
	fronts, ok := s.FrontsPerArmy[armyID]
	if !ok {
		fronts = 1
	}
	s.FrontsPerArmy[armyID] = fronts + 1
}

// RemoveFront records that the army left a front. Entries at a single front are dropped.
func (s *StackCombat) RemoveFront(armyID string) {
	fronts, ok := s.FrontsPerArmy[armyID]
	if !ok {
		return
	}
	if fronts-1 <= 1 {
		delete(s.FrontsPerArmy, armyID)
		return
	}
	s.FrontsPerArmy[armyID] = fronts - 1
}

// Fronts returns the number of fronts the army is engaged on.
func (s *StackCombat) Fronts(armyID string) int {
	if n, ok := s.FrontsPerArmy[armyID]; ok {
		return n
	}
	return 1
}

func (s *StackCombat) resolvePairings(arena Arena) []Defeat {
	var defeats []Defeat
	remaining := s.ActivePairings[:0]
	for _, p := range s.ActivePairings {
		c, ok := arena.Combat(p.ActiveCombatID)
		if ok && c.Phase != PhaseEnded {
			remaining = append(remaining, p)
			continue
		}
		p.IsComplete = true
		s.CompletedPairings = append(s.CompletedPairings, p)
		if !ok {
			// Engagement vanished: whoever is still able goes back in line.
			s.requeue(SideAttacker, append([]string{p.AttackerArmyID}, p.AttackerReinforcements...), arena)
			s.requeue(SideDefender, append([]string{p.DefenderArmyID}, p.DefenderReinforcements...), arena)
			continue
		}

		switch c.Winner() {
		case ResultAttackerVictory:
			defeats = append(defeats, s.defeatSide(c, SideDefender)...)
			s.requeue(SideAttacker, survivors(c, SideAttacker), arena)
			p.WinnerArmyID, p.LoserArmyID = p.AttackerArmyID, p.DefenderArmyID
		case ResultDefenderVictory:
			defeats = append(defeats, s.defeatSide(c, SideAttacker)...)
			s.requeue(SideDefender, survivors(c, SideDefender), arena)
			p.WinnerArmyID, p.LoserArmyID = p.DefenderArmyID, p.AttackerArmyID
		default:
			defeats = append(defeats, s.defeatSide(c, SideAttacker)...)
			defeats = append(defeats, s.defeatSide(c, SideDefender)...)
		}
	}
	s.ActivePairings = remaining
	return defeats
}

func (s *StackCombat) defeatSide(c *ActiveCombat, side Side) []Defeat {
	var out []Defeat
	for _, a := range c.Armies(side) {
		if a.Withdrawn || s.RetreatedArmyIDs[a.ArmyID] || s.DefeatedArmyIDs[a.ArmyID] {
			continue
		}
		outcome := DefeatDestroyed
		if s.CrossTileDefenderIDs[a.ArmyID] {
			outcome = DefeatRetreat
		}
		s.DefeatedArmyIDs[a.ArmyID] = true
		s.RemoveFront(a.ArmyID)
		out = append(out, Defeat{ArmyID: a.ArmyID, Side: side, Outcome: outcome})
	}
	return out
}

func survivors(c *ActiveCombat, side Side) []string {
	var out []string
	for _, a := range c.Armies(side) {
		if a.IsActive() {
			out = append(out, a.ArmyID)
		}
	}
	return out
}

// requeue puts winners back at the front of their queue, so they chain into the
// next fight before fresh arrivals.
func (s *StackCombat) requeue(side Side, ids []string, arena Arena) {
	var keep []string
	for _, id := range ids {
		if id == "" || s.RetreatedArmyIDs[id] || s.DefeatedArmyIDs[id] || !arena.Available(id) {
			continue
		}
		if contains(s.AttackerQueue, id) || contains(s.DefenderQueue, id) || contains(keep, id) {
			continue
		}
		keep = append(keep, id)
	}
	if len(keep) == 0 {
		return
	}
	if side == SideAttacker {
		s.AttackerQueue = append(keep, s.AttackerQueue...)
	} else {
		s.DefenderQueue = append(keep, s.DefenderQueue...)
	}
}

// advanceTier releases the current tier's defenders and moves on while a tier is
// both drained and free of ongoing pairings. A non-empty tier is never skipped.
func (s *StackCombat) advanceTier() {
	for {
		if !s.TierReleased {
			s.DefenderQueue = append(s.DefenderQueue, s.PendingTiers[s.CurrentTier]...)
			delete(s.PendingTiers, s.CurrentTier)
			s.TierReleased = true
		}
		if !s.AllArmyDefendersEngaged() || len(s.ActivePairings) > 0 {
			return
		}
		i := tierIndex(s.CurrentTier)
		if i+1 >= len(tierOrder) {
			return
		}
		s.CurrentTier = tierOrder[i+1]
		s.TierReleased = false
	}
}

func (s *StackCombat) tiersExhausted() bool {
	if !s.TierReleased {
		return len(s.PendingTiers[s.CurrentTier]) == 0 && s.laterTiersEmpty()
	}
	return s.laterTiersEmpty()
}

func (s *StackCombat) laterTiersEmpty() bool {
	for _, t := range tierOrder[tierIndex(s.CurrentTier)+1:] {
		if len(s.PendingTiers[t]) > 0 {
			return false
		}
	}
	return true
}

func (s *StackCombat) pairQueued(arena Arena) {
	for len(s.AttackerQueue) > 0 && len(s.DefenderQueue) > 0 {
		attackerID, ok := s.dequeueNextAttacker(arena)
		if !ok {
			return
		}
		defenderID, ok := s.dequeueNextDefender(arena)
		if !ok {
			s.AttackerQueue = append([]string{attackerID}, s.AttackerQueue...)
			return
		}
		combatID, err := arena.StartPairing(s, attackerID, defenderID)
		if err != nil {
			s.AttackerQueue = append([]string{attackerID}, s.AttackerQueue...)
			s.DefenderQueue = append([]string{defenderID}, s.DefenderQueue...)
			return
		}
		s.ActivePairings = append(s.ActivePairings, &Pairing{
			AttackerArmyID: attackerID,
			DefenderArmyID: defenderID,
			ActiveCombatID: combatID,
		})
	}
}

// reinforceOngoing feeds armies left without an opponent into the least
// reinforced ongoing pairing of their side, instead of opening new fights.
func (s *StackCombat) reinforceOngoing(arena Arena) {
	if len(s.ActivePairings) == 0 {
		return
	}
	if len(s.DefenderQueue) == 0 {
		s.AttackerQueue = s.reinforceFrom(arena, SideAttacker, s.AttackerQueue)
	}
	if len(s.AttackerQueue) == 0 {
		s.DefenderQueue = s.reinforceFrom(arena, SideDefender, s.DefenderQueue)
	}
}

func (s *StackCombat) reinforceFrom(arena Arena, side Side, queue []string) []string {
	var left []string
	for _, id := range queue {
		if !arena.Available(id) {
			continue
		}
		p := s.leastReinforced(side)
		if err := arena.Reinforce(p.ActiveCombatID, side, id); err != nil {
			left = append(left, id)
			continue
		}
		if side == SideAttacker {
			p.AttackerReinforcements = append(p.AttackerReinforcements, id)
		} else {
			p.DefenderReinforcements = append(p.DefenderReinforcements, id)
		}
	}
	return left
}

func (s *StackCombat) leastReinforced(side Side) *Pairing {
	best := s.ActivePairings[0]
	for _, p := range s.ActivePairings[1:] {
		if p.armies(side) < best.armies(side) {
			best = p
		}
	}
	return best
}

func (s *StackCombat) dequeueNextAttacker(arena Arena) (string, bool) {
	id, rest, ok := dequeue(s.AttackerQueue, arena)
	s.AttackerQueue = rest
	return id, ok
}

func (s *StackCombat) dequeueNextDefender(arena Arena) (string, bool) {
	id, rest, ok := dequeue(s.DefenderQueue, arena)
	s.DefenderQueue = rest
	return id, ok
}

// dequeue pops the first available army, dropping armies that no longer exist.
func dequeue(queue []string, arena Arena) (string, []string, bool) {
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if arena.Available(id) {
			return id, queue, true
		}
	}
	return "", queue, false
}

func (s *StackCombat) known(armyID string) bool {
	if contains(s.AttackerQueue, armyID) || contains(s.DefenderQueue, armyID) {
		return true
	}
	for _, ids := range s.PendingTiers {
		if contains(ids, armyID) {
			return true
		}
	}
	_, inPairing := s.PairingOf(armyID)
	return inPairing || s.DefeatedArmyIDs[armyID] || s.RetreatedArmyIDs[armyID]
}

func (s *StackCombat) relink() {
	if s.PendingTiers == nil {
		s.PendingTiers = make(map[Tier][]string)
	}
	if s.FrontsPerArmy == nil {
		s.FrontsPerArmy = make(map[string]int)
	}
	if s.DefeatedArmyIDs == nil {
		s.DefeatedArmyIDs = make(map[string]bool)
	}
	if s.RetreatedArmyIDs == nil {
		s.RetreatedArmyIDs = make(map[string]bool)
	}
	if s.CrossTileDefenderIDs == nil {
		s.CrossTileDefenderIDs = make(map[string]bool)
	}
	if s.CurrentTier == "" {
		s.CurrentTier = TierEntrenched
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
