package combat

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/hex"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

var (
	// ErrCombatNotFound is returned when a combat ID is not owned by the Engine.
	ErrCombatNotFound = errors.New("combat not found")
	// ErrStackNotFound is returned when a stack combat ID is not owned by the Engine.
	ErrStackNotFound = errors.New("stack combat not found")
)

// DamageStep applies one tick of damage to an engagement. stretch returns the
// damage multiplier of an army engaged on several fronts.
type DamageStep interface {
	ApplyDamage(c *ActiveCombat, dt float64, stretch func(armyID string) float64)
}

// DamageStepFunc adapts a function to DamageStep.
type DamageStepFunc func(c *ActiveCombat, dt float64, stretch func(armyID string) float64)

// ApplyDamage calls f.
func (f DamageStepFunc) ApplyDamage(c *ActiveCombat, dt float64, stretch func(armyID string) float64) {
	f(c, dt, stretch)
}

// CombatParams describes a standalone engagement between two registered armies.
type CombatParams struct {
	AttackerID     string
	DefenderID     string
	Location       hex.Coord
	TerrainType    terrain.Type
	AttackerStance Stance
	DefenderStance Stance
}

// StackStartParams describes a stack combat on a contested tile. Defenders are
// gathered from the army registry.
type StackStartParams struct {
	Location    hex.Coord
	TerrainType terrain.Type
	// AttackerIDs are paired in the given order.
	AttackerIDs []string
}

// PendingReinforcement is a reinforcement waiting for the next Tick.
type PendingReinforcement struct {
	CombatID string `json:"combat_id"`
	Side     Side   `json:"side"`
	ArmyID   string `json:"army_id"`
}

// Engine owns every ActiveCombat and StackCombat by ID. All mutation goes through
// its methods. All methods are safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	combats  map[string]*ActiveCombat
	stacks   map[string]*StackCombat
	pending  []PendingReinforcement
	buffered []Event

	catalog *unit.Catalog
	terrain *terrain.Table
	armies  *army.Registry
	tuning  Tuning
	logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewEngine creates an empty Engine.
//
// Precondition: catalog and armies must be non-nil.
// Postcondition: A nil terrainTable resolves every tile to terrain.Neutral; a nil
// logger is replaced by a no-op logger.
func NewEngine(catalog *unit.Catalog, terrainTable *terrain.Table, armies *army.Registry, tuning Tuning, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		combats: make(map[string]*ActiveCombat),
		stacks:  make(map[string]*StackCombat),
		catalog: catalog,
		terrain: terrainTable,
		armies:  armies,
		tuning:  tuning.withDefaults(),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

// Tuning returns the engine's combat constants.
func (e *Engine) Tuning() Tuning { return e.tuning }

// StartCombat begins a standalone engagement between two registered armies.
//
// Precondition: both armies must be registered, distinct and not already fighting.
// Postcondition: Returns the new combat in the ranged exchange phase; both armies are engaged.
func (e *Engine) StartCombat(p CombatParams) (*ActiveCombat, error) {
	if p.AttackerID == "" || p.DefenderID == "" {
		return nil, fmt.Errorf("combat.Engine.StartCombat: attacker and defender IDs must not be empty")
	}
	if p.AttackerID == p.DefenderID {
		return nil, fmt.Errorf("combat.Engine.StartCombat: army %q cannot fight itself", p.AttackerID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range []string{p.AttackerID, p.DefenderID} {
		if cid, busy := e.fightingIn(id); busy {
			return nil, fmt.Errorf("army %q already fighting in combat %q", id, cid)
		}
	}
	c, err := e.startLocked(p, "", e.lookupTerrain(p.TerrainType))
	if err != nil {
		return nil, err
	}
	e.buffered = append(e.buffered, Event{Kind: EventCombatStarted, CombatID: c.ID, Phase: c.Phase})
	return c, nil
}

// StartStack begins a stack combat on p.Location. Defenders are every army on or
// covering the tile that does not share an owner with an attacker, split into the
// entrenched, regular and villager tiers. The first pairings start immediately.
//
// Precondition: at least one attacker; no unfinished stack combat on the tile.
// Postcondition: Returns the new stack combat.
func (e *Engine) StartStack(p StackStartParams) (*StackCombat, error) {
	if len(p.AttackerIDs) == 0 {
		return nil, fmt.Errorf("combat.Engine.StartStack: at least one attacker is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range e.stacks {
		if s.Location == p.Location && !s.Finished {
			return nil, fmt.Errorf("stack combat %q already running on %s", s.ID, p.Location)
		}
	}

	attackers := make(map[string]bool, len(p.AttackerIDs))
	owners := make(map[string]bool)
	for _, id := range p.AttackerIDs {
		snap, ok := e.armies.Snapshot(id)
		if !ok {
			return nil, fmt.Errorf("attacker %q: %w", id, army.ErrArmyNotFound)
		}
		if cid, busy := e.fightingIn(id); busy {
			return nil, fmt.Errorf("army %q already fighting in combat %q", id, cid)
		}
		attackers[id] = true
		owners[snap.Owner] = true
	}
	isDefender := func(snap army.Snapshot) bool {
		return !attackers[snap.ID] && !owners[snap.Owner]
	}

	s := NewStackCombat(StackParams{
		ID:                        e.newID(),
		Location:                  p.Location,
		Terrain:                   e.lookupTerrain(p.TerrainType),
		StretchingPenaltyPerFront: e.tuning.StretchingPenaltyPerFront,
		StartedAt:                 e.now(),
	})
	for _, id := range p.AttackerIDs {
		s.AddAttacker(id)
	}
	for _, snap := range e.armies.Covering(p.Location) {
		if isDefender(snap) && !snap.Villagers {
			s.AddDefender(snap.ID, TierEntrenched, snap.Position != p.Location)
		}
	}
	for _, snap := range e.armies.InTile(p.Location) {
		if !isDefender(snap) || snap.Entrenched {
			continue
		}
		if snap.Villagers {
			s.AddDefender(snap.ID, TierVillagers, false)
			continue
		}
		s.AddDefender(snap.ID, TierRegular, false)
	}
	for _, snap := range e.armies.InTile(p.Location) {
		if snap.Villagers && snap.Entrenched && isDefender(snap) {
			s.AddDefender(snap.ID, TierVillagers, false)
		}
	}

	e.stacks[s.ID] = s
	e.logger.Info("stack combat started",
		zap.String("stack_id", s.ID),
		zap.String("location", p.Location.String()),
		zap.Int("attackers", len(s.AttackerQueue)),
	)
	e.buffered = append(e.buffered, Event{Kind: EventStackStarted, StackID: s.ID, Tier: s.CurrentTier})
	e.buffered = append(e.buffered, e.advanceStack(s)...)
	return s, nil
}

// Combat returns the engagement with the given ID.
func (e *Engine) Combat(id string) (*ActiveCombat, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.combats[id]
	return c, ok
}

// Stack returns the stack combat with the given ID.
func (e *Engine) Stack(id string) (*StackCombat, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.stacks[id]
	return s, ok
}

// Combats returns every engagement in ID order.
func (e *Engine) Combats() []*ActiveCombat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*ActiveCombat, 0, len(e.combats))
	for _, id := range sortedKeys(e.combats) {
		out = append(out, e.combats[id])
	}
	return out
}

// Idle reports whether no engagement or stack combat is still running.
func (e *Engine) Idle() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, c := range e.combats {
		if c.Phase != PhaseEnded {
			return false
		}
	}
	for _, s := range e.stacks {
		if !s.Finished {
			return false
		}
	}
	return true
}

// QueueReinforcement schedules armyID to join side of a running engagement at the
// end of the next Tick's damage and phase processing.
//
// Postcondition: Returns ErrCombatNotFound for unknown combats and
// army.ErrArmyNotFound for unregistered armies.
func (e *Engine) QueueReinforcement(combatID string, side Side, armyID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.combats[combatID]
	if !ok {
		return fmt.Errorf("reinforcing %q: %w", combatID, ErrCombatNotFound)
	}
	if c.Phase == PhaseEnded {
		return fmt.Errorf("reinforcing %q: combat has ended", combatID)
	}
	if _, ok := e.armies.Snapshot(armyID); !ok {
		return fmt.Errorf("reinforcing %q with %q: %w", combatID, armyID, army.ErrArmyNotFound)
	}
	if side != SideAttacker && side != SideDefender {
		return fmt.Errorf("reinforcing %q: invalid side %q", combatID, side)
	}
	if err := e.canReinforce(c, armyID); err != nil {
		return fmt.Errorf("reinforcing %q: %w", combatID, err)
	}
	e.pending = append(e.pending, PendingReinforcement{CombatID: combatID, Side: side, ArmyID: armyID})
	return nil
}

// Retreat withdraws an army from a stack combat. If it is fighting, its units leave
// the engagement; the engagement itself runs on and notices on its next update.
//
// Postcondition: The army is marked retreated in the stack and retreating in the registry.
func (e *Engine) Retreat(stackID, armyID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.stacks[stackID]
	if !ok {
		return fmt.Errorf("retreating %q: %w", stackID, ErrStackNotFound)
	}
	if !s.known(armyID) {
		return fmt.Errorf("retreating %q: army %q is not part of the stack", stackID, armyID)
	}
	if s.DefeatedArmyIDs[armyID] {
		return fmt.Errorf("retreating %q: army %q already defeated", stackID, armyID)
	}
	if p, fighting := s.RemoveArmy(armyID); fighting {
		if c, ok := e.combats[p.ActiveCombatID]; ok {
			c.WithdrawArmy(armyID)
		}
	}
	e.markRetreating(armyID, false)
	e.buffered = append(e.buffered, Event{Kind: EventArmyRetreated, StackID: stackID, ArmyID: armyID})
	return nil
}

// RetreatFromCombat withdraws an army from a standalone engagement.
func (e *Engine) RetreatFromCombat(combatID, armyID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.combats[combatID]
	if !ok {
		return fmt.Errorf("retreating from %q: %w", combatID, ErrCombatNotFound)
	}
	if c.StackID != "" {
		return fmt.Errorf("retreating from %q: combat belongs to stack %q", combatID, c.StackID)
	}
	if !c.WithdrawArmy(armyID) {
		return fmt.Errorf("retreating from %q: army %q is not fighting", combatID, armyID)
	}
	e.markRetreating(armyID, false)
	e.buffered = append(e.buffered, Event{Kind: EventArmyRetreated, CombatID: combatID, ArmyID: armyID})
	return nil
}

// EndCombat discards a finished standalone engagement.
func (e *Engine) EndCombat(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.combats[id]; !ok {
		return fmt.Errorf("ending %q: %w", id, ErrCombatNotFound)
	}
	delete(e.combats, id)
	return nil
}

// StretchingMultiplier returns the stretching multiplier of armyID inside combatID.
// Standalone engagements never stretch.
func (e *Engine) StretchingMultiplier(combatID, armyID string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stretchFor(e.combats[combatID])(armyID)
}

// Tick advances every running engagement by dt seconds. Within one tick, damage
// and phase transitions for existing combatants resolve before any reinforcement
// joins:
//
//  1. advance time
//  2. apply damage through step
//  3. update phase, finishing combats whose side is empty
//  4. finalize ended combats and apply casualties to the army registry
//  5. merge queued reinforcements
//  6. advance stack combats
//
// Postcondition: Returns the events of the tick, including any raised by calls
// made since the previous Tick.
func (e *Engine) Tick(dt float64, step DamageStep) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	events := e.buffered
	e.buffered = nil

	for _, id := range sortedKeys(e.combats) {
		c := e.combats[id]
		if c.Phase == PhaseEnded {
			continue
		}
		c.Advance(dt)
		if step != nil {
			step.ApplyDamage(c, dt, e.stretchFor(c))
		}
		from := c.Phase
		if c.UpdatePhase() {
			events = append(events, e.phaseChanged(c, from))
			from = c.Phase
		}
		if c.Finish() {
			events = append(events, e.phaseChanged(c, from))
		}
		if c.Phase == PhaseEnded {
			events = append(events, e.finalize(c)...)
		}
	}

	events = append(events, e.flushReinforcements()...)

	for _, id := range sortedKeys(e.stacks) {
		events = append(events, e.advanceStack(e.stacks[id])...)
	}
	for id, c := range e.combats {
		if c.StackID != "" && c.Phase == PhaseEnded {
			delete(e.combats, id)
		}
	}
	return events
}

func (e *Engine) phaseChanged(c *ActiveCombat, from Phase) Event {
	e.logger.Debug("combat phase changed",
		zap.String("combat_id", c.ID),
		zap.String("from", string(from)),
		zap.String("to", string(c.Phase)),
		zap.Float64("elapsed", c.ElapsedTime),
	)
	return Event{Kind: EventPhaseChanged, CombatID: c.ID, StackID: c.StackID, Phase: c.Phase, PreviousPhase: from}
}

// finalize applies an ended engagement's casualties to the live armies. Standalone
// engagements also settle their armies; stack engagements leave that to the stack.
func (e *Engine) finalize(c *ActiveCombat) []Event {
	deltas := c.CasualtyDeltas()
	for _, id := range sortedKeys(deltas) {
		if err := e.armies.ApplyCasualties(id, deltas[id]); err != nil {
			e.logger.Warn("applying casualties", zap.String("combat_id", c.ID), zap.Error(err))
		}
	}

	rec := NewDetailedCombatRecord(c, e.now())
	e.logger.Info("combat ended",
		zap.String("combat_id", c.ID),
		zap.String("stack_id", c.StackID),
		zap.String("result", string(rec.Result)),
		zap.String("duration", rec.FormattedDuration),
	)
	events := []Event{{Kind: EventCombatEnded, CombatID: c.ID, StackID: c.StackID, Phase: c.Phase, Record: &rec}}
	if c.StackID != "" {
		return events
	}

	for _, s := range []Side{SideAttacker, SideDefender} {
		for _, a := range c.Armies(s) {
			if a.Withdrawn {
				continue
			}
			snap, ok := e.armies.Snapshot(a.ArmyID)
			if !ok {
				continue
			}
			if snap.Military.Total() == 0 {
				e.destroy(a.ArmyID)
				events = append(events, Event{Kind: EventArmyDefeated, CombatID: c.ID, ArmyID: a.ArmyID, Side: s, Outcome: DefeatDestroyed})
				continue
			}
			_ = e.armies.SetStatus(a.ArmyID, army.StatusIdle)
		}
	}
	return events
}

func (e *Engine) flushReinforcements() []Event {
	var events []Event
	pending := e.pending
	e.pending = nil
	for _, r := range pending {
		c, ok := e.combats[r.CombatID]
		if !ok || c.Phase == PhaseEnded {
			e.logger.Warn("dropping reinforcement for finished combat",
				zap.String("combat_id", r.CombatID),
				zap.String("army_id", r.ArmyID),
			)
			continue
		}
		if err := e.canReinforce(c, r.ArmyID); err != nil {
			e.logger.Warn("reinforcement rejected", zap.String("combat_id", c.ID), zap.Error(err))
			continue
		}
		if c.StackID != "" {
			if s, ok := e.stacks[c.StackID]; ok {
				if s.known(r.ArmyID) {
					e.logger.Warn("army already part of stack combat",
						zap.String("stack_id", s.ID),
						zap.String("army_id", r.ArmyID),
					)
					continue
				}
				if p, ok := e.pairingFor(s, c.ID); ok {
					if r.Side == SideAttacker {
						p.AttackerReinforcements = append(p.AttackerReinforcements, r.ArmyID)
					} else {
						p.DefenderReinforcements = append(p.DefenderReinforcements, r.ArmyID)
					}
				}
			}
		}
		if err := e.reinforceLocked(c, r.Side, r.ArmyID); err != nil {
			e.logger.Warn("reinforcement rejected", zap.String("combat_id", c.ID), zap.Error(err))
			continue
		}
		events = append(events, Event{Kind: EventReinforced, CombatID: c.ID, StackID: c.StackID, ArmyID: r.ArmyID, Side: r.Side})
	}
	return events
}

// advanceStack runs one coordination step of s and settles its defeated armies.
func (e *Engine) advanceStack(s *StackCombat) []Event {
	if s.Finished {
		return nil
	}
	arena := &lockedArena{e: e}
	tier := s.CurrentTier
	defeats := s.Advance(arena)
	events := arena.events

	for _, d := range defeats {
		if d.Outcome == DefeatRetreat {
			e.markRetreating(d.ArmyID, true)
		} else {
			e.destroy(d.ArmyID)
		}
		e.logger.Info("army defeated",
			zap.String("stack_id", s.ID),
			zap.String("army_id", d.ArmyID),
			zap.String("outcome", string(d.Outcome)),
		)
		events = append(events, Event{Kind: EventArmyDefeated, StackID: s.ID, ArmyID: d.ArmyID, Side: d.Side, Outcome: d.Outcome})
	}
	if s.CurrentTier != tier {
		e.logger.Info("stack tier advanced", zap.String("stack_id", s.ID), zap.String("tier", string(s.CurrentTier)))
		events = append(events, Event{Kind: EventTierAdvanced, StackID: s.ID, Tier: s.CurrentTier})
	}
	if s.Finished {
		for _, id := range append(append([]string{}, s.AttackerQueue...), s.DefenderQueue...) {
			_ = e.armies.SetStatus(id, army.StatusIdle)
		}
		outcome := s.Outcome()
		e.logger.Info("stack combat ended", zap.String("stack_id", s.ID), zap.String("outcome", string(outcome)))
		events = append(events, Event{Kind: EventStackEnded, StackID: s.ID, StackOutcome: outcome})
	}
	return events
}

func (e *Engine) startLocked(p CombatParams, stackID string, mods terrain.Modifiers) (*ActiveCombat, error) {
	attacker, ok := e.armies.Snapshot(p.AttackerID)
	if !ok {
		return nil, fmt.Errorf("attacker %q: %w", p.AttackerID, army.ErrArmyNotFound)
	}
	defender, ok := e.armies.Snapshot(p.DefenderID)
	if !ok {
		return nil, fmt.Errorf("defender %q: %w", p.DefenderID, army.ErrArmyNotFound)
	}
	c := NewActiveCombat(Params{
		ID:             e.newID(),
		Attacker:       attacker,
		Defender:       defender,
		Location:       p.Location,
		Terrain:        mods,
		AttackerStance: p.AttackerStance,
		DefenderStance: p.DefenderStance,
		Catalog:        e.catalog,
		Tuning:         e.tuning,
		StartedAt:      e.now(),
		StackID:        stackID,
	})
	e.combats[c.ID] = c
	_ = e.armies.SetStatus(p.AttackerID, army.StatusEngaged)
	_ = e.armies.SetStatus(p.DefenderID, army.StatusEngaged)
	e.logger.Info("combat started",
		zap.String("combat_id", c.ID),
		zap.String("stack_id", stackID),
		zap.String("attacker", p.AttackerID),
		zap.String("defender", p.DefenderID),
		zap.String("terrain", string(c.TerrainType)),
	)
	return c, nil
}

func (e *Engine) reinforceLocked(c *ActiveCombat, side Side, armyID string) error {
	snap, ok := e.armies.Snapshot(armyID)
	if !ok {
		return fmt.Errorf("reinforcing with %q: %w", armyID, army.ErrArmyNotFound)
	}
	if c.AddReinforcement(side, snap) == nil {
		return fmt.Errorf("army %q cannot join combat %q", armyID, c.ID)
	}
	_ = e.armies.SetStatus(armyID, army.StatusEngaged)
	return nil
}

// markRetreating flags an army as retreating; defeated cross-tile defenders also
// fall back to their home base.
func (e *Engine) markRetreating(armyID string, home bool) {
	if err := e.armies.SetStatus(armyID, army.StatusRetreating); err != nil {
		e.logger.Warn("marking army retreating", zap.String("army_id", armyID), zap.Error(err))
		return
	}
	if !home {
		return
	}
	if snap, ok := e.armies.Snapshot(armyID); ok {
		_ = e.armies.Move(armyID, snap.HomeBase)
	}
}

func (e *Engine) destroy(armyID string) {
	if err := e.armies.Remove(armyID); err != nil && !errors.Is(err, army.ErrArmyNotFound) {
		e.logger.Warn("removing destroyed army", zap.String("army_id", armyID), zap.Error(err))
	}
}

func (e *Engine) stretchFor(c *ActiveCombat) func(string) float64 {
	if c == nil || c.StackID == "" {
		return func(string) float64 { return 1 }
	}
	s, ok := e.stacks[c.StackID]
	if !ok {
		return func(string) float64 { return 1 }
	}
	return s.StretchingMultiplier
}

func (e *Engine) pairingFor(s *StackCombat, combatID string) (*Pairing, bool) {
	for _, p := range s.ActivePairings {
		if p.ActiveCombatID == combatID {
			return p, true
		}
	}
	return nil, false
}

// canReinforce rejects armies that already fought in c or are active in another
// running engagement.
func (e *Engine) canReinforce(c *ActiveCombat, armyID string) error {
	if _, _, ok := c.Army(armyID); ok {
		return fmt.Errorf("army %q already fought in combat %q", armyID, c.ID)
	}
	if cid, busy := e.fightingIn(armyID); busy {
		return fmt.Errorf("army %q already fighting in combat %q", armyID, cid)
	}
	return nil
}

// fightingIn returns the running engagement an army is active in.
func (e *Engine) fightingIn(armyID string) (string, bool) {
	for id, c := range e.combats {
		if c.Phase == PhaseEnded {
			continue
		}
		if a, _, ok := c.Army(armyID); ok && !a.Withdrawn {
			return id, true
		}
	}
	return "", false
}

func (e *Engine) lookupTerrain(t terrain.Type) terrain.Modifiers {
	if e.terrain == nil {
		mods := terrain.Neutral
		if t != "" {
			mods.Type = t
		}
		return mods
	}
	return e.terrain.Lookup(t)
}

// lockedArena exposes the Engine to a StackCombat while e.mu is held.
type lockedArena struct {
	e      *Engine
	events []Event
}

func (a *lockedArena) Available(armyID string) bool {
	snap, ok := a.e.armies.Snapshot(armyID)
	if !ok || snap.Military.Total() == 0 {
		return false
	}
	if st, _ := a.e.armies.Status(armyID); st == army.StatusRetreating {
		return false
	}
	_, busy := a.e.fightingIn(armyID)
	return !busy
}

func (a *lockedArena) StartPairing(s *StackCombat, attackerID, defenderID string) (string, error) {
	c, err := a.e.startLocked(CombatParams{AttackerID: attackerID, DefenderID: defenderID, Location: s.Location}, s.ID, s.Terrain)
	if err != nil {
		return "", err
	}
	a.events = append(a.events, Event{Kind: EventCombatStarted, CombatID: c.ID, StackID: s.ID, Phase: c.Phase})
	return c.ID, nil
}

func (a *lockedArena) Reinforce(combatID string, side Side, armyID string) error {
	c, ok := a.e.combats[combatID]
	if !ok {
		return fmt.Errorf("reinforcing %q: %w", combatID, ErrCombatNotFound)
	}
	if err := a.e.reinforceLocked(c, side, armyID); err != nil {
		return err
	}
	a.events = append(a.events, Event{Kind: EventReinforced, CombatID: combatID, StackID: c.StackID, ArmyID: armyID, Side: side})
	return nil
}

func (a *lockedArena) Combat(combatID string) (*ActiveCombat, bool) {
	c, ok := a.e.combats[combatID]
	return c, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
