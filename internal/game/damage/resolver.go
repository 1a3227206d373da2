// Package damage implements the per-tick damage step that drives combat.Engine:
// auto-targeting, armor, terrain and entrenchment scalars, reinforcement bonus
// windows, stretching and damage spread.
package damage

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/dice"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// Damage tuning defaults.
const (
	DefaultRate              = 1.0  // attack points dealt per unit per second
	DefaultChargeBonus       = 0.5  // cavalry bonus inside the charge window
	DefaultRangedWindowBonus = 0.25 // ranged and siege bonus inside the ranged window
	MinHit                   = 1.0  // floor of attack minus armor
)

// Hit describes one volley before it is applied. Modifiers may rescale Amount.
type Hit struct {
	CombatID       string
	Phase          combat.Phase
	Side           combat.Side
	ArmyID         string
	Source         unit.Type
	SourceCategory unit.Category
	Target         unit.Type
	TargetCategory unit.Category
	Count          int
	Amount         float64
}

// Modifier rescales a volley. It returns the new amount.
type Modifier interface {
	Modify(h Hit) float64
}

// ModifierFunc adapts a function to Modifier.
type ModifierFunc func(h Hit) float64

// Modify calls f.
func (f ModifierFunc) Modify(h Hit) float64 { return f(h) }

// Options tunes a Resolver. Zero fields take the defaults.
type Options struct {
	Rate              float64
	ChargeBonus       float64
	RangedWindowBonus float64
	// Spread varies every volley; a zero Spread disables variance.
	Spread dice.Spread
	// Modifier is applied last, e.g. a scenario script.
	Modifier Modifier
}

// Resolver computes and applies a tick of damage to an engagement.
// It satisfies combat.DamageStep.
type Resolver struct {
	opts    Options
	roller  *dice.Roller
	catalog *unit.Catalog
	logger  *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: catalog must be non-nil; src must be non-nil when opts.Spread is set.
func NewResolver(catalog *unit.Catalog, opts Options, src dice.Source, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Rate <= 0 {
		opts.Rate = DefaultRate
	}
	if opts.ChargeBonus <= 0 {
		opts.ChargeBonus = DefaultChargeBonus
	}
	if opts.RangedWindowBonus <= 0 {
		opts.RangedWindowBonus = DefaultRangedWindowBonus
	}
	return &Resolver{
		opts:    opts,
		roller:  dice.NewRoller(src, opts.Spread, logger),
		catalog: catalog,
		logger:  logger,
	}
}

// ApplyDamage plans both sides' volleys against the state at the start of the
// tick, then applies them, so neither side fires first.
func (r *Resolver) ApplyDamage(c *combat.ActiveCombat, dt float64, stretch func(armyID string) float64) {
	if c.Phase == combat.PhaseEnded || !(dt > 0) {
		return
	}
	if stretch == nil {
		stretch = func(string) float64 { return 1 }
	}
	hits := append(r.plan(c, combat.SideAttacker, dt, stretch), r.plan(c, combat.SideDefender, dt, stretch)...)

	var dealt [2]float64
	kills := 0
	for _, h := range hits {
		if r.opts.Modifier != nil {
			h.Amount = r.opts.Modifier.Modify(h)
		}
		if !(h.Amount > 0) || math.IsInf(h.Amount, 0) {
			continue
		}
		kills += c.DealDamage(h.Side, h.ArmyID, h.Source, h.Target, h.Amount)
		if h.Side == combat.SideAttacker {
			dealt[0] += h.Amount
		} else {
			dealt[1] += h.Amount
		}
	}
	if len(hits) > 0 {
		r.logger.Debug("damage applied",
			zap.String("combat_id", c.ID),
			zap.String("phase", string(c.Phase)),
			zap.Float64("attacker_damage", dealt[0]),
			zap.Float64("defender_damage", dealt[1]),
			zap.Int("kills", kills),
		)
	}
}

// Fires reports whether units of cat take part in phase. During the ranged
// exchange only ranged and siege units fire.
func Fires(cat unit.Category, phase combat.Phase) bool {
	switch phase {
	case combat.PhaseRangedExchange:
		return cat == unit.Ranged || cat == unit.Siege
	case combat.PhaseMeleeEngagement, combat.PhaseCleanup:
		return true
	default:
		return false
	}
}

// BaseDamage returns attack minus armor, floored at MinHit for any unit with an attack.
func BaseDamage(attacker, target *unit.Stats) float64 {
	atk := attacker.Attack()
	if atk <= 0 {
		return 0
	}
	return math.Max(MinHit, atk-target.ArmorAgainst(attacker.Category))
}

func (r *Resolver) plan(c *combat.ActiveCombat, side combat.Side, dt float64, stretch func(string) float64) []Hit {
	own, enemy := c.Side(side), c.Side(side.Opponent())
	var hits []Hit
	for _, a := range c.Armies(side) {
		if !a.IsActive() {
			continue
		}
		mult := stretch(a.ArmyID)
		for _, t := range a.CurrentUnits.Types() {
			n := a.CurrentUnits[t]
			stats, ok := r.catalog.Get(t)
			if !ok || n <= 0 || !Fires(stats.Category, c.Phase) {
				continue
			}
			target, ok := combat.FindTarget(stats.Category, own.CavalryStance, enemy)
			if !ok {
				return hits
			}
			tstats, ok := r.catalog.Get(target)
			if !ok {
				continue
			}

			amount := BaseDamage(stats, tstats) * float64(n) * r.opts.Rate * dt
			amount *= r.terrainFactor(c, side)
			amount *= r.windowFactor(a, stats.Category, c.ElapsedTime)
			amount *= mult
			amount *= r.roller.Factor()

			hits = append(hits, Hit{
				CombatID:       c.ID,
				Phase:          c.Phase,
				Side:           side,
				ArmyID:         a.ArmyID,
				Source:         t,
				SourceCategory: stats.Category,
				Target:         target,
				TargetCategory: tstats.Category,
				Count:          n,
				Amount:         amount,
			})
		}
	}
	return hits
}

// terrainFactor applies the attacker penalty to attacking volleys and divides
// volleys against the defender by terrain and entrenchment defense.
func (r *Resolver) terrainFactor(c *combat.ActiveCombat, side combat.Side) float64 {
	if side == combat.SideDefender {
		return 1
	}
	defense := c.TerrainDefenseBonus + c.EntrenchmentDefenseBonus
	if defense <= 0 {
		defense = 1
	}
	penalty := c.TerrainAttackPenalty
	if penalty <= 0 {
		penalty = 1
	}
	return penalty / defense
}

func (r *Resolver) windowFactor(a *combat.ArmyState, cat unit.Category, now float64) float64 {
	switch {
	case cat == unit.Cavalry && a.IsInChargeWindow(now):
		return 1 + r.opts.ChargeBonus
	case (cat == unit.Ranged || cat == unit.Siege) && a.IsInRangedWindow(now):
		return 1 + r.opts.RangedWindowBonus
	default:
		return 1
	}
}
