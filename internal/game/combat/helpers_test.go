package combat_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

func testCatalog(t *testing.T) *unit.Catalog {
	t.Helper()
	cat, err := unit.NewCatalog(
		&unit.Stats{ID: "militia", Name: "Militia", Category: unit.Infantry, HP: 50, MeleeAttack: 4, Population: 1},
		&unit.Stats{ID: "spearman", Name: "Spearman", Category: unit.Infantry, HP: 45, MeleeAttack: 3, Population: 1},
		&unit.Stats{ID: "knight", Name: "Knight", Category: unit.Cavalry, HP: 100, MeleeAttack: 10, MeleeArmor: 2, PierceArmor: 2, Population: 2},
		&unit.Stats{ID: "archer", Name: "Archer", Category: unit.Ranged, HP: 30, PierceAttack: 4, Population: 1},
		&unit.Stats{ID: "crossbow", Name: "Crossbowman", Category: unit.Ranged, HP: 35, PierceAttack: 5, Population: 1},
		&unit.Stats{ID: "mangonel", Name: "Mangonel", Category: unit.Siege, HP: 60, PierceAttack: 20, Population: 3},
	)
	require.NoError(t, err)
	return cat
}

var forest = terrain.Modifiers{Type: "forest", DefenderDefenseBonus: 1.25, AttackerAttackPenalty: 0.9, MovementCost: 2}

func snapshot(id string, units unit.Composition) army.Snapshot {
	return army.Snapshot{ID: id, Name: "Army " + id, Owner: "owner-" + id, Military: units}
}

func newCombat(t *testing.T, attacker, defender unit.Composition) *combat.ActiveCombat {
	t.Helper()
	return combat.NewActiveCombat(combat.Params{
		ID:       "c1",
		Attacker: snapshot("a", attacker),
		Defender: snapshot("d", defender),
		Terrain:  forest,
		Catalog:  testCatalog(t),
		Tuning:   combat.DefaultTuning(),
	})
}

// wipe kills every unit on the opposing side of from.
func wipe(c *combat.ActiveCombat, from combat.Side) {
	armyID := ""
	if armies := c.Armies(from); len(armies) > 0 {
		armyID = armies[0].ArmyID
	}
	for _, t := range c.Side(from.Opponent()).UnitCounts.Types() {
		c.DealDamage(from, armyID, "militia", t, 1e9)
	}
}

// fakeArena backs stack combat tests with in-memory engagements.
type fakeArena struct {
	t       require.TestingT
	catalog *unit.Catalog
	armies  map[string]unit.Composition
	combats map[string]*combat.ActiveCombat
	seq     int
}

func newFakeArena(t *testing.T, ids ...string) *fakeArena {
	a := &fakeArena{
		t:       t,
		catalog: testCatalog(t),
		armies:  make(map[string]unit.Composition),
		combats: make(map[string]*combat.ActiveCombat),
	}
	for _, id := range ids {
		a.armies[id] = unit.Composition{"militia": 5}
	}
	return a
}

func (a *fakeArena) Available(id string) bool { return a.armies[id].Total() > 0 }

func (a *fakeArena) StartPairing(s *combat.StackCombat, attackerID, defenderID string) (string, error) {
	a.seq++
	id := fmt.Sprintf("p%d", a.seq)
	a.combats[id] = combat.NewActiveCombat(combat.Params{
		ID:       id,
		Attacker: snapshot(attackerID, a.armies[attackerID]),
		Defender: snapshot(defenderID, a.armies[defenderID]),
		Location: s.Location,
		Terrain:  s.Terrain,
		Catalog:  a.catalog,
		StackID:  s.ID,
	})
	return id, nil
}

func (a *fakeArena) Reinforce(combatID string, side combat.Side, armyID string) error {
	c, ok := a.combats[combatID]
	if !ok {
		return combat.ErrCombatNotFound
	}
	if c.AddReinforcement(side, snapshot(armyID, a.armies[armyID])) == nil {
		return fmt.Errorf("cannot join")
	}
	return nil
}

func (a *fakeArena) Combat(id string) (*combat.ActiveCombat, bool) {
	c, ok := a.combats[id]
	return c, ok
}

// resolve ends the engagement of p with winner; an empty winner is a draw.
func (a *fakeArena) resolve(p *combat.Pairing, winner combat.Side) {
	c := a.combats[p.ActiveCombatID]
	require.NotNil(a.t, c)
	switch winner {
	case combat.SideAttacker, combat.SideDefender:
		wipe(c, winner)
	default:
		wipe(c, combat.SideAttacker)
		wipe(c, combat.SideDefender)
	}
	require.True(a.t, c.Finish())
}
