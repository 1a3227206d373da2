package combat_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

func TestNewActiveCombat_Initial(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 5}, unit.Composition{"archer": 3})

	assert.Equal(t, combat.PhaseRangedExchange, c.Phase)
	assert.Zero(t, c.ElapsedTime)
	assert.Equal(t, terrain.Type("forest"), c.TerrainType)
	assert.InDelta(t, 1.25, c.TerrainDefenseBonus, 1e-9)
	assert.InDelta(t, 0.9, c.TerrainAttackPenalty, 1e-9)
	assert.Zero(t, c.EntrenchmentDefenseBonus)
	require.Len(t, c.AttackerArmies, 1)
	require.Len(t, c.DefenderArmies, 1)
	assert.False(t, c.AttackerArmies[0].IsReinforcement())
	assert.Empty(t, c.PhaseRecords)
}

func TestNewActiveCombat_EntrenchedDefender(t *testing.T) {
	def := snapshot("d", unit.Composition{"militia": 5})
	def.Entrenched = true
	c := combat.NewActiveCombat(combat.Params{
		ID:       "c1",
		Attacker: snapshot("a", unit.Composition{"militia": 5}),
		Defender: def,
		Catalog:  testCatalog(t),
	})
	assert.InDelta(t, combat.DefaultEntrenchmentDefenseBonus, c.EntrenchmentDefenseBonus, 1e-9)
	assert.InDelta(t, 1.0, c.TerrainDefenseBonus, 1e-9, "missing terrain falls back to neutral")
	assert.InDelta(t, combat.DefaultMeleeThreshold, c.Tuning.MeleeThreshold, 1e-9)
}

func TestActiveCombat_RangedToMeleeAtThreshold(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 5}, unit.Composition{"militia": 5})

	c.Advance(2.9)
	assert.False(t, c.UpdatePhase())
	assert.Equal(t, combat.PhaseRangedExchange, c.Phase)

	c.Advance(0.2)
	assert.True(t, c.UpdatePhase())
	assert.Equal(t, combat.PhaseMeleeEngagement, c.Phase)
	require.Len(t, c.PhaseRecords, 1)
	assert.Equal(t, combat.PhaseRangedExchange, c.PhaseRecords[0].Phase)
	assert.InDelta(t, 3.1, c.PhaseRecords[0].Duration, 1e-9)

	assert.False(t, c.UpdatePhase(), "both sides still hold melee units")
	assert.Len(t, c.PhaseRecords, 1)
}

func TestActiveCombat_MeleeToCleanupToEnded(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 5}, unit.Composition{"militia": 2, "archer": 3})
	c.Advance(3)
	require.True(t, c.UpdatePhase())

	kills := c.DealDamage(combat.SideAttacker, "a", "militia", "militia", 100)
	assert.Equal(t, 2, kills)
	assert.Equal(t, 0, c.Defender.MeleeUnits())

	c.Advance(1)
	assert.True(t, c.UpdatePhase())
	assert.Equal(t, combat.PhaseCleanup, c.Phase)
	require.Len(t, c.PhaseRecords, 2)
	assert.Equal(t, combat.PhaseMeleeEngagement, c.PhaseRecords[1].Phase)
	assert.InDelta(t, 100.0, c.PhaseRecords[1].AttackerDamageDealt, 1e-9)
	assert.Equal(t, map[unit.Type]int{"militia": 2}, c.PhaseRecords[1].DefenderCasualtiesByType)

	assert.False(t, c.UpdatePhase(), "defender still has archers")
	c.DealDamage(combat.SideAttacker, "a", "militia", "archer", 90)
	assert.True(t, c.ShouldEnd())
	assert.True(t, c.UpdatePhase())
	assert.Equal(t, combat.PhaseEnded, c.Phase)
	assert.Len(t, c.PhaseRecords, 3)
	assert.Equal(t, combat.ResultAttackerVictory, c.Winner())

	c.Advance(5)
	assert.InDelta(t, 4.0, c.ElapsedTime, 1e-9, "ended combats do not advance")
	assert.False(t, c.UpdatePhase())
	assert.Zero(t, c.DealDamage(combat.SideAttacker, "a", "militia", "militia", 10))
}

func TestActiveCombat_FinishFromRangedExchange(t *testing.T) {
	c := newCombat(t, unit.Composition{"archer": 5}, unit.Composition{"militia": 1})
	c.Advance(1)
	c.DealDamage(combat.SideAttacker, "a", "archer", "militia", 60)

	assert.False(t, c.UpdatePhase(), "threshold not yet reached")
	assert.True(t, c.Finish())
	assert.Equal(t, combat.PhaseEnded, c.Phase)
	require.Len(t, c.PhaseRecords, 1)
	assert.Equal(t, combat.PhaseRangedExchange, c.PhaseRecords[0].Phase)
	assert.False(t, c.Finish())
}

func TestActiveCombat_FinishRequiresEmptySide(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 1}, unit.Composition{"militia": 1})
	assert.False(t, c.Finish())
	assert.Equal(t, combat.PhaseRangedExchange, c.Phase)
}

func TestActiveCombat_EmptySideHasAlreadyLost(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 3}, nil)
	assert.True(t, c.ShouldEnd())
	assert.Equal(t, combat.ResultAttackerVictory, c.Winner())

	draw := newCombat(t, nil, nil)
	assert.Equal(t, combat.ResultDraw, draw.Winner())
}

func TestActiveCombat_Reinforcement(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 5}, unit.Composition{"militia": 5})
	c.Advance(5)

	r := c.AddReinforcement(combat.SideAttacker, snapshot("r", unit.Composition{"knight": 2}))
	require.NotNil(t, r)
	assert.InDelta(t, 5.0, r.JoinTime, 1e-9)
	assert.True(t, r.IsInChargeWindow(7.9))
	assert.False(t, r.IsInChargeWindow(8))
	assert.Equal(t, 2, c.Attacker.Count("knight"))
	assert.Equal(t, unit.Composition{"militia": 5, "knight": 2}, c.Attacker.InitialComposition)
	assert.Equal(t, []string{"a", "r"}, c.ArmyIDs(combat.SideAttacker))

	assert.Nil(t, c.AddReinforcement(combat.SideDefender, snapshot("r", unit.Composition{"knight": 1})), "already fighting")

	wipe(c, combat.SideAttacker)
	require.True(t, c.Finish())
	assert.Nil(t, c.AddReinforcement(combat.SideDefender, snapshot("late", unit.Composition{"militia": 1})))
}

func TestActiveCombat_WithdrawnArmyCannotRejoin(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 10}, unit.Composition{"militia": 50})
	require.NotNil(t, c.AddReinforcement(combat.SideAttacker, snapshot("x", unit.Composition{"knight": 5})))
	require.Equal(t, 4, c.DealDamage(combat.SideDefender, "d", "militia", "militia", 200))
	require.True(t, c.WithdrawArmy("a"))

	assert.Nil(t, c.AddReinforcement(combat.SideAttacker, snapshot("a", unit.Composition{"militia": 10})))
	assert.Equal(t, 0, c.Attacker.Count("militia"))
	assert.Equal(t, []string{"a", "x"}, c.ArmyIDs(combat.SideAttacker))
}

func TestActiveCombat_CasualtyDeltasSumSharedArmyID(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 10}, unit.Composition{"militia": 50})
	require.Equal(t, 4, c.DealDamage(combat.SideDefender, "d", "militia", "militia", 200))
	c.AttackerArmies = append(c.AttackerArmies, &combat.ArmyState{
		ArmyID:           "a",
		CasualtiesByType: map[unit.Type]int{"militia": 2, "knight": 1},
	})

	assert.Equal(t, unit.Composition{"militia": 6, "knight": 1}, c.CasualtyDeltas()["a"])
}

func TestActiveCombat_CasualtiesAttributedInJoinOrder(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 5}, unit.Composition{"knight": 5})
	require.NotNil(t, c.AddReinforcement(combat.SideAttacker, snapshot("r", unit.Composition{"militia": 3})))

	kills := c.DealDamage(combat.SideDefender, "d", "knight", "militia", 300)

	assert.Equal(t, 6, kills)
	a, _, _ := c.Army("a")
	r, _, _ := c.Army("r")
	assert.Equal(t, 5, a.TotalCasualties())
	assert.Equal(t, 1, r.TotalCasualties())
	assert.Equal(t, map[string]unit.Composition{
		"a": {"militia": 5},
		"r": {"militia": 1},
	}, c.CasualtyDeltas())

	d, side, ok := c.Army("d")
	require.True(t, ok)
	assert.Equal(t, combat.SideDefender, side)
	assert.InDelta(t, 300.0, d.DamageDealtByType["knight"], 1e-9)
}

func TestActiveCombat_WithdrawArmy(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 5}, unit.Composition{"militia": 4})

	assert.True(t, c.WithdrawArmy("d"))
	assert.False(t, c.WithdrawArmy("d"))
	assert.False(t, c.WithdrawArmy("nobody"))
	assert.Equal(t, combat.PhaseRangedExchange, c.Phase, "withdrawal does not abort")
	assert.True(t, c.ShouldEnd())
	assert.Equal(t, combat.ResultAttackerVictory, c.Winner())
	assert.True(t, c.Finish())
}

func TestActiveCombat_AbsentTargetRecordsNothing(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 5}, unit.Composition{"militia": 4})
	assert.Zero(t, c.DealDamage(combat.SideAttacker, "a", "militia", "knight", 50))
	assert.Zero(t, c.PhaseAttackerDamage)
	assert.Zero(t, c.Attacker.TotalDamageDealt())
}

func TestProperty_RecordPhaseCompletion_ResetsAccumulators(t *testing.T) {
	cat := testCatalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		c := combat.NewActiveCombat(combat.Params{
			ID:       "c",
			Attacker: snapshot("a", unit.Composition{"militia": 50}),
			Defender: snapshot("d", unit.Composition{"militia": 50}),
			Catalog:  cat,
		})
		c.Advance(rapid.Float64Range(0, 10).Draw(rt, "elapsed"))
		for _, amt := range rapid.SliceOfN(rapid.Float64Range(0, 120), 0, 10).Draw(rt, "hits") {
			c.DealDamage(combat.SideAttacker, "a", "militia", "militia", amt)
			c.DealDamage(combat.SideDefender, "d", "militia", "militia", amt/2)
		}
		before := len(c.PhaseRecords)

		c.RecordPhaseCompletion(c.Phase)

		if len(c.PhaseRecords) != before+1 {
			rt.Fatalf("expected one new record, got %d", len(c.PhaseRecords)-before)
		}
		if c.PhaseAttackerDamage != 0 || c.PhaseDefenderDamage != 0 {
			rt.Fatalf("phase damage not reset: %v %v", c.PhaseAttackerDamage, c.PhaseDefenderDamage)
		}
		if len(c.PhaseAttackerCasualties) != 0 || len(c.PhaseDefenderCasualties) != 0 {
			rt.Fatalf("phase casualties not reset")
		}
		if c.PhaseStartTime != c.ElapsedTime {
			rt.Fatalf("phase start %v != elapsed %v", c.PhaseStartTime, c.ElapsedTime)
		}
	})
}

func TestActiveCombat_JSONRoundTrip(t *testing.T) {
	c := newCombat(t, unit.Composition{"militia": 10, "archer": 4}, unit.Composition{"spearman": 8, "knight": 2})
	c.Advance(1.5)
	c.DealDamage(combat.SideAttacker, "a", "archer", "spearman", 70)
	c.Advance(2)
	require.True(t, c.UpdatePhase())
	c.DealDamage(combat.SideDefender, "d", "knight", "militia", 133.25)
	require.NotNil(t, c.AddReinforcement(combat.SideDefender, army.Snapshot{ID: "r", Military: unit.Composition{"militia": 2}}))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	var got combat.ActiveCombat
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, c.Phase, got.Phase)
	assert.Equal(t, c.ElapsedTime, got.ElapsedTime)
	assert.Equal(t, c.Attacker.UnitCounts, got.Attacker.UnitCounts)
	assert.Equal(t, c.Attacker.DamageAccumulators, got.Attacker.DamageAccumulators)
	assert.Equal(t, c.Defender.UnitCounts, got.Defender.UnitCounts)
	assert.Equal(t, c.Defender.DamageAccumulators, got.Defender.DamageAccumulators)
	assert.Equal(t, c.Defender.InitialComposition, got.Defender.InitialComposition)
	assert.Equal(t, c.PhaseRecords, got.PhaseRecords)
	require.Len(t, got.DefenderArmies, 2)
	require.NotNil(t, got.DefenderArmies[1].ChargePhaseEndTime)
	assert.InDelta(t, 6.5, *got.DefenderArmies[1].ChargePhaseEndTime, 1e-9)

	raw := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "melee_engagement", raw["phase"], "phases persist as string tags")
}
