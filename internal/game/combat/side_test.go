package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

func TestSideState_ExactDamageKillsAllAndRemovesType(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"militia": 10}, "")

	kills := side.ApplyDamage(500, "militia")

	assert.Equal(t, 10, kills)
	assert.NotContains(t, side.UnitCounts, unit.Type("militia"))
	assert.NotContains(t, side.DamageAccumulators, unit.Type("militia"))
	assert.Equal(t, 0, side.TotalUnits())
}

func TestSideState_PartialDamageKeepsRemainder(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"militia": 10}, "")

	kills := side.ApplyDamage(475, "militia")

	assert.Equal(t, 9, kills)
	assert.Equal(t, 1, side.Count("militia"))
	assert.InDelta(t, 25.0, side.DamageAccumulators["militia"], 1e-9)
	assert.InDelta(t, 25.0, side.CurrentTotalHP(), 1e-9)
}

func TestSideState_AccumulatesAcrossCalls(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"militia": 3}, "")

	assert.Equal(t, 0, side.ApplyDamage(30, "militia"))
	assert.Equal(t, 1, side.ApplyDamage(30, "militia"))
	assert.InDelta(t, 10.0, side.DamageAccumulators["militia"], 1e-9)
	assert.InDelta(t, 60.0, side.DamageReceivedByType["militia"], 1e-9)
}

func TestSideState_ApplyDamage_NoOps(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"militia": 2, "ghost": 4}, "")

	assert.Equal(t, 0, side.ApplyDamage(100, "knight"), "absent type")
	assert.Equal(t, 0, side.ApplyDamage(100, "ghost"), "type unknown to the catalog")
	assert.Equal(t, 0, side.ApplyDamage(0, "militia"))
	assert.Equal(t, 0, side.ApplyDamage(-20, "militia"))
	assert.Equal(t, 2, side.Count("militia"))
	assert.Zero(t, side.DamageReceivedByType["militia"])
}

func TestSideState_OverkillClamps(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"militia": 4}, "")
	assert.Equal(t, 4, side.ApplyDamage(1e6, "militia"))
	assert.Equal(t, 0, side.Count("militia"))
}

func TestSideState_CategoryCounts(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{
		"militia": 5, "knight": 2, "archer": 3, "mangonel": 1, "empty": 0,
	}, combat.StanceFlank)

	assert.Equal(t, 5, side.InfantryUnits())
	assert.Equal(t, 2, side.CavalryUnits())
	assert.Equal(t, 7, side.MeleeUnits())
	assert.Equal(t, 3, side.RangedUnits())
	assert.Equal(t, 1, side.SiegeUnits())
	assert.Equal(t, 11, side.TotalUnits())
	assert.NotContains(t, side.UnitCounts, unit.Type("empty"))
	assert.Equal(t, combat.StanceFlank, side.CavalryStance)
}

func TestSideState_MergeGrowsInitialComposition(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"militia": 5}, "")
	side.ApplyDamage(100, "militia")

	side.Merge(unit.Composition{"militia": 2, "archer": 4})

	assert.Equal(t, 5, side.Count("militia"))
	assert.Equal(t, 4, side.Count("archer"))
	assert.Equal(t, unit.Composition{"militia": 7, "archer": 4}, side.InitialComposition)
	assert.InDelta(t, 7*50.0+4*30.0, side.InitialTotalHP(), 1e-9)
}

func TestSideState_RemoveUnits(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"militia": 5, "archer": 2}, "")
	side.ApplyDamage(20, "archer")

	side.RemoveUnits(unit.Composition{"militia": 3, "archer": 5})

	assert.Equal(t, 2, side.Count("militia"))
	assert.NotContains(t, side.UnitCounts, unit.Type("archer"))
	assert.NotContains(t, side.DamageAccumulators, unit.Type("archer"))
}

func TestSideState_TrackDamageDealtNeverChangesCounts(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), unit.Composition{"archer": 2}, "")
	side.TrackDamageDealt(12.5, "archer")
	side.TrackDamageDealt(-3, "archer")
	assert.InDelta(t, 12.5, side.TotalDamageDealt(), 1e-9)
	assert.Equal(t, 2, side.Count("archer"))
}

func TestProperty_SideState_AccumulatorBounds(t *testing.T) {
	cat := testCatalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		initial := rapid.IntRange(1, 60).Draw(rt, "count")
		side := combat.NewSideState(cat, unit.Composition{"militia": initial}, "")
		hits := rapid.SliceOfN(rapid.Float64Range(-10, 400), 1, 40).Draw(rt, "hits")

		killed := 0
		for _, h := range hits {
			before := side.Count("militia")
			k := side.ApplyDamage(h, "militia")
			if k < 0 || k > before {
				rt.Fatalf("kills %d outside [0,%d]", k, before)
			}
			killed += k

			n := side.Count("militia")
			if n < 0 {
				rt.Fatalf("negative count %d", n)
			}
			if n > 0 {
				acc := side.DamageAccumulators["militia"]
				if acc < 0 || acc >= 50 {
					rt.Fatalf("accumulator %v outside [0,50)", acc)
				}
			}
		}
		if killed+side.Count("militia") != initial {
			rt.Fatalf("killed %d + alive %d != initial %d", killed, side.Count("militia"), initial)
		}
	})
}

func TestNewSideState_DefaultsToFrontline(t *testing.T) {
	side := combat.NewSideState(testCatalog(t), nil, "")
	require.NotNil(t, side.UnitCounts)
	assert.Equal(t, combat.StanceFrontline, side.CavalryStance)
	assert.Equal(t, 0, side.TotalUnits())
}
