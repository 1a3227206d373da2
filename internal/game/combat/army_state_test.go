package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

func TestNewArmyState_OriginalHasNoWindows(t *testing.T) {
	a := combat.NewArmyState(snapshot("a", unit.Composition{"militia": 4}), 0, false, 3)

	assert.False(t, a.IsReinforcement())
	assert.Nil(t, a.ChargePhaseEndTime)
	assert.Nil(t, a.RangedPhaseEndTime)
	assert.False(t, a.IsInChargeWindow(0))
	assert.False(t, a.IsInRangedWindow(0))
}

func TestNewArmyState_ReinforcementWindowsAreHalfOpen(t *testing.T) {
	a := combat.NewArmyState(snapshot("r", unit.Composition{"knight": 2}), 4, true, 3)

	require.True(t, a.IsReinforcement())
	assert.InDelta(t, 7.0, *a.ChargePhaseEndTime, 1e-9)
	assert.InDelta(t, 7.0, *a.RangedPhaseEndTime, 1e-9)
	assert.True(t, a.IsInChargeWindow(4))
	assert.True(t, a.IsInChargeWindow(6.99))
	assert.False(t, a.IsInChargeWindow(7))
	assert.True(t, a.IsInRangedWindow(5))
	assert.False(t, a.IsInRangedWindow(7.5))
}

func TestNewArmyState_NonPositiveWindowUsesDefault(t *testing.T) {
	a := combat.NewArmyState(snapshot("r", unit.Composition{"knight": 1}), 2, true, 0)
	assert.InDelta(t, 2+combat.DefaultReinforcementWindow, *a.ChargePhaseEndTime, 1e-9)
}

func TestNewArmyState_CopiesComposition(t *testing.T) {
	units := unit.Composition{"militia": 4}
	a := combat.NewArmyState(snapshot("a", units), 0, false, 3)
	units["militia"] = 99

	assert.Equal(t, 4, a.InitialComposition["militia"])
	assert.Equal(t, 4, a.CurrentUnits["militia"])
}

func TestNewArmyState_NameFallbacks(t *testing.T) {
	a := combat.NewArmyState(army.Snapshot{ID: "x", Name: "Lost Legion"}, 0, false, 3)
	assert.Equal(t, "Lost Legion", a.ArmyName)
	assert.Equal(t, army.UnknownName, a.OwnerName)
	assert.Equal(t, army.UnknownName, a.CommanderName)
}

func TestArmyState_ApplyCasualtiesClamps(t *testing.T) {
	a := combat.NewArmyState(snapshot("a", unit.Composition{"militia": 5, "archer": 1}), 0, false, 3)

	assert.Equal(t, 5, a.ApplyCasualties("militia", 8))
	assert.Equal(t, 0, a.ApplyCasualties("militia", 1))
	assert.Equal(t, 0, a.ApplyCasualties("archer", 0))

	assert.NotContains(t, a.CurrentUnits, unit.Type("militia"))
	assert.Equal(t, 1, a.TotalUnits())
	assert.Equal(t, 5, a.TotalCasualties())
	assert.Equal(t, unit.Composition{"militia": 5}, a.Casualties())
	assert.True(t, a.IsActive())

	a.Withdrawn = true
	assert.False(t, a.IsActive())
}

func TestArmyState_TrackDamageDealt(t *testing.T) {
	a := combat.NewArmyState(snapshot("a", unit.Composition{"archer": 3}), 0, false, 3)
	a.TrackDamageDealt(10, "archer")
	a.TrackDamageDealt(2.5, "archer")
	a.TrackDamageDealt(-1, "archer")
	assert.InDelta(t, 12.5, a.TotalDamageDealt(), 1e-9)
}
