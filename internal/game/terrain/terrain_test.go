package terrain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warfront/internal/game/terrain"
)

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
terrain:
  - type: forest
    defender_defense_bonus: 1.25
    attacker_attack_penalty: 0.9
    movement_cost: 2
  - type: plains
    defender_defense_bonus: 1.0
    attacker_attack_penalty: 1.0
    movement_cost: 1
`), 0644))

	tbl, err := terrain.LoadTable(path)
	require.NoError(t, err)
	forest := tbl.Lookup("forest")
	assert.Equal(t, 1.25, forest.DefenderDefenseBonus)
	assert.Equal(t, 0.9, forest.AttackerAttackPenalty)
}

func TestTable_LookupUnknownIsNeutral(t *testing.T) {
	tbl, err := terrain.NewTable()
	require.NoError(t, err)
	m := tbl.Lookup("swamp")
	assert.Equal(t, terrain.Type("swamp"), m.Type)
	assert.Equal(t, 1.0, m.DefenderDefenseBonus)
	assert.Equal(t, 1.0, m.AttackerAttackPenalty)
}

func TestNewTable_RejectsZeroMultiplier(t *testing.T) {
	_, err := terrain.NewTable(terrain.Modifiers{Type: "lava", DefenderDefenseBonus: 0, AttackerAttackPenalty: 1, MovementCost: 1})
	assert.Error(t, err)
}
