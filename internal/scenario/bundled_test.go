package scenario_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warfront/internal/game/dice"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
	"github.com/cory-johannsen/warfront/internal/scenario"
	"github.com/cory-johannsen/warfront/internal/simulation"
	"github.com/cory-johannsen/warfront/internal/testutil"
)

func TestBundledScenarios(t *testing.T) {
	root := testutil.RepoRoot(t)
	catalog, err := unit.LoadCatalog(filepath.Join(root, "content", "units"))
	require.NoError(t, err)
	table, err := terrain.LoadTable(filepath.Join(root, "content", "terrain.yaml"))
	require.NoError(t, err)

	paths, err := filepath.Glob(filepath.Join(root, "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			sc, err := scenario.Load(path)
			require.NoError(t, err)
			require.NoError(t, sc.Validate(catalog))

			r := scenario.NewRunner(catalog, table, scenario.Options{
				Step:   0.25,
				Source: dice.NewSeededSource(42),
			}, nil)
			res, err := r.Run(context.Background(), sc)
			if err != nil {
				assert.True(t, errors.Is(err, simulation.ErrMaxDuration), "unexpected error: %v", err)
			}
			require.NotNil(t, res)
			assert.Len(t, res.Armies, len(sc.Armies))
		})
	}
}
