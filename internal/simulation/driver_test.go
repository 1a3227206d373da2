package simulation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/damage"
	"github.com/cory-johannsen/warfront/internal/game/unit"
	"github.com/cory-johannsen/warfront/internal/simulation"
)

func newEngine(t *testing.T, attacker, defender unit.Composition) (*combat.Engine, *unit.Catalog) {
	t.Helper()
	cat, err := unit.NewCatalog(
		&unit.Stats{ID: "militia", Name: "Militia", Category: unit.Infantry, HP: 50, MeleeAttack: 4, Population: 1},
		&unit.Stats{ID: "archer", Name: "Archer", Category: unit.Ranged, HP: 30, PierceAttack: 4, Population: 1},
	)
	require.NoError(t, err)
	reg := army.NewRegistry()
	require.NoError(t, reg.Register(&army.Army{ID: "a", Name: "Red", Owner: "red", Units: attacker}))
	require.NoError(t, reg.Register(&army.Army{ID: "d", Name: "Blue", Owner: "blue", Units: defender}))
	e := combat.NewEngine(cat, nil, reg, combat.DefaultTuning(), zap.NewNop())
	_, err = e.StartCombat(combat.CombatParams{AttackerID: "a", DefenderID: "d"})
	require.NoError(t, err)
	return e, cat
}

func TestDriver_RunHeadless_FinishesCombat(t *testing.T) {
	e, cat := newEngine(t, unit.Composition{"militia": 10, "archer": 5}, unit.Composition{"militia": 4})
	var ended []combat.Event
	sink := func(ev combat.Event) {
		if ev.Kind == combat.EventCombatEnded {
			ended = append(ended, ev)
		}
	}
	d := simulation.NewDriver(e, damage.NewResolver(cat, damage.Options{}, nil, nil), zap.NewNop(), sink)

	s, err := d.RunHeadless(0.1, 600)
	require.NoError(t, err)
	assert.True(t, s.Completed)
	assert.Greater(t, s.Ticks, 0)
	assert.InDelta(t, float64(s.Ticks)*0.1, s.Elapsed, 1e-6)
	require.Len(t, ended, 1)
	assert.Equal(t, combat.ResultAttackerVictory, ended[0].Record.Result)
}

func TestDriver_RunHeadless_StopsAtMaxDuration(t *testing.T) {
	e, _ := newEngine(t, unit.Composition{"militia": 3}, unit.Composition{"militia": 3})
	d := simulation.NewDriver(e, nil, nil)

	s, err := d.RunHeadless(1, 10)
	assert.True(t, errors.Is(err, simulation.ErrMaxDuration))
	assert.False(t, s.Completed)
	assert.Equal(t, 10, s.Ticks)
}

func TestDriver_StepReturnsEventsInOrder(t *testing.T) {
	e, _ := newEngine(t, unit.Composition{"militia": 3}, unit.Composition{"militia": 3})
	var kinds []combat.EventKind
	d := simulation.NewDriver(e, nil, nil, func(ev combat.Event) { kinds = append(kinds, ev.Kind) })

	events := d.Step(5)
	require.NotEmpty(t, events)
	assert.Equal(t, combat.EventCombatStarted, events[0].Kind)
	assert.Len(t, kinds, len(events))
}

func TestDriver_RunRealtime(t *testing.T) {
	e, cat := newEngine(t, unit.Composition{"archer": 20}, unit.Composition{"archer": 1})
	d := simulation.NewDriver(e, damage.NewResolver(cat, damage.Options{Rate: 100}, nil, nil), nil)
	tm := simulation.NewTickManager(5 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tm.Start(ctx)

	s, err := d.RunRealtime(ctx, tm, "realtime", 600)
	require.NoError(t, err)
	assert.True(t, s.Completed)
	assert.Zero(t, tm.Len(), "callback unregistered")
}

func TestDriver_RunRealtime_ContextCancelled(t *testing.T) {
	e, _ := newEngine(t, unit.Composition{"militia": 3}, unit.Composition{"militia": 3})
	d := simulation.NewDriver(e, nil, nil)
	tm := simulation.NewTickManager(5 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	tm.Start(context.Background())

	_, err := d.RunRealtime(ctx, tm, "stuck", 600)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDriver_BeforeSeesElapsedTime(t *testing.T) {
	e, _ := newEngine(t, unit.Composition{"militia": 3}, unit.Composition{"militia": 3})
	d := simulation.NewDriver(e, nil, nil)
	var seen []float64
	d.Before(func(elapsed float64) { seen = append(seen, elapsed) })

	d.Step(0.5)
	d.Step(0.5)
	d.Step(0.5)
	assert.Equal(t, []float64{0, 0.5, 1}, seen)
}
