package scenario

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/army"
	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/damage"
	"github.com/cory-johannsen/warfront/internal/game/dice"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
	"github.com/cory-johannsen/warfront/internal/scripting"
	"github.com/cory-johannsen/warfront/internal/simulation"
)

const (
	// DefaultStep is the simulated seconds per headless tick.
	DefaultStep = 0.1
	// DefaultMaxDuration stops a run that never resolves.
	DefaultMaxDuration = 600.0
)

// StatusDestroyed reports an army removed from the registry after losing every unit.
const StatusDestroyed army.Status = "destroyed"

// Options configures a Runner. Zero fields take defaults.
type Options struct {
	Tuning combat.Tuning
	Damage damage.Options
	// Step is the simulated seconds per headless tick.
	Step float64
	// MaxDuration caps simulated seconds per run.
	MaxDuration float64
	// TickInterval runs the scenario in wall-clock time when > 0.
	TickInterval time.Duration
	// InstructionLimit bounds each Lua hook call.
	InstructionLimit int
	// Source overrides the scenario seed.
	Source dice.Source
	// Sinks receive every engine event after the runner's own bookkeeping.
	Sinks []simulation.EventSink
}

// ArmyOutcome is the state of one declared army after the run.
type ArmyOutcome struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Owner  string           `json:"owner"`
	Status army.Status      `json:"status"`
	Units  unit.Composition `json:"units"`
}

// Result summarizes a finished scenario run.
type Result struct {
	Scenario     string                        `json:"scenario"`
	Mode         Mode                          `json:"mode"`
	Ticks        int                           `json:"ticks"`
	Elapsed      float64                       `json:"elapsed"`
	Completed    bool                          `json:"completed"`
	Events       int                           `json:"events"`
	StackOutcome combat.StackOutcome           `json:"stack_outcome,omitempty"`
	Records      []combat.DetailedCombatRecord `json:"records"`
	Armies       []ArmyOutcome                 `json:"armies"`
	// Engine holds the final engine state, e.g. for snapshotting.
	Engine *combat.Engine `json:"-"`
}

// Runner plays scenarios against a shared unit catalog and terrain table.
// Each Run builds its own registry and engine, so a Runner is safe for concurrent use.
type Runner struct {
	catalog *unit.Catalog
	terrain *terrain.Table
	opts    Options
	logger  *zap.Logger
}

// NewRunner creates a Runner.
//
// Precondition: catalog must be non-nil. A nil table resolves all terrain to neutral.
func NewRunner(catalog *unit.Catalog, table *terrain.Table, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	return &Runner{catalog: catalog, terrain: table, opts: opts, logger: logger}
}

// Run validates sc, places its armies, starts the engagement and ticks it until
// every combat has ended.
//
// Postcondition: On simulation.ErrMaxDuration or context cancellation the partial
// Result is returned alongside the error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	if err := sc.Validate(r.catalog); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := r.logger.With(zap.String("scenario", sc.Name))

	reg := army.NewRegistry()
	for _, spec := range sc.Armies {
		if err := reg.Register(sc.Army(spec)); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	}
	engine := combat.NewEngine(r.catalog, r.terrain, reg, r.opts.Tuning, logger)
	src := r.source(sc)

	res := &Result{Scenario: sc.Name, Mode: sc.Mode, Engine: engine}
	sinks := []simulation.EventSink{func(ev combat.Event) {
		res.Events++
		if ev.Kind == combat.EventCombatEnded && ev.Record != nil {
			res.Records = append(res.Records, *ev.Record)
		}
	}}
	sinks = append(sinks, r.opts.Sinks...)

	dmg := r.opts.Damage
	if path := sc.ScriptPath(); path != "" {
		mgr, err := r.loadScript(sc.Name, path, src, logger)
		if err != nil {
			return nil, err
		}
		defer mgr.Close()
		if mod := mgr.DamageModifier(sc.Name); mod != nil {
			dmg.Modifier = chain(dmg.Modifier, mod)
		}
		if mgr.HasHook(sc.Name, scripting.HookOnEvent) {
			sinks = append(sinks, func(ev combat.Event) { mgr.NotifyEvent(sc.Name, ev) })
		}
	}

	resolver := damage.NewResolver(r.catalog, dmg, src, logger)
	driver := simulation.NewDriver(engine, resolver, logger, sinks...)

	combatID, stackID, err := r.start(engine, sc)
	if err != nil {
		return nil, err
	}
	actions, err := r.schedule(engine, sc, combatID, stackID)
	if err != nil {
		return nil, err
	}
	next := 0
	driver.Before(func(elapsed float64) {
		for ; next < len(actions) && actions[next].at <= elapsed; next++ {
			if err := actions[next].run(); err != nil {
				logger.Warn("scenario action skipped", zap.String("action", actions[next].desc), zap.Error(err))
				continue
			}
			logger.Debug("scenario action", zap.String("action", actions[next].desc), zap.Float64("elapsed", elapsed))
		}
	})

	logger.Info("scenario started",
		zap.String("mode", string(sc.Mode)),
		zap.Int("armies", len(sc.Armies)),
		zap.Int("actions", len(actions)),
		zap.Bool("realtime", r.opts.TickInterval > 0),
	)

	summary, runErr := r.drive(ctx, driver, sc.Name)
	res.Ticks = summary.Ticks
	res.Elapsed = summary.Elapsed
	res.Completed = summary.Completed
	if stackID != "" {
		if s, ok := engine.Stack(stackID); ok {
			res.StackOutcome = s.Outcome()
		}
	}
	res.Armies = outcomes(reg, sc)

	if runErr != nil {
		return res, fmt.Errorf("running scenario %q: %w", sc.Name, runErr)
	}
	logger.Info("scenario finished",
		zap.Int("records", len(res.Records)),
		zap.String("elapsed", combat.FormatDuration(res.Elapsed)),
	)
	return res, nil
}

func (r *Runner) source(sc *Scenario) dice.Source {
	switch {
	case r.opts.Source != nil:
		return r.opts.Source
	case sc.Seed != 0:
		return dice.NewSeededSource(sc.Seed)
	default:
		return dice.NewCryptoSource()
	}
}

func (r *Runner) loadScript(scope, path string, src dice.Source, logger *zap.Logger) (*scripting.Manager, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario script %q: %w", path, err)
	}
	mgr := scripting.NewManager(src, logger)
	if err := mgr.LoadString(scope, path, string(body), r.opts.InstructionLimit); err != nil {
		mgr.Close()
		return nil, err
	}
	return mgr, nil
}

func (r *Runner) start(engine *combat.Engine, sc *Scenario) (combatID, stackID string, err error) {
	switch sc.Mode {
	case ModeSingle:
		c, err := engine.StartCombat(combat.CombatParams{
			AttackerID:     sc.Attackers[0],
			DefenderID:     sc.Defender,
			Location:       sc.Location,
			TerrainType:    sc.Terrain,
			AttackerStance: sc.AttackerStance,
			DefenderStance: sc.DefenderStance,
		})
		if err != nil {
			return "", "", fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		return c.ID, "", nil
	default:
		s, err := engine.StartStack(combat.StackStartParams{
			Location:    sc.Location,
			TerrainType: sc.Terrain,
			AttackerIDs: sc.Attackers,
		})
		if err != nil {
			return "", "", fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		return "", s.ID, nil
	}
}

func (r *Runner) schedule(engine *combat.Engine, sc *Scenario, combatID, stackID string) ([]action, error) {
	var actions []action
	for _, re := range sc.Reinforcements {
		at, err := parseAt(re.At)
		if err != nil {
			return nil, err
		}
		side, id := re.Side, re.Army
		actions = append(actions, action{
			at:    at,
			order: len(actions),
			desc:  fmt.Sprintf("reinforce %s with %s", side, id),
			run:   func() error { return engine.QueueReinforcement(combatID, side, id) },
		})
	}
	for _, rt := range sc.Retreats {
		at, err := parseAt(rt.At)
		if err != nil {
			return nil, err
		}
		id := rt.Army
		run := func() error { return engine.RetreatFromCombat(combatID, id) }
		if stackID != "" {
			run = func() error { return engine.Retreat(stackID, id) }
		}
		actions = append(actions, action{at: at, order: len(actions), desc: "retreat " + id, run: run})
	}
	return timeline(actions), nil
}

func (r *Runner) drive(ctx context.Context, driver *simulation.Driver, id string) (simulation.Summary, error) {
	if r.opts.TickInterval <= 0 {
		return driver.RunHeadless(r.opts.Step, r.opts.MaxDuration)
	}
	runCtx, cancel := context.WithCancel(ctx)
	tm := simulation.NewTickManager(r.opts.TickInterval)
	tm.Start(runCtx)
	summary, err := driver.RunRealtime(runCtx, tm, id, r.opts.MaxDuration)
	cancel()
	<-tm.Done()
	return summary, err
}

func outcomes(reg *army.Registry, sc *Scenario) []ArmyOutcome {
	out := make([]ArmyOutcome, 0, len(sc.Armies))
	for _, spec := range sc.Armies {
		o := ArmyOutcome{ID: spec.ID, Name: spec.Name, Owner: spec.Owner, Status: StatusDestroyed, Units: unit.Composition{}}
		if snap, ok := reg.Snapshot(spec.ID); ok {
			o.Name = snap.Name
			o.Units = snap.Military
			if st, ok := reg.Status(spec.ID); ok {
				o.Status = st
			}
		}
		out = append(out, o)
	}
	return out
}

// chain applies first, then second. A nil first yields second.
func chain(first, second damage.Modifier) damage.Modifier {
	if first == nil {
		return second
	}
	return damage.ModifierFunc(func(h damage.Hit) float64 {
		h.Amount = first.Modify(h)
		return second.Modify(h)
	})
}
