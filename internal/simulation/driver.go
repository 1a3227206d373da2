package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/combat"
)

// ErrMaxDuration is returned when a run hits its simulated time limit before the
// engine goes idle.
var ErrMaxDuration = errors.New("simulation reached its maximum duration")

// EventSink receives every engine event in emission order.
type EventSink func(combat.Event)

// BeforeTick runs before each engine tick with the simulated time elapsed so far.
type BeforeTick func(elapsed float64)

// Summary describes a finished run.
type Summary struct {
	Ticks   int
	Elapsed float64 // simulated seconds
	// Completed is true when every combat ended before the time limit.
	Completed bool
}

// Driver steps one combat.Engine with a damage step and fans the resulting events
// out to its sinks. It is safe for concurrent use.
type Driver struct {
	engine *combat.Engine
	step   combat.DamageStep
	sinks  []EventSink
	before []BeforeTick
	logger *zap.Logger

	mu      sync.Mutex
	ticks   int
	elapsed float64
}

// NewDriver creates a Driver.
//
// Precondition: engine must be non-nil. A nil step runs the phase machine without damage.
func NewDriver(engine *combat.Engine, step combat.DamageStep, logger *zap.Logger, sinks ...EventSink) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{engine: engine, step: step, sinks: sinks, logger: logger}
}

// Before registers fn to run ahead of every subsequent tick.
func (d *Driver) Before(fn BeforeTick) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.before = append(d.before, fn)
}

// Step advances the engine by dt simulated seconds.
//
// Postcondition: Returns the tick's events after every sink has seen them.
func (d *Driver) Step(dt float64) []combat.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, fn := range d.before {
		fn(d.elapsed)
	}
	events := d.engine.Tick(dt, d.step)
	d.ticks++
	d.elapsed += dt
	for _, ev := range events {
		for _, sink := range d.sinks {
			sink(ev)
		}
	}
	return events
}

// Summary returns the progress so far.
func (d *Driver) Summary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Summary{Ticks: d.ticks, Elapsed: d.elapsed, Completed: d.engine.Idle()}
}

// RunHeadless steps the engine with a fixed dt as fast as possible until it is
// idle or maxDuration simulated seconds have passed.
//
// Precondition: dt > 0.
// Postcondition: Returns ErrMaxDuration iff the engine is still busy at the limit.
func (d *Driver) RunHeadless(dt, maxDuration float64) (Summary, error) {
	for !d.engine.Idle() {
		if d.Summary().Elapsed >= maxDuration {
			return d.finish(ErrMaxDuration)
		}
		d.Step(dt)
	}
	return d.finish(nil)
}

// RunRealtime registers the Driver with tm under id and steps it with measured
// wall-clock time until the engine is idle, maxDuration simulated seconds have
// passed, ctx is cancelled, or tm stops.
//
// Precondition: tm must be started, or be started by the caller concurrently.
// Postcondition: The callback is unregistered before returning.
func (d *Driver) RunRealtime(ctx context.Context, tm *TickManager, id string, maxDuration float64) (Summary, error) {
	finished := make(chan error, 1)
	var once sync.Once
	signal := func(err error) { once.Do(func() { finished <- err }) }

	tm.RegisterTick(id, func(dt time.Duration) {
		if d.engine.Idle() {
			signal(nil)
			return
		}
		if d.Summary().Elapsed >= maxDuration {
			signal(ErrMaxDuration)
			return
		}
		d.Step(dt.Seconds())
		if d.engine.Idle() {
			signal(nil)
		}
	})
	defer tm.Unregister(id)

	select {
	case err := <-finished:
		return d.finish(err)
	case <-ctx.Done():
		return d.finish(ctx.Err())
	case <-tm.Done():
		return d.finish(errors.New("tick manager stopped"))
	}
}

func (d *Driver) finish(err error) (Summary, error) {
	s := d.Summary()
	fields := []zap.Field{
		zap.Int("ticks", s.Ticks),
		zap.String("elapsed", combat.FormatDuration(s.Elapsed)),
		zap.Bool("completed", s.Completed),
	}
	if err != nil {
		d.logger.Warn("simulation stopped", append(fields, zap.Error(err))...)
		return s, err
	}
	d.logger.Info("simulation finished", fields...)
	return s, nil
}
