// Package simulation drives combat engines in wall-clock time.
package simulation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TickFunc advances one registered simulation by dt, the wall-clock time since
// its previous tick.
type TickFunc func(dt time.Duration)

// TickManager runs a periodic tick for each registered simulation.
// Callbacks run sequentially, in ID order, within the manager's goroutine.
//
// Invariant: every callback is invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]TickFunc
	done     chan struct{}
}

// NewTickManager returns a manager that fires ticks every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		panic(fmt.Sprintf("simulation.NewTickManager: interval must be > 0, got %s", interval))
	}
	return &TickManager{
		interval: interval,
		ticks:    make(map[string]TickFunc),
		done:     make(chan struct{}),
	}
}

// Interval returns the tick interval.
func (m *TickManager) Interval() time.Duration { return m.interval }

// RegisterTick registers fn under id. Replaces any existing callback.
func (m *TickManager) RegisterTick(id string, fn TickFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks[id] = fn
}

// Unregister removes the callback for id. It is safe to call from inside a callback.
func (m *TickManager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ticks, id)
}

// Len returns the number of registered callbacks.
func (m *TickManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ticks)
}

// Start begins the tick loop. Runs until ctx is cancelled, then closes Done.
//
// Precondition: Start is called at most once.
// Postcondition: all registered callbacks are invoked once per interval.
func (m *TickManager) Start(ctx context.Context) {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				dt := now.Sub(last)
				last = now
				for _, fn := range m.snapshot() {
					fn(dt)
				}
			}
		}
	}()
}

// Done is closed once the tick loop has exited.
func (m *TickManager) Done() <-chan struct{} { return m.done }

func (m *TickManager) snapshot() []TickFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.ticks))
	for id := range m.ticks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]TickFunc, len(ids))
	for i, id := range ids {
		out[i] = m.ticks[id]
	}
	return out
}
