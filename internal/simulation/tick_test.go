package simulation_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/warfront/internal/simulation"
)

func TestNewTickManager_PanicsOnNonPositiveInterval(t *testing.T) {
	assert.Panics(t, func() { simulation.NewTickManager(0) })
	assert.Panics(t, func() { simulation.NewTickManager(-time.Second) })
}

func TestTickManager_StartsAndStops(t *testing.T) {
	tm := simulation.NewTickManager(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	tm.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-tm.Done():
	case <-time.After(time.Second):
		t.Fatal("tick loop did not exit after cancel")
	}
}

func TestTickManager_TickCallbackInvokedWithElapsedTime(t *testing.T) {
	tm := simulation.NewTickManager(20 * time.Millisecond)
	got := make(chan time.Duration, 1)
	tm.RegisterTick("sim1", func(dt time.Duration) {
		select {
		case got <- dt:
		default:
		}
	})
	require.Equal(t, 1, tm.Len())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	tm.Start(ctx)
	select {
	case dt := <-got:
		assert.Greater(t, dt, time.Duration(0))
	case <-ctx.Done():
		t.Fatal("tick callback not invoked within timeout")
	}
}

func TestTickManager_UnregisterStopsCallback(t *testing.T) {
	tm := simulation.NewTickManager(10 * time.Millisecond)
	var count atomic.Int64
	tm.RegisterTick("s1", func(time.Duration) { count.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	tm.Unregister("s1")
	before := count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, count.Load(), before+1, "tick continued after unregister")
	assert.Zero(t, tm.Len())
}

func TestTickManager_UnregisterFromCallback(t *testing.T) {
	tm := simulation.NewTickManager(5 * time.Millisecond)
	var count atomic.Int64
	tm.RegisterTick("once", func(time.Duration) {
		count.Add(1)
		tm.Unregister("once")
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(1), count.Load())
}
