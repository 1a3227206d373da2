// Package scripting provides a sandboxed GopherLua environment for scenario
// scripts that adjust combat damage and observe engine events.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit bounds a script load or a single hook call when no
// limit is configured.
const DefaultInstructionLimit = 100_000

// safeLibs are the only standard libraries a scenario script sees.
var safeLibs = []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath}

// blockedGlobals are base-library functions that reach the filesystem or the
// loader, or let a script tune the collector.
var blockedGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// budget is a context that cancels itself once Done has been polled limit
// times. GopherLua polls Done once per opcode, so limit counts instructions.
type budget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func newBudget(limit int) *budget {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &budget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	return b
}

// Done spends one instruction.
func (b *budget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// NewSandboxedState creates an LState that loads only base, table, string and
// math, has the blocked globals removed, and stops after instLimit opcodes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller owns the LState and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range safeLibs {
		open(L)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetContext(newBudget(instLimit))
	return L
}

// resetBudget gives L a fresh instruction budget for the next call.
// The returned cancel must be called once the call returns.
func resetBudget(L *lua.LState, instLimit int) context.CancelFunc {
	b := newBudget(instLimit)
	L.SetContext(b)
	return b.cancel
}
