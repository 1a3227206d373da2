package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/dice"
)

// GlobalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scope VM is found.
const GlobalScope = "__global__"

// vm is one sandboxed LState. An LState is single-threaded, so every call holds mu.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per scope (typically one per scenario) and
// exposes hook dispatch.
//
// Manager is safe for concurrent use. Calls into the same scope are serialized;
// different scopes run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	src    dice.Source
	logger *zap.Logger
}

// NewManager creates a Manager. src backs engine.roll.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a non-nil Manager with no scopes; a nil logger is
// replaced by a no-op logger.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		vms:    make(map[string]*vm),
		src:    src,
		logger: logger,
	}
}

// LoadDir creates a sandboxed VM for scope, registers the engine module, then
// executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: The scope VM replaces any previous one; returns error on Lua load failure.
func (m *Manager) LoadDir(scope, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, scope, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	return m.load(scope, instLimit, func(L *lua.LState) error {
		for _, path := range files {
			if err := L.DoFile(path); err != nil {
				return fmt.Errorf("scripting: loading %q for %q: %w", path, scope, err)
			}
		}
		return nil
	})
}

// LoadGlobal loads scriptDir into the GlobalScope VM.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.LoadDir(GlobalScope, scriptDir, instLimit)
}

// LoadString creates a sandboxed VM for scope from inline source. name labels errors.
func (m *Manager) LoadString(scope, name, source string, instLimit int) error {
	return m.load(scope, instLimit, func(L *lua.LState) error {
		if err := L.DoString(source); err != nil {
			return fmt.Errorf("scripting: loading %q for %q: %w", name, scope, err)
		}
		return nil
	})
}

func (m *Manager) load(scope string, instLimit int, run func(L *lua.LState) error) error {
	if scope == "" {
		return fmt.Errorf("scripting: scope must not be empty")
	}
	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	if err := run(L); err != nil {
		L.Close()
		return err
	}

	m.mu.Lock()
	if old, ok := m.vms[scope]; ok {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.vms[scope] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()
	return nil
}

// Unload closes the VM for scope. Unknown scopes are ignored.
func (m *Manager) Unload(scope string) {
	m.mu.Lock()
	v, ok := m.vms[scope]
	delete(m.vms, scope)
	m.mu.Unlock()
	if ok {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}

// Close closes every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}

func (m *Manager) lookup(scope string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[scope]; ok {
		return v
	}
	return m.vms[GlobalScope]
}

// HasHook reports whether scope (or the global VM) defines a function named hook.
func (m *Manager) HasHook(scope, hook string) bool {
	v := m.lookup(scope)
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function in scope's VM. If the scope has
// no VM, the GlobalScope VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	v := m.lookup(scope)
	if v == nil {
		m.logger.Info("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn, ok := v.L.GetGlobal(hook).(*lua.LFunction)
	if !ok {
		return lua.LNil, nil
	}

	cancel := resetBudget(v.L, v.limit)
	defer cancel()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}
