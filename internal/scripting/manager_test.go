package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/warfront/internal/game/dice"
	"github.com/cory-johannsen/warfront/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(dice.NewSeededSource(1), zap.New(core))
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func hasLevel(logs *observer.ObservedLogs, level zapcore.Level) bool {
	for _, e := range logs.All() {
		if e.Level == level {
			return true
		}
	}
	return false
}

func TestManager_LoadDir_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadDir("skirmish", dir, 0))
	ret, err := mgr.CallHook("skirmish", "test_hook", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
	assert.True(t, mgr.HasHook("skirmish", "test_hook"))
	assert.False(t, mgr.HasHook("skirmish", "other_hook"))
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("skirmish", "empty", `-- no functions`, 0))
	ret, err := mgr.CallHook("skirmish", "nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_NonFunctionGlobal_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("skirmish", "vars", `damage_modifier = 3`, 0))
	ret, err := mgr.CallHook("skirmish", "damage_modifier")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.False(t, mgr.HasHook("skirmish", "damage_modifier"))
}

func TestManager_CallHook_UnknownScope_LogsInfoReturnsNil(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook("no_such_scope", "some_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zap.InfoLevel), "expected Info log for missing scope")
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadString("skirmish", "bad", `
		function bad_hook()
			error("intentional error")
		end
	`, 0))
	ret, err := mgr.CallHook("skirmish", "bad_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zap.WarnLevel), "expected Warn log for Lua runtime error")
}

func TestManager_CallHook_BudgetResetsPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("skirmish", "loops", `
		function short_loop()
			local n = 0
			for i = 1, 10 do n = n + i end
			return n
		end
		function runaway()
			while true do end
		end
	`, 500))

	for i := 0; i < 50; i++ {
		ret, err := mgr.CallHook("skirmish", "short_loop")
		require.NoError(t, err)
		require.Equal(t, lua.LNumber(55), ret, "call %d", i)
	}

	ret, err := mgr.CallHook("skirmish", "runaway")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)

	ret, err = mgr.CallHook("skirmish", "short_loop")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(55), ret, "VM usable after a runaway hook")
}

func TestManager_LoadGlobal_CallHookFallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "global.lua", `
		function global_hook()
			return 42
		end
	`)
	require.NoError(t, mgr.LoadGlobal(dir, 0))
	ret, err := mgr.CallHook("unknown_scope", "global_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(42), ret)
	assert.True(t, mgr.HasHook("unknown_scope", "global_hook"))
}

func TestManager_LoadDir_EmptyDir_NoError(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadDir("empty", t.TempDir(), 0))
	ret, err := mgr.CallHook("empty", "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_LoadDir_Errors(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `this is not valid lua @@@@`)
	assert.Error(t, mgr.LoadDir("bad", dir, 0))
	assert.Error(t, mgr.LoadDir("missing", filepath.Join(t.TempDir(), "nope"), 0))
	assert.Error(t, mgr.LoadString("", "x", `x = 1`, 0))
	assert.Error(t, mgr.LoadString("slow", "loop", `while true do end`, 50))
}

func TestManager_LoadDir_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0644))
	require.NoError(t, mgr.LoadDir("ordered", dir, 0))
	ret, err := mgr.CallHook("ordered", "get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestManager_Reload_ReplacesScope(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("s", "v1", `function v() return 1 end`, 0))
	require.NoError(t, mgr.LoadString("s", "v2", `function v() return 2 end`, 0))
	ret, _ := mgr.CallHook("s", "v")
	assert.Equal(t, lua.LNumber(2), ret)
}

func TestManager_Unload_And_Close(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("a", "a", `function get_x() return 1 end`, 0))
	require.NoError(t, mgr.LoadString("b", "b", `function get_x() return 2 end`, 0))

	mgr.Unload("a")
	mgr.Unload("never-loaded")
	ret, err := mgr.CallHook("a", "get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)

	mgr.Close()
	ret, err = mgr.CallHook("b", "get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestProperty_CallHookMissingScopeNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		scope := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "scope")
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		count := rapid.IntRange(1, 20).Draw(rt, "count")
		for i := 0; i < count; i++ {
			mgr.CallHook(scope, hook) //nolint:errcheck
		}
	})
}

func TestManager_CallHookConcurrentSameScope_NoRace(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString("conc", "hooks", `
		function concurrent_hook(a, b)
			return a + b
		end
	`, 0))

	const goroutines = 10
	const callsEach = 5
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				ret, err := mgr.CallHook("conc", "concurrent_hook", lua.LNumber(1), lua.LNumber(2))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
}
