package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/dice"
)

// RegisterModules registers the engine global into L:
//
//	engine.log.debug|info|warn|error(msg)
//	engine.roll(expr)  -> total of a dice spread such as "2d6+3"
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	logTbl := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		logFn := fn
		L.SetField(logTbl, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	L.SetField(engine, "log", logTbl)

	L.SetField(engine, "roll", L.NewFunction(m.luaRoll))
	L.SetGlobal("engine", engine)
}

func (m *Manager) luaRoll(L *lua.LState) int {
	spread, err := dice.ParseSpread(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	if m.src == nil {
		L.RaiseError("engine.roll: no dice source")
		return 0
	}
	roll := dice.RollSpread(spread, m.src)
	m.logger.Debug("lua roll", zap.String("roll", roll.String()))
	L.Push(lua.LNumber(roll.Total()))
	return 1
}
