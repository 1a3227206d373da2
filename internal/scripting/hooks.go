package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/damage"
)

// Hook names a scenario script may define.
const (
	// HookDamageModifier receives a volley table and returns the new amount.
	HookDamageModifier = "damage_modifier"
	// HookOnEvent receives every engine event table. Its return value is ignored.
	HookOnEvent = "on_event"
)

// DamageModifier returns a damage.Modifier backed by scope's damage_modifier hook,
// or nil when no such hook is loaded.
//
// A hook that errors or returns a non-number leaves the volley unchanged;
// negative results are clamped to zero.
func (m *Manager) DamageModifier(scope string) damage.Modifier {
	if !m.HasHook(scope, HookDamageModifier) {
		return nil
	}
	return damage.ModifierFunc(func(h damage.Hit) float64 {
		ret, _ := m.CallHook(scope, HookDamageModifier, hitTable(h))
		n, ok := ret.(lua.LNumber)
		if !ok {
			return h.Amount
		}
		if n < 0 {
			m.logger.Debug("scripting: negative damage clamped",
				zap.String("scope", scope),
				zap.Float64("amount", float64(n)),
			)
			return 0
		}
		return float64(n)
	})
}

// NotifyEvent passes ev to scope's on_event hook, if any.
func (m *Manager) NotifyEvent(scope string, ev combat.Event) {
	if !m.HasHook(scope, HookOnEvent) {
		return
	}
	_, _ = m.CallHook(scope, HookOnEvent, eventTable(ev))
}

func hitTable(h damage.Hit) *lua.LTable {
	t := &lua.LTable{Metatable: lua.LNil}
	t.RawSetString("combat_id", lua.LString(h.CombatID))
	t.RawSetString("phase", lua.LString(h.Phase))
	t.RawSetString("side", lua.LString(h.Side))
	t.RawSetString("army_id", lua.LString(h.ArmyID))
	t.RawSetString("source", lua.LString(h.Source))
	t.RawSetString("source_category", lua.LString(h.SourceCategory))
	t.RawSetString("target", lua.LString(h.Target))
	t.RawSetString("target_category", lua.LString(h.TargetCategory))
	t.RawSetString("count", lua.LNumber(h.Count))
	t.RawSetString("amount", lua.LNumber(h.Amount))
	return t
}

func eventTable(ev combat.Event) *lua.LTable {
	t := &lua.LTable{Metatable: lua.LNil}
	set := func(k, v string) {
		if v != "" {
			t.RawSetString(k, lua.LString(v))
		}
	}
	set("kind", string(ev.Kind))
	set("combat_id", ev.CombatID)
	set("stack_id", ev.StackID)
	set("army_id", ev.ArmyID)
	set("side", string(ev.Side))
	set("phase", string(ev.Phase))
	set("previous_phase", string(ev.PreviousPhase))
	set("tier", string(ev.Tier))
	set("outcome", string(ev.Outcome))
	set("stack_outcome", string(ev.StackOutcome))
	if ev.Record != nil {
		set("result", string(ev.Record.Result))
		set("duration", ev.Record.FormattedDuration)
		t.RawSetString("attacker_final_units", lua.LNumber(ev.Record.AttackerFinalUnits))
		t.RawSetString("defender_final_units", lua.LNumber(ev.Record.DefenderFinalUnits))
	}
	return t
}
