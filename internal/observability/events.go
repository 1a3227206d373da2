package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/warfront/internal/game/combat"
)

// EventLogger returns a sink that logs every engine event. Combat and stack
// outcomes log at info; everything else at debug.
func EventLogger(logger *zap.Logger) func(combat.Event) {
	return func(ev combat.Event) {
		level := zapcore.DebugLevel
		switch ev.Kind {
		case combat.EventCombatEnded, combat.EventStackEnded, combat.EventArmyDefeated, combat.EventArmyRetreated:
			level = zapcore.InfoLevel
		}
		if ce := logger.Check(level, "engine event"); ce != nil {
			ce.Write(EventFields(ev)...)
		}
	}
}

// EventFields renders the populated fields of ev.
func EventFields(ev combat.Event) []zap.Field {
	fields := []zap.Field{zap.String("kind", string(ev.Kind))}
	add := func(key, val string) {
		if val != "" {
			fields = append(fields, zap.String(key, val))
		}
	}
	add("combat_id", ev.CombatID)
	add("stack_id", ev.StackID)
	add("army_id", ev.ArmyID)
	add("side", string(ev.Side))
	add("phase", string(ev.Phase))
	add("previous_phase", string(ev.PreviousPhase))
	add("tier", string(ev.Tier))
	add("outcome", string(ev.Outcome))
	add("stack_outcome", string(ev.StackOutcome))
	if ev.Record != nil {
		add("result", string(ev.Record.Result))
		add("duration", ev.Record.FormattedDuration)
	}
	return fields
}
