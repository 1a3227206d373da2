package combat

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cory-johannsen/warfront/internal/game/hex"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
)

// PhaseRecord summarises one completed phase of an engagement.
type PhaseRecord struct {
	Phase                    Phase             `json:"phase"`
	Duration                 float64           `json:"duration"`
	AttackerDamageDealt      float64           `json:"attacker_damage_dealt"`
	DefenderDamageDealt      float64           `json:"defender_damage_dealt"`
	AttackerCasualtiesByType map[unit.Type]int `json:"attacker_casualties_by_type"`
	DefenderCasualtiesByType map[unit.Type]int `json:"defender_casualties_by_type"`
}

// CombatRecord is the summary of a finished engagement for history lists.
type CombatRecord struct {
	CombatID             string       `json:"combat_id"`
	StackID              string       `json:"stack_id,omitempty"`
	Location             hex.Coord    `json:"location"`
	TerrainType          terrain.Type `json:"terrain_type"`
	AttackerName         string       `json:"attacker_name"`
	AttackerOwner        string       `json:"attacker_owner"`
	DefenderName         string       `json:"defender_name"`
	DefenderOwner        string       `json:"defender_owner"`
	Result               Result       `json:"result"`
	Duration             float64      `json:"duration"`
	AttackerInitialUnits int          `json:"attacker_initial_units"`
	AttackerFinalUnits   int          `json:"attacker_final_units"`
	DefenderInitialUnits int          `json:"defender_initial_units"`
	DefenderFinalUnits   int          `json:"defender_final_units"`
	StartedAt            time.Time    `json:"started_at"`
	EndedAt              time.Time    `json:"ended_at"`
}

// ArmyBreakdown reports one army's part in an engagement.
type ArmyBreakdown struct {
	ArmyID        string           `json:"army_id"`
	Name          string           `json:"name"`
	Owner         string           `json:"owner"`
	Commander     string           `json:"commander"`
	Reinforcement bool             `json:"reinforcement"`
	JoinTime      float64          `json:"join_time"`
	Initial       unit.Composition `json:"initial"`
	Final         unit.Composition `json:"final"`
	Casualties    unit.Composition `json:"casualties"`
	DamageDealt   float64          `json:"damage_dealt"`
	Withdrawn     bool             `json:"withdrawn,omitempty"`
}

// UnitTypeBreakdown reports one unit type on one side.
type UnitTypeBreakdown struct {
	Type           unit.Type     `json:"type"`
	Category       unit.Category `json:"category"`
	Initial        int           `json:"initial"`
	Final          int           `json:"final"`
	Lost           int           `json:"lost"`
	DamageDealt    float64       `json:"damage_dealt"`
	DamageReceived float64       `json:"damage_received"`
}

// TerrainSummary reports the terrain scalars that applied to an engagement.
type TerrainSummary struct {
	Terrain                  terrain.Type `json:"terrain"`
	DefenseBonus             float64      `json:"defense_bonus"`
	AttackPenalty            float64      `json:"attack_penalty"`
	EntrenchmentDefenseBonus float64      `json:"entrenchment_defense_bonus"`
	Description              string       `json:"description"`
}

// DetailedCombatRecord is the full post-combat report.
type DetailedCombatRecord struct {
	CombatRecord
	FormattedDuration string              `json:"formatted_duration"`
	Phases            []PhaseRecord       `json:"phases"`
	AttackerArmies    []ArmyBreakdown     `json:"attacker_armies"`
	DefenderArmies    []ArmyBreakdown     `json:"defender_armies"`
	AttackerUnits     []UnitTypeBreakdown `json:"attacker_units"`
	DefenderUnits     []UnitTypeBreakdown `json:"defender_units"`
	AttackerInitialHP float64             `json:"attacker_initial_hp"`
	AttackerFinalHP   float64             `json:"attacker_final_hp"`
	DefenderInitialHP float64             `json:"defender_initial_hp"`
	DefenderFinalHP   float64             `json:"defender_final_hp"`
	Terrain           TerrainSummary      `json:"terrain"`
}

// NewCombatRecord builds the summary record of c.
//
// Postcondition: The record shares no mutable state with c.
func NewCombatRecord(c *ActiveCombat, endedAt time.Time) CombatRecord {
	rec := CombatRecord{
		CombatID:             c.ID,
		StackID:              c.StackID,
		Location:             c.Location,
		TerrainType:          c.TerrainType,
		AttackerName:         primaryName(c.AttackerArmies),
		AttackerOwner:        primaryOwner(c.AttackerArmies),
		DefenderName:         primaryName(c.DefenderArmies),
		DefenderOwner:        primaryOwner(c.DefenderArmies),
		Result:               c.Winner(),
		Duration:             c.ElapsedTime,
		AttackerInitialUnits: c.Attacker.InitialComposition.Total(),
		AttackerFinalUnits:   c.Attacker.TotalUnits(),
		DefenderInitialUnits: c.Defender.InitialComposition.Total(),
		DefenderFinalUnits:   c.Defender.TotalUnits(),
		StartedAt:            c.StartedAt,
		EndedAt:              endedAt,
	}
	return rec
}

// NewDetailedCombatRecord builds the full report of c.
//
// Postcondition: The record shares no mutable state with c.
func NewDetailedCombatRecord(c *ActiveCombat, endedAt time.Time) DetailedCombatRecord {
	phases := make([]PhaseRecord, 0, len(c.PhaseRecords))
	for _, p := range c.PhaseRecords {
		p.AttackerCasualtiesByType = copyCounts(p.AttackerCasualtiesByType)
		p.DefenderCasualtiesByType = copyCounts(p.DefenderCasualtiesByType)
		phases = append(phases, p)
	}
	return DetailedCombatRecord{
		CombatRecord:      NewCombatRecord(c, endedAt),
		FormattedDuration: FormatDuration(c.ElapsedTime),
		Phases:            phases,
		AttackerArmies:    armyBreakdowns(c.AttackerArmies),
		DefenderArmies:    armyBreakdowns(c.DefenderArmies),
		AttackerUnits:     unitBreakdowns(c.Attacker, c.AttackerArmies),
		DefenderUnits:     unitBreakdowns(c.Defender, c.DefenderArmies),
		AttackerInitialHP: c.Attacker.InitialTotalHP(),
		AttackerFinalHP:   c.Attacker.CurrentTotalHP(),
		DefenderInitialHP: c.Defender.InitialTotalHP(),
		DefenderFinalHP:   c.Defender.CurrentTotalHP(),
		Terrain:           terrainSummary(c),
	}
}

// FormatDuration renders seconds of combat time as "45s", "1m 05s" or "1h 02m 03s".
func FormatDuration(seconds float64) string {
	if !(seconds > 0) {
		return "0s"
	}
	total := int(math.Round(seconds))
	h, m, s := total/3600, (total%3600)/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func primaryName(armies []*ArmyState) string {
	if len(armies) == 0 || armies[0].ArmyName == "" {
		return "Unknown"
	}
	return armies[0].ArmyName
}

func primaryOwner(armies []*ArmyState) string {
	if len(armies) == 0 || armies[0].OwnerName == "" {
		return "Unknown"
	}
	return armies[0].OwnerName
}

func armyBreakdowns(armies []*ArmyState) []ArmyBreakdown {
	out := make([]ArmyBreakdown, 0, len(armies))
	for _, a := range armies {
		out = append(out, ArmyBreakdown{
			ArmyID:        a.ArmyID,
			Name:          a.ArmyName,
			Owner:         a.OwnerName,
			Commander:     a.CommanderName,
			Reinforcement: a.IsReinforcement(),
			JoinTime:      a.JoinTime,
			Initial:       a.InitialComposition.Clone(),
			Final:         a.CurrentUnits.Clone(),
			Casualties:    a.Casualties(),
			DamageDealt:   a.TotalDamageDealt(),
			Withdrawn:     a.Withdrawn,
		})
	}
	return out
}

func unitBreakdowns(s *SideState, armies []*ArmyState) []UnitTypeBreakdown {
	lost := make(map[unit.Type]int)
	for _, a := range armies {
		for t, n := range a.CasualtiesByType {
			lost[t] += n
		}
	}

	types := make([]unit.Type, 0, len(s.InitialComposition))
	for t := range s.InitialComposition {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	out := make([]UnitTypeBreakdown, 0, len(types))
	for _, t := range types {
		cat, _ := s.categoryOf(t)
		out = append(out, UnitTypeBreakdown{
			Type:           t,
			Category:       cat,
			Initial:        s.InitialComposition[t],
			Final:          s.UnitCounts[t],
			Lost:           lost[t],
			DamageDealt:    s.DamageDealtByType[t],
			DamageReceived: s.DamageReceivedByType[t],
		})
	}
	return out
}

func terrainSummary(c *ActiveCombat) TerrainSummary {
	desc := fmt.Sprintf("%s: defense x%.2f, attack x%.2f", c.TerrainType, c.TerrainDefenseBonus, c.TerrainAttackPenalty)
	if c.EntrenchmentDefenseBonus > 0 {
		desc += fmt.Sprintf(", entrenchment +%.2f", c.EntrenchmentDefenseBonus)
	}
	return TerrainSummary{
		Terrain:                  c.TerrainType,
		DefenseBonus:             c.TerrainDefenseBonus,
		AttackPenalty:            c.TerrainAttackPenalty,
		EntrenchmentDefenseBonus: c.EntrenchmentDefenseBonus,
		Description:              desc,
	}
}
