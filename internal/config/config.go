// Package config provides Viper-based configuration loading for the combat simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/warfront/internal/game/combat"
	"github.com/cory-johannsen/warfront/internal/game/damage"
	"github.com/cory-johannsen/warfront/internal/game/dice"
)

// EnvPrefix prefixes every environment override, e.g. WARFRONT_COMBAT_MELEE_THRESHOLD.
const EnvPrefix = "WARFRONT"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// CombatConfig holds the combat tuning constants and simulator pacing.
type CombatConfig struct {
	// MeleeThreshold is the length of the ranged exchange in simulated seconds.
	MeleeThreshold float64 `mapstructure:"melee_threshold"`
	// ReinforcementWindow is the length of a reinforcement's bonus windows in simulated seconds.
	ReinforcementWindow float64 `mapstructure:"reinforcement_window"`
	// StretchingPenaltyPerFront is the damage fraction lost per extra front, in [0, 1).
	StretchingPenaltyPerFront float64 `mapstructure:"stretching_penalty_per_front"`
	// EntrenchmentDefenseBonus is added to the terrain defense of entrenched defenders.
	EntrenchmentDefenseBonus float64 `mapstructure:"entrenchment_defense_bonus"`
	// TickInterval is the simulated time per tick, and the wall-clock period in real-time mode.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// MaxDuration stops a simulation that has not finished.
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

// Tuning converts the configuration to engine tuning.
func (c CombatConfig) Tuning() combat.Tuning {
	return combat.Tuning{
		MeleeThreshold:            c.MeleeThreshold,
		ReinforcementWindow:       c.ReinforcementWindow,
		StretchingPenaltyPerFront: c.StretchingPenaltyPerFront,
		EntrenchmentDefenseBonus:  c.EntrenchmentDefenseBonus,
	}
}

// DamageConfig tunes the damage resolver.
type DamageConfig struct {
	Rate              float64 `mapstructure:"rate"`
	ChargeBonus       float64 `mapstructure:"charge_bonus"`
	RangedWindowBonus float64 `mapstructure:"ranged_window_bonus"`
	// Spread is a dice expression such as "1d11-6" whose total is a percentage
	// added to every volley. Empty disables variance.
	Spread string `mapstructure:"spread"`
}

// Options converts the configuration to resolver options.
//
// Postcondition: Returns an error if Spread is not a valid dice expression.
func (d DamageConfig) Options() (damage.Options, error) {
	opts := damage.Options{
		Rate:              d.Rate,
		ChargeBonus:       d.ChargeBonus,
		RangedWindowBonus: d.RangedWindowBonus,
	}
	if d.Spread == "" {
		return opts, nil
	}
	spread, err := dice.ParseSpread(d.Spread)
	if err != nil {
		return damage.Options{}, fmt.Errorf("damage.spread: %w", err)
	}
	opts.Spread = spread
	return opts, nil
}

// ContentConfig locates the YAML content files.
type ContentConfig struct {
	UnitsDir    string `mapstructure:"units_dir"`
	TerrainFile string `mapstructure:"terrain_file"`
}

// ScriptingConfig bounds scenario scripts.
type ScriptingConfig struct {
	// InstructionLimit caps the Lua opcodes of each script load or hook call.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Combat    CombatConfig    `mapstructure:"combat"`
	Damage    DamageConfig    `mapstructure:"damage"`
	Content   ContentConfig   `mapstructure:"content"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateDatabase(c.Database),
		validateLogging(c.Logging),
		validateCombat(c.Combat),
		validateDamage(c.Damage),
		validateContent(c.Content),
		validateScripting(c.Scripting),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joined(errs)
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if !(c.MeleeThreshold > 0) {
		errs = append(errs, fmt.Sprintf("combat.melee_threshold must be > 0, got %v", c.MeleeThreshold))
	}
	if !(c.ReinforcementWindow > 0) {
		errs = append(errs, fmt.Sprintf("combat.reinforcement_window must be > 0, got %v", c.ReinforcementWindow))
	}
	if c.StretchingPenaltyPerFront < 0 || c.StretchingPenaltyPerFront >= 1 {
		errs = append(errs, fmt.Sprintf("combat.stretching_penalty_per_front must be in [0, 1), got %v", c.StretchingPenaltyPerFront))
	}
	if c.EntrenchmentDefenseBonus < 0 {
		errs = append(errs, fmt.Sprintf("combat.entrenchment_defense_bonus must be >= 0, got %v", c.EntrenchmentDefenseBonus))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("combat.tick_interval must be > 0, got %s", c.TickInterval))
	}
	if c.MaxDuration < c.TickInterval {
		errs = append(errs, fmt.Sprintf("combat.max_duration must be >= combat.tick_interval, got %s", c.MaxDuration))
	}
	return joined(errs)
}

func validateDamage(d DamageConfig) error {
	var errs []string
	if !(d.Rate > 0) {
		errs = append(errs, fmt.Sprintf("damage.rate must be > 0, got %v", d.Rate))
	}
	if d.ChargeBonus < 0 {
		errs = append(errs, fmt.Sprintf("damage.charge_bonus must be >= 0, got %v", d.ChargeBonus))
	}
	if d.RangedWindowBonus < 0 {
		errs = append(errs, fmt.Sprintf("damage.ranged_window_bonus must be >= 0, got %v", d.RangedWindowBonus))
	}
	if d.Spread != "" {
		if _, err := dice.ParseSpread(d.Spread); err != nil {
			errs = append(errs, fmt.Sprintf("damage.spread: %v", err))
		}
	}
	return joined(errs)
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.UnitsDir == "" {
		errs = append(errs, "content.units_dir must not be empty")
	}
	if c.TerrainFile == "" {
		errs = append(errs, "content.terrain_file must not be empty")
	}
	return joined(errs)
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and
// environment variables only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "warfront")
	v.SetDefault("database.password", "warfront")
	v.SetDefault("database.name", "warfront")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("combat.melee_threshold", combat.DefaultMeleeThreshold)
	v.SetDefault("combat.reinforcement_window", combat.DefaultReinforcementWindow)
	v.SetDefault("combat.stretching_penalty_per_front", combat.DefaultStretchingPenaltyPerFront)
	v.SetDefault("combat.entrenchment_defense_bonus", combat.DefaultEntrenchmentDefenseBonus)
	v.SetDefault("combat.tick_interval", "100ms")
	v.SetDefault("combat.max_duration", "10m")

	v.SetDefault("damage.rate", damage.DefaultRate)
	v.SetDefault("damage.charge_bonus", damage.DefaultChargeBonus)
	v.SetDefault("damage.ranged_window_bonus", damage.DefaultRangedWindowBonus)
	v.SetDefault("damage.spread", "")

	v.SetDefault("content.units_dir", "content/units")
	v.SetDefault("content.terrain_file", "content/terrain.yaml")

	v.SetDefault("scripting.instruction_limit", 0)
}
