// Package main provides the headless combat simulator. It plays a YAML scenario
// through the combat engine and prints the resulting combat records as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/config"
	"github.com/cory-johannsen/warfront/internal/game/dice"
	"github.com/cory-johannsen/warfront/internal/game/terrain"
	"github.com/cory-johannsen/warfront/internal/game/unit"
	"github.com/cory-johannsen/warfront/internal/observability"
	"github.com/cory-johannsen/warfront/internal/scenario"
	"github.com/cory-johannsen/warfront/internal/simulation"
	"github.com/cory-johannsen/warfront/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment")
	scenarioPath := flag.String("scenario", "", "path to scenario YAML file")
	realtime := flag.Bool("realtime", false, "tick in wall-clock time at combat.tick_interval instead of headless")
	seed := flag.Uint64("seed", 0, "damage variance seed; 0 = the scenario seed, or crypto when unset")
	persist := flag.Bool("persist", false, "store combat records in PostgreSQL")
	snapshot := flag.String("snapshot", "", "save the final engine state under this name (requires -persist)")
	flag.Parse()

	if *scenarioPath == "" {
		log.Fatal("-scenario is required")
	}
	if *snapshot != "" && !*persist {
		log.Fatal("-snapshot requires -persist")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := unit.LoadCatalog(cfg.Content.UnitsDir)
	if err != nil {
		logger.Fatal("loading unit catalog", zap.Error(err))
	}
	table, err := terrain.LoadTable(cfg.Content.TerrainFile)
	if err != nil {
		logger.Fatal("loading terrain table", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("unit_types", catalog.Len()),
		zap.String("terrain_file", cfg.Content.TerrainFile),
		zap.Duration("elapsed", time.Since(start)),
	)

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}

	damageOpts, err := cfg.Damage.Options()
	if err != nil {
		logger.Fatal("building damage options", zap.Error(err))
	}
	opts := scenario.Options{
		Tuning:           cfg.Combat.Tuning(),
		Damage:           damageOpts,
		MaxDuration:      cfg.Combat.MaxDuration.Seconds(),
		InstructionLimit: cfg.Scripting.InstructionLimit,
		Sinks:            []simulation.EventSink{observability.EventLogger(logger)},
	}
	if *realtime {
		opts.TickInterval = cfg.Combat.TickInterval
	}
	if *seed != 0 {
		opts.Source = dice.NewSeededSource(*seed)
	}

	var repo *postgres.CombatRepository
	if *persist {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		repo = postgres.NewCombatRepository(pool.DB(), logger)
		opts.Sinks = append(opts.Sinks, repo.RecordSink(ctx, sc.Name))
	}

	runner := scenario.NewRunner(catalog, table, opts, logger)
	res, runErr := runner.Run(ctx, sc)
	if res == nil {
		logger.Fatal("running scenario", zap.Error(runErr))
	}
	if runErr != nil && !errors.Is(runErr, simulation.ErrMaxDuration) {
		logger.Error("scenario interrupted", zap.Error(runErr))
	}

	if repo != nil && *snapshot != "" {
		if err := repo.SaveEngine(ctx, *snapshot, res.Engine); err != nil {
			logger.Error("saving engine snapshot", zap.String("name", *snapshot), zap.Error(err))
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Fatal("writing result", zap.Error(err))
	}

	logger.Info("combatsim done",
		zap.String("scenario", sc.Name),
		zap.Bool("completed", res.Completed),
		zap.Int("records", len(res.Records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if !res.Completed {
		os.Exit(1)
	}
}
