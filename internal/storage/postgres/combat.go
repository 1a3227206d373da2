package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warfront/internal/game/combat"
)

// ErrSnapshotNotFound is returned when no engine snapshot is stored under a name.
var ErrSnapshotNotFound = errors.New("combat snapshot not found")

// ErrRecordNotFound is returned when a combat record lookup yields no results.
var ErrRecordNotFound = errors.New("combat record not found")

// ErrRecordExists is returned when a record for the same combat is appended twice.
var ErrRecordExists = errors.New("combat record already exists")

// CombatRepository persists engine snapshots and finished combat records.
type CombatRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewCombatRepository creates a CombatRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCombatRepository(db *pgxpool.Pool, logger *zap.Logger) *CombatRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CombatRepository{db: db, logger: logger}
}

// SaveEngine stores the full state of e under name, replacing any earlier snapshot.
//
// Precondition: name must be non-empty.
func (r *CombatRepository) SaveEngine(ctx context.Context, name string, e *combat.Engine) error {
	if name == "" {
		return fmt.Errorf("saving engine snapshot: name must not be empty")
	}
	state, err := e.Save()
	if err != nil {
		return fmt.Errorf("saving engine snapshot %q: %w", name, err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO combat_snapshots (name, version, state, saved_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (name) DO UPDATE
		 SET version = EXCLUDED.version, state = EXCLUDED.state, saved_at = EXCLUDED.saved_at`,
		name, combat.SnapshotVersion, state,
	)
	if err != nil {
		return fmt.Errorf("upserting engine snapshot %q: %w", name, err)
	}
	r.logger.Info("engine snapshot saved", zap.String("name", name), zap.Int("bytes", len(state)))
	return nil
}

// LoadEngine replaces the contents of e with the snapshot stored under name.
//
// Postcondition: Returns ErrSnapshotNotFound if no snapshot exists; otherwise
// the relink warnings reported by e.
func (r *CombatRepository) LoadEngine(ctx context.Context, name string, e *combat.Engine) ([]combat.RelinkWarning, error) {
	var state []byte
	err := r.db.QueryRow(ctx,
		`SELECT state FROM combat_snapshots WHERE name = $1`,
		name,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying engine snapshot %q: %w", name, err)
	}
	warnings, err := e.Load(state)
	if err != nil {
		return nil, fmt.Errorf("loading engine snapshot %q: %w", name, err)
	}
	r.logger.Info("engine snapshot loaded",
		zap.String("name", name),
		zap.Int("relink_warnings", len(warnings)),
	)
	return warnings, nil
}

// DeleteSnapshot removes the snapshot stored under name.
//
// Postcondition: Returns ErrSnapshotNotFound if nothing was deleted.
func (r *CombatRepository) DeleteSnapshot(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM combat_snapshots WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting engine snapshot %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// AppendRecord stores a finished combat's record, tagged with scenario.
//
// Postcondition: Returns the new row ID, or ErrRecordExists if the combat was
// already recorded.
func (r *CombatRepository) AppendRecord(ctx context.Context, scenario string, rec combat.DetailedCombatRecord) (int64, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshalling combat record %q: %w", rec.CombatID, err)
	}
	var id int64
	err = r.db.QueryRow(ctx,
		`INSERT INTO combat_records
		   (combat_id, stack_id, scenario, result, location_q, location_r, terrain_type,
		    duration, started_at, ended_at, record)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		rec.CombatID, rec.StackID, scenario, string(rec.Result), rec.Location.Q, rec.Location.R,
		string(rec.TerrainType), rec.Duration, rec.StartedAt, rec.EndedAt, body,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrRecordExists
		}
		return 0, fmt.Errorf("inserting combat record %q: %w", rec.CombatID, err)
	}
	r.logger.Debug("combat record stored",
		zap.String("combat_id", rec.CombatID),
		zap.String("scenario", scenario),
		zap.Int64("id", id),
	)
	return id, nil
}

// GetRecord returns the record of combatID.
//
// Postcondition: Returns ErrRecordNotFound if the combat was never recorded.
func (r *CombatRepository) GetRecord(ctx context.Context, combatID string) (combat.DetailedCombatRecord, error) {
	var body []byte
	err := r.db.QueryRow(ctx,
		`SELECT record FROM combat_records WHERE combat_id = $1`,
		combatID,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return combat.DetailedCombatRecord{}, ErrRecordNotFound
		}
		return combat.DetailedCombatRecord{}, fmt.Errorf("querying combat record %q: %w", combatID, err)
	}
	return decodeRecord(body)
}

// ListRecords returns up to limit records of scenario, oldest first.
// A limit <= 0 returns every record.
func (r *CombatRepository) ListRecords(ctx context.Context, scenario string, limit int) ([]combat.DetailedCombatRecord, error) {
	query := `SELECT record FROM combat_records WHERE scenario = $1 ORDER BY ended_at, id`
	args := []any{scenario}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing combat records for %q: %w", scenario, err)
	}
	defer rows.Close()

	var out []combat.DetailedCombatRecord
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning combat record: %w", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating combat records: %w", err)
	}
	return out, nil
}

// RecordSink returns an event sink that appends the record of every ended
// combat. Failures are logged and do not stop the simulation.
func (r *CombatRepository) RecordSink(ctx context.Context, scenario string) func(combat.Event) {
	return func(ev combat.Event) {
		if ev.Kind != combat.EventCombatEnded || ev.Record == nil {
			return
		}
		if _, err := r.AppendRecord(ctx, scenario, *ev.Record); err != nil {
			r.logger.Warn("storing combat record",
				zap.String("combat_id", ev.CombatID),
				zap.Error(err),
			)
		}
	}
}

func decodeRecord(body []byte) (combat.DetailedCombatRecord, error) {
	var rec combat.DetailedCombatRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return combat.DetailedCombatRecord{}, fmt.Errorf("unmarshalling combat record: %w", err)
	}
	return rec, nil
}
