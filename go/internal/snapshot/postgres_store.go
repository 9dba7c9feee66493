package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/mcdev12/pomotrack/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// DefaultProfile is the row key used when only one session exists.
const DefaultProfile = "default"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS timer_snapshots (
		profile                TEXT PRIMARY KEY,
		version                INTEGER NOT NULL,
		mode                   TEXT NOT NULL,
		time_remaining_seconds INTEGER NOT NULL,
		is_active              BOOLEAN NOT NULL,
		pomodoros_completed    INTEGER NOT NULL,
		linked_task            JSONB,
		preferences            JSONB NOT NULL,
		saved_at               TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS timer_snapshots_saved_at_idx ON timer_snapshots (saved_at)`,
}

const upsertSnapshot = `
INSERT INTO timer_snapshots (
	profile, version, mode, time_remaining_seconds, is_active,
	pomodoros_completed, linked_task, preferences, saved_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (profile) DO UPDATE SET
	version = EXCLUDED.version,
	mode = EXCLUDED.mode,
	time_remaining_seconds = EXCLUDED.time_remaining_seconds,
	is_active = EXCLUDED.is_active,
	pomodoros_completed = EXCLUDED.pomodoros_completed,
	linked_task = EXCLUDED.linked_task,
	preferences = EXCLUDED.preferences,
	saved_at = EXCLUDED.saved_at`

const selectSnapshot = `
SELECT version, mode, time_remaining_seconds, is_active,
	pomodoros_completed, linked_task, preferences, saved_at
FROM timer_snapshots
WHERE profile = $1`

const deleteSnapshot = `DELETE FROM timer_snapshots WHERE profile = $1`

// PostgresStore keeps the snapshot in the timer_snapshots table.
type PostgresStore struct {
	db      *sql.DB
	profile string
}

// NewPostgresStore creates a store for profile. An empty profile means
// DefaultProfile.
func NewPostgresStore(db *sql.DB, profile string) *PostgresStore {
	if profile == "" {
		profile = DefaultProfile
	}
	return &PostgresStore{db: db, profile: profile}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply snapshot schema: %w", err)
			}
		}
		return nil
	})
}

// Save upserts the snapshot row.
func (s *PostgresStore) Save(ctx context.Context, snap *PersistedSnapshot) error {
	row, err := toRow(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertSnapshot,
		s.profile, row.Version, row.Mode, row.TimeRemainingSeconds, row.IsActive,
		row.PomodorosCompleted, row.LinkedTask, row.Preferences, row.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot row. A missing row yields nil, nil.
func (s *PostgresStore) Load(ctx context.Context) (*PersistedSnapshot, error) {
	var row snapshotRow
	err := s.db.QueryRowContext(ctx, selectSnapshot, s.profile).Scan(
		&row.Version, &row.Mode, &row.TimeRemainingSeconds, &row.IsActive,
		&row.PomodorosCompleted, &row.LinkedTask, &row.Preferences, &row.SavedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return fromRow(row)
}

// Clear deletes the snapshot row.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, deleteSnapshot, s.profile); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

type snapshotRow struct {
	Version              int
	Mode                 string
	TimeRemainingSeconds int
	IsActive             bool
	PomodorosCompleted   int
	LinkedTask           pqtype.NullRawMessage
	Preferences          []byte
	SavedAt              time.Time
}

func toRow(snap *PersistedSnapshot) (snapshotRow, error) {
	row := snapshotRow{
		Version:              snap.Version,
		Mode:                 string(snap.Mode),
		TimeRemainingSeconds: snap.TimeRemainingSeconds,
		IsActive:             snap.IsActive,
		PomodorosCompleted:   snap.PomodorosCompleted,
		SavedAt:              snap.Timestamp.UTC(),
	}
	if snap.LinkedTask != nil {
		raw, err := json.Marshal(snap.LinkedTask)
		if err != nil {
			return row, fmt.Errorf("failed to marshal linked task: %w", err)
		}
		row.LinkedTask = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	prefs, err := json.Marshal(snap.Preferences)
	if err != nil {
		return row, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	row.Preferences = prefs
	return row, nil
}

func fromRow(row snapshotRow) (*PersistedSnapshot, error) {
	snap := &PersistedSnapshot{
		Version:              row.Version,
		Mode:                 models.Mode(row.Mode),
		TimeRemainingSeconds: row.TimeRemainingSeconds,
		IsActive:             row.IsActive,
		PomodorosCompleted:   row.PomodorosCompleted,
		Timestamp:            row.SavedAt,
	}
	if row.LinkedTask.Valid {
		var task models.LinkedTask
		if err := json.Unmarshal(row.LinkedTask.RawMessage, &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal linked task: %w", err)
		}
		snap.LinkedTask = &task
	}
	if err := json.Unmarshal(row.Preferences, &snap.Preferences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return snap, nil
}
