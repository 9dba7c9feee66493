package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomotrack/go/internal/models"
)

// ErrStatsService wraps failures of the daily stats store.
var ErrStatsService = errors.New("daily stats service failed")

const createDailyStats = `
CREATE TABLE IF NOT EXISTS daily_stats (
	day                 DATE PRIMARY KEY,
	pomodoros_completed INTEGER NOT NULL DEFAULT 0,
	updated_at          TIMESTAMPTZ NOT NULL
)`

const selectToday = `SELECT pomodoros_completed FROM daily_stats WHERE day = $1`

const incrementToday = `
INSERT INTO daily_stats (day, pomodoros_completed, updated_at)
VALUES ($1, 1, $2)
ON CONFLICT (day) DO UPDATE SET
	pomodoros_completed = daily_stats.pomodoros_completed + 1,
	updated_at = EXCLUDED.updated_at`

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository keeps per-day pomodoro counters in Postgres.
type Repository struct {
	db       DB
	clock    clockwork.Clock
	location *time.Location
}

// NewRepository creates a stats repository. Days roll over at midnight in
// loc; nil means the local zone.
func NewRepository(db DB, clock clockwork.Clock, loc *time.Location) *Repository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Repository{db: db, clock: clock, location: loc}
}

// EnsureSchema creates the daily_stats table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createDailyStats); err != nil {
		return fmt.Errorf("%w: create schema: %v", ErrStatsService, err)
	}
	return nil
}

// GetToday returns today's counters. A day without a row counts as zero.
func (r *Repository) GetToday(ctx context.Context) (models.DailyStats, error) {
	day := r.today()
	stats := models.DailyStats{Day: day}

	err := r.db.QueryRow(ctx, selectToday, day).Scan(&stats.PomodorosCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats, nil
		}
		return stats, fmt.Errorf("%w: get today: %v", ErrStatsService, err)
	}
	return stats, nil
}

// IncrementPomodoro adds one completed pomodoro to today's row.
func (r *Repository) IncrementPomodoro(ctx context.Context) error {
	now := r.clock.Now()
	if _, err := r.db.Exec(ctx, incrementToday, r.dayOf(now), now.UTC()); err != nil {
		return fmt.Errorf("%w: increment: %v", ErrStatsService, err)
	}
	return nil
}

func (r *Repository) today() time.Time {
	return r.dayOf(r.clock.Now())
}

func (r *Repository) dayOf(t time.Time) time.Time {
	local := t.In(r.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
