package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	value int
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = r.value
	return nil
}

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	row     fakeRow
	execs   []execCall
	queries [][]any
	execErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.queries = append(f.queries, args)
	return f.row
}

func TestRepositoryGetToday(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 2, 23, 30, 0, 0, time.UTC))
	db := &fakeDB{row: fakeRow{value: 6}}
	repo := NewRepository(db, clock, time.UTC)

	stats, err := repo.GetToday(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 6, stats.PomodorosCompleted)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), stats.Day)
	require.Len(t, db.queries, 1)
	assert.Equal(t, stats.Day, db.queries[0][0])
}

func TestRepositoryGetTodayWithoutRow(t *testing.T) {
	repo := NewRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}, clockwork.NewFakeClock(), time.UTC)

	stats, err := repo.GetToday(context.Background())

	require.NoError(t, err)
	assert.Zero(t, stats.PomodorosCompleted)
}

func TestRepositoryGetTodayError(t *testing.T) {
	repo := NewRepository(&fakeDB{row: fakeRow{err: errors.New("conn reset")}}, clockwork.NewFakeClock(), time.UTC)

	_, err := repo.GetToday(context.Background())

	assert.ErrorIs(t, err, ErrStatsService)
}

func TestRepositoryDayUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 2, 20, 0, 0, 0, time.UTC))
	db := &fakeDB{}
	repo := NewRepository(db, clock, tokyo)

	require.NoError(t, repo.IncrementPomodoro(context.Background()))

	require.Len(t, db.execs, 1)
	assert.Equal(t, time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), db.execs[0].args[0])
}

func TestRepositoryIncrementError(t *testing.T) {
	repo := NewRepository(&fakeDB{execErr: errors.New("read only")}, clockwork.NewFakeClock(), time.UTC)

	err := repo.IncrementPomodoro(context.Background())

	assert.ErrorIs(t, err, ErrStatsService)
}
