package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Config holds the adapter options.
type Config struct {
	// ExpirationThreshold is the age past which a snapshot's remaining time
	// is discarded on load.
	ExpirationThreshold time.Duration
}

// DefaultConfig returns the stock adapter configuration.
func DefaultConfig() Config {
	return Config{ExpirationThreshold: DefaultExpirationThreshold}
}

// Adapter writes the session through to a Store and rehydrates it on boot.
type Adapter struct {
	store  Store
	clock  clockwork.Clock
	config Config
}

// NewAdapter creates a persistence adapter backed by store.
func NewAdapter(store Store, clock clockwork.Clock, config Config) *Adapter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.ExpirationThreshold <= 0 {
		config.ExpirationThreshold = DefaultExpirationThreshold
	}
	return &Adapter{
		store:  store,
		clock:  clock,
		config: config,
	}
}

// Persist snapshots session and prefs with the current time and returns
// that time.
func (a *Adapter) Persist(ctx context.Context, session models.Session, prefs models.Preferences) (time.Time, error) {
	now := a.clock.Now()
	snap := Snapshot(session, prefs, now)
	if err := a.store.Save(ctx, &snap); err != nil {
		return time.Time{}, fmt.Errorf("%w: save: %v", ErrPersistence, err)
	}
	return now, nil
}

// Rehydrate loads the last snapshot and compensates for the time that passed
// since it was written. It returns nil, nil when no snapshot exists.
// The stored timestamp is refreshed to now once rehydration completes.
func (a *Adapter) Rehydrate(ctx context.Context) (*Rehydrated, error) {
	snap, err := a.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %v", ErrPersistence, err)
	}
	if snap == nil {
		return nil, nil
	}

	now := a.clock.Now()
	result := Restore(*snap, now.Sub(snap.Timestamp), a.config.ExpirationThreshold)

	log.Info().
		Str("outcome", string(result.Outcome)).
		Dur("elapsed", result.Elapsed).
		Str("mode", string(result.Session.Mode)).
		Int("time_remaining_sec", result.Session.TimeRemainingSeconds).
		Bool("is_active", result.Session.IsActive).
		Msg("rehydrated timer session")

	persistedAt, err := a.Persist(ctx, result.Session, result.Preferences)
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh snapshot timestamp after rehydration")
		return &result, nil
	}
	result.Session.LastPersistedAt = persistedAt
	return &result, nil
}

// Clear resets the stored session to defaults while keeping prefs.
func (a *Adapter) Clear(ctx context.Context, prefs models.Preferences) (models.Session, error) {
	session := models.NewSession(prefs)
	if err := a.store.Clear(ctx); err != nil {
		return session, fmt.Errorf("%w: clear: %v", ErrPersistence, err)
	}
	persistedAt, err := a.Persist(ctx, session, prefs)
	if err != nil {
		return session, err
	}
	session.LastPersistedAt = persistedAt
	return session, nil
}
