package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/pomotrack/go/internal/models"
)

// SnapshotVersion is the current version of the persisted snapshot format.
const SnapshotVersion = 1

// DefaultExpirationThreshold is how long a snapshot may sit unloaded before
// its remaining time is discarded.
const DefaultExpirationThreshold = time.Hour

// ErrPersistence wraps every storage failure surfaced by this package.
var ErrPersistence = errors.New("snapshot persistence failed")

// PersistedSnapshot is the durable form of the timer session.
type PersistedSnapshot struct {
	// Version is the snapshot format version.
	Version int `json:"version" yaml:"version"`

	Mode                 models.Mode        `json:"mode" yaml:"mode"`
	TimeRemainingSeconds int                `json:"time_remaining_seconds" yaml:"time_remaining_seconds"`
	IsActive             bool               `json:"is_active" yaml:"is_active"`
	PomodorosCompleted   int                `json:"pomodoros_completed" yaml:"pomodoros_completed"`
	LinkedTask           *models.LinkedTask `json:"linked_task,omitempty" yaml:"linked_task,omitempty"`
	Preferences          models.Preferences `json:"preferences" yaml:"preferences"`

	// Timestamp is when the snapshot was written. Elapsed-time compensation
	// on load is measured from here.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Store is a durable home for a single snapshot.
type Store interface {
	// Save overwrites the stored snapshot.
	Save(ctx context.Context, snap *PersistedSnapshot) error
	// Load returns nil, nil when nothing has been stored yet.
	Load(ctx context.Context) (*PersistedSnapshot, error)
	// Clear removes the stored snapshot.
	Clear(ctx context.Context) error
}

// Outcome describes what rehydration did to the stored session.
type Outcome string

const (
	// OutcomeRestored means the session came back exactly as stored.
	OutcomeRestored Outcome = "restored"
	// OutcomeCompensated means an active session lost the elapsed seconds
	// and is still running.
	OutcomeCompensated Outcome = "compensated"
	// OutcomeExpiredWhileSuspended means an active session ran out while
	// nothing was loaded and was reset to an idle Work session.
	OutcomeExpiredWhileSuspended Outcome = "expired_while_suspended"
	// OutcomeStale means the snapshot was older than the expiration
	// threshold and its remaining time was discarded.
	OutcomeStale Outcome = "stale"
)

// Rehydrated is the result of restoring a snapshot.
type Rehydrated struct {
	Session     models.Session
	Preferences models.Preferences
	Outcome     Outcome
	Elapsed     time.Duration

	// Stored is the session exactly as it was read, before compensation.
	Stored models.Session
}

// Deactivated reports whether rehydration stopped a session that was
// running when the snapshot was taken.
func (r Rehydrated) Deactivated() bool {
	return r.Stored.IsActive && !r.Session.IsActive
}
