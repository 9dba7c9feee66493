package timer

import (
	"context"
	"time"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/mcdev12/pomotrack/go/internal/snapshot"
)

// TaskSync pushes status changes to the external task record. Failures are
// handled by the implementation; the engine never rolls back on them.
type TaskSync interface {
	PushStatus(ctx context.Context, taskID string, update models.StatusUpdate) bool
}

// StatsService is the daily stats collaborator.
type StatsService interface {
	GetToday(ctx context.Context) (models.DailyStats, error)
	IncrementPomodoro(ctx context.Context) error
}

// Notifier shows a user-facing notification.
type Notifier interface {
	Show(title, body string)
}

// SoundPlayer plays a completion sound.
type SoundPlayer interface {
	Play(soundID string)
}

// SnapshotStore persists and rehydrates the session.
type SnapshotStore interface {
	Persist(ctx context.Context, session models.Session, prefs models.Preferences) (time.Time, error)
	Rehydrate(ctx context.Context) (*snapshot.Rehydrated, error)
	Clear(ctx context.Context, prefs models.Preferences) (models.Session, error)
}

// Dependencies groups the engine's collaborators. Any of them may be nil.
type Dependencies struct {
	Tasks     TaskSync
	Stats     StatsService
	Notifier  Notifier
	Sound     SoundPlayer
	Snapshots SnapshotStore
}

type resetter interface {
	Reset()
}
