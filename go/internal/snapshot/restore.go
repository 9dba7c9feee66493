package snapshot

import (
	"time"

	"github.com/mcdev12/pomotrack/go/internal/models"
)

// Snapshot captures session and prefs as of now.
func Snapshot(session models.Session, prefs models.Preferences, now time.Time) PersistedSnapshot {
	session = session.Clone()
	return PersistedSnapshot{
		Version:              SnapshotVersion,
		Mode:                 session.Mode,
		TimeRemainingSeconds: session.TimeRemainingSeconds,
		IsActive:             session.IsActive,
		PomodorosCompleted:   session.PomodorosCompleted,
		LinkedTask:           session.LinkedTask,
		Preferences:          prefs,
		Timestamp:            now,
	}
}

// Restore rebuilds the session from snap given the wall-clock time that
// passed since it was written.
//
// Past threshold the remaining time is discarded and the session becomes an
// idle Work session. Otherwise an active session loses the elapsed whole
// seconds, and if that exhausts it the session is reset to an idle Work
// session without replaying any expiry side effects.
// The linked task and the pomodoro count always survive.
func Restore(snap PersistedSnapshot, elapsed, threshold time.Duration) Rehydrated {
	if elapsed < 0 {
		elapsed = 0
	}
	if threshold <= 0 {
		threshold = DefaultExpirationThreshold
	}

	prefs := snap.Preferences
	stored := storedSession(snap)
	session := stored.Clone()

	result := Rehydrated{
		Preferences: prefs,
		Elapsed:     elapsed,
		Stored:      stored,
		Outcome:     OutcomeRestored,
	}

	switch {
	case elapsed > threshold:
		resetToIdleWork(&session, prefs)
		result.Outcome = OutcomeStale
	case session.IsActive && elapsed >= time.Second:
		session.TimeRemainingSeconds -= int(elapsed / time.Second)
		if session.TimeRemainingSeconds <= 0 {
			resetToIdleWork(&session, prefs)
			result.Outcome = OutcomeExpiredWhileSuspended
		} else {
			result.Outcome = OutcomeCompensated
		}
	}

	result.Session = session
	return result
}

func storedSession(snap PersistedSnapshot) models.Session {
	session := models.Session{
		Mode:                 snap.Mode,
		TimeRemainingSeconds: snap.TimeRemainingSeconds,
		IsActive:             snap.IsActive,
		PomodorosCompleted:   snap.PomodorosCompleted,
		LinkedTask:           snap.LinkedTask,
		LastPersistedAt:      snap.Timestamp,
	}
	if !session.Mode.Valid() {
		resetToIdleWork(&session, snap.Preferences)
	}
	if session.TimeRemainingSeconds < 0 {
		session.TimeRemainingSeconds = 0
	}
	if session.PomodorosCompleted < 0 {
		session.PomodorosCompleted = 0
	}
	// A running Work session needs a task to run against.
	if session.IsActive && session.Mode == models.ModeWork && session.LinkedTask == nil {
		session.IsActive = false
	}
	return session.Clone()
}

func resetToIdleWork(session *models.Session, prefs models.Preferences) {
	session.Mode = models.ModeWork
	session.IsActive = false
	session.TimeRemainingSeconds = prefs.DurationSeconds(models.ModeWork)
}
