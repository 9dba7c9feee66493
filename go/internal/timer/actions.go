package timer

import (
	"context"
	"fmt"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Everything in this file runs on the Run loop.

func (e *Engine) restore(ctx context.Context) {
	outcome := "fresh"
	if e.deps.Snapshots != nil {
		storeCtx, cancel := e.storeContext(ctx)
		result, err := e.deps.Snapshots.Rehydrate(storeCtx)
		cancel()
		switch {
		case err != nil:
			log.Error().Err(err).Msg("failed to rehydrate timer session, starting fresh")
			e.persist(ctx)
		case result == nil:
			e.persist(ctx)
		default:
			e.session = result.Session
			e.prefs = result.Preferences
			outcome = string(result.Outcome)
		}

		// The remote record was left in_progress by a session that can no
		// longer resume.
		if err == nil && result != nil && result.Deactivated() &&
			result.Stored.Mode == models.ModeWork && result.Stored.LinkedTask != nil {
			e.pushStatus(ctx, result.Stored.LinkedTask.ID, models.StatusUpdate{Status: models.TaskStatusPending})
		}
	}

	if e.deps.Stats != nil {
		storeCtx, cancel := e.storeContext(ctx)
		today, err := e.deps.Stats.GetToday(storeCtx)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("failed to load today's stats")
		} else if today.PomodorosCompleted > e.session.PomodorosCompleted {
			e.session.PomodorosCompleted = today.PomodorosCompleted
			e.persist(ctx)
		}
	}

	log.Info().
		Str("instance", e.instanceID).
		Str("outcome", outcome).
		Str("mode", string(e.session.Mode)).
		Int("time_remaining_sec", e.session.TimeRemainingSeconds).
		Bool("is_active", e.session.IsActive).
		Int("pomodoros_completed", e.session.PomodorosCompleted).
		Msg("timer session restored")

	e.emit(EventRestored, func(ev *Event) {
		ev.Message = outcome
		prefs := e.prefs
		ev.Preferences = &prefs
	})
}

func (e *Engine) start(ctx context.Context) {
	if e.session.IsActive {
		log.Debug().Str("mode", string(e.session.Mode)).Msg("timer already running")
		return
	}
	if e.session.Mode == models.ModeWork && e.session.LinkedTask == nil {
		err := fmt.Errorf("%w: %w", ErrValidation, ErrNoLinkedTask)
		log.Warn().Err(err).Msg("refusing to start timer")
		e.emit(EventStartRefused, func(ev *Event) {
			ev.Message = ErrNoLinkedTask.Error()
		})
		return
	}

	e.session.IsActive = true
	e.persist(ctx)

	if task := e.workTask(); task != nil {
		e.pushStatus(ctx, task.ID, models.StatusUpdate{Status: models.TaskStatusInProgress})
	}

	log.Info().
		Str("mode", string(e.session.Mode)).
		Int("time_remaining_sec", e.session.TimeRemainingSeconds).
		Msg("timer started")
	e.emit(EventStateChanged, nil)
}

func (e *Engine) pause(ctx context.Context) {
	if !e.session.IsActive {
		log.Debug().Str("mode", string(e.session.Mode)).Msg("timer already paused")
		return
	}

	e.session.IsActive = false
	e.persist(ctx)

	if task := e.workTask(); task != nil {
		e.pushStatus(ctx, task.ID, models.StatusUpdate{Status: models.TaskStatusPending})
	}

	log.Info().
		Str("mode", string(e.session.Mode)).
		Int("time_remaining_sec", e.session.TimeRemainingSeconds).
		Msg("timer paused")
	e.emit(EventStateChanged, nil)
}

func (e *Engine) reset(ctx context.Context) {
	e.session.IsActive = false
	e.session.TimeRemainingSeconds = e.prefs.DurationSeconds(e.session.Mode)
	e.persist(ctx)

	// The link is kept so the task can be resumed.
	if task := e.workTask(); task != nil {
		e.pushStatus(ctx, task.ID, models.StatusUpdate{Status: models.TaskStatusPending})
	}

	log.Info().Str("mode", string(e.session.Mode)).Msg("timer reset")
	e.emit(EventStateChanged, nil)
}

func (e *Engine) tick(ctx context.Context) {
	if !e.session.IsActive {
		return
	}
	if e.session.TimeRemainingSeconds <= 0 {
		e.expire(ctx, "expired")
		return
	}

	e.session.TimeRemainingSeconds--
	e.persist(ctx)
	e.emit(EventTick, nil)
}

// expire switches to the next mode. Live expiry and skip share this path.
func (e *Engine) expire(ctx context.Context, reason string) {
	previous := e.session.Mode
	next := NextMode(previous, e.session.PomodorosCompleted, e.config.LongBreakEvery)

	completedWork := previous == models.ModeWork
	worked := 0
	if completedWork {
		worked = workedMinutes(e.prefs, e.session.TimeRemainingSeconds)
		e.session.PomodorosCompleted++
	}

	e.session.Mode = next
	e.session.TimeRemainingSeconds = e.prefs.DurationSeconds(next)
	e.session.IsActive = false
	e.persist(ctx)

	if completedWork {
		if task := e.session.LinkedTask; task != nil {
			e.pushStatus(ctx, task.ID, models.StatusUpdate{
				Status:           models.TaskStatusPending,
				AddWorkedMinutes: worked,
			})
		}
		e.incrementStats(ctx)
	}

	e.announce(next, completedWork)

	log.Info().
		Str("reason", reason).
		Str("from", string(previous)).
		Str("to", string(next)).
		Int("pomodoros_completed", e.session.PomodorosCompleted).
		Int("worked_minutes", worked).
		Msg("timer mode switched")

	if completedWork {
		e.emit(EventPomodoroCompleted, func(ev *Event) {
			ev.PreviousMode = previous
			if e.session.LinkedTask != nil {
				ev.TaskID = e.session.LinkedTask.ID
			}
		})
	}
	e.emit(EventModeChanged, func(ev *Event) {
		ev.PreviousMode = previous
		ev.Message = reason
	})
}

// announce plays the completion sound after Work and notifies on every switch.
func (e *Engine) announce(next models.Mode, completedWork bool) {
	if completedWork && e.deps.Sound != nil && e.prefs.SoundEnabled() {
		e.deps.Sound.Play(e.prefs.SoundID)
	}
	if e.deps.Notifier != nil && e.prefs.NotificationsEnabled {
		title, body := completionMessage(next)
		e.deps.Notifier.Show(title, body)
	}
}

func (e *Engine) assignTask(ctx context.Context, task models.LinkedTask) {
	if task.ID == "" {
		log.Warn().Err(ErrValidation).Msg("refusing to assign task without an id")
		return
	}

	var previous *models.LinkedTask
	if e.session.IsActive {
		previous = e.workTask()
	}
	assigned := task
	e.session.LinkedTask = &assigned
	e.persist(ctx)

	if previous != nil && previous.ID != task.ID {
		e.pushStatus(ctx, previous.ID, models.StatusUpdate{Status: models.TaskStatusPending})
		e.pushStatus(ctx, task.ID, models.StatusUpdate{Status: models.TaskStatusInProgress})
	}

	log.Info().
		Str("task_id", task.ID).
		Str("task_name", task.Name).
		Bool("is_active", e.session.IsActive).
		Msg("task assigned to timer")
	e.emit(EventTaskAssigned, func(ev *Event) {
		ev.TaskID = task.ID
	})
}

func (e *Engine) markTaskDone(ctx context.Context, taskID string) {
	if taskID == "" {
		log.Warn().Err(ErrValidation).Msg("refusing to mark task without an id as done")
		return
	}

	linked := e.session.LinkedTask != nil && e.session.LinkedTask.ID == taskID
	if linked {
		e.session.IsActive = false
		e.session.LinkedTask = nil
		e.persist(ctx)
	}

	e.pushStatus(ctx, taskID, models.StatusUpdate{Status: models.TaskStatusDone})

	log.Info().Str("task_id", taskID).Bool("was_linked", linked).Msg("task marked done")
	e.emit(EventTaskDone, func(ev *Event) {
		ev.TaskID = taskID
	})
}

func (e *Engine) updatePreferences(ctx context.Context, prefs models.Preferences) {
	e.prefs = prefs
	if !e.session.IsActive {
		e.session.TimeRemainingSeconds = prefs.DurationSeconds(e.session.Mode)
	}
	e.persist(ctx)

	log.Info().
		Int("work_minutes", prefs.WorkMinutes).
		Int("short_break_minutes", prefs.ShortBreakMinutes).
		Int("long_break_minutes", prefs.LongBreakMinutes).
		Bool("notifications_enabled", prefs.NotificationsEnabled).
		Str("sound_id", prefs.SoundID).
		Msg("preferences updated")
	e.emit(EventPreferencesUpdated, func(ev *Event) {
		ev.Preferences = &prefs
	})
}

func (e *Engine) clear(ctx context.Context) {
	if e.deps.Snapshots != nil {
		storeCtx, cancel := e.storeContext(ctx)
		session, err := e.deps.Snapshots.Clear(storeCtx, e.prefs)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("failed to clear timer snapshot")
		}
		e.session = session
	} else {
		e.session = models.NewSession(e.prefs)
	}

	if r, ok := e.deps.Tasks.(resetter); ok {
		r.Reset()
	}

	log.Info().Msg("timer session cleared")
	e.emit(EventCleared, nil)
}

// workTask returns the linked task when the session is in Work mode.
func (e *Engine) workTask() *models.LinkedTask {
	if e.session.Mode != models.ModeWork {
		return nil
	}
	return e.session.LinkedTask
}

func (e *Engine) pushStatus(ctx context.Context, taskID string, update models.StatusUpdate) {
	if e.deps.Tasks == nil {
		return
	}
	e.deps.Tasks.PushStatus(ctx, taskID, update)
}

// incrementStats counts a completed pomodoro in the daily stats without
// holding up the loop.
func (e *Engine) incrementStats(ctx context.Context) {
	if e.deps.Stats == nil {
		return
	}
	storeCtx, cancel := e.storeContext(ctx)
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		defer cancel()
		if err := e.deps.Stats.IncrementPomodoro(storeCtx); err != nil {
			log.Error().Err(err).Msg("failed to increment daily pomodoro count")
		}
	}()
}

// persist writes the session through. Failures are logged and the engine
// keeps running in memory.
func (e *Engine) persist(ctx context.Context) {
	if e.deps.Snapshots == nil {
		return
	}
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()

	persistedAt, err := e.deps.Snapshots.Persist(storeCtx, e.session, e.prefs)
	if err != nil {
		log.Error().
			Err(err).
			Str("mode", string(e.session.Mode)).
			Int("time_remaining_sec", e.session.TimeRemainingSeconds).
			Msg("failed to persist timer session")
		return
	}
	e.session.LastPersistedAt = persistedAt
}
