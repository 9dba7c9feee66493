package models

import "time"

// Mode is the phase the timer session is in.
type Mode string

const (
	ModeWork       Mode = "WORK"
	ModeShortBreak Mode = "SHORT_BREAK"
	ModeLongBreak  Mode = "LONG_BREAK"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeWork, ModeShortBreak, ModeLongBreak:
		return true
	}
	return false
}

// IsBreak reports whether m is a short or long break.
func (m Mode) IsBreak() bool {
	return m == ModeShortBreak || m == ModeLongBreak
}

// LinkedTask is the task the timer is currently working on.
type LinkedTask struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Session is the single timer session owned by the timer engine.
type Session struct {
	Mode                 Mode        `json:"mode"`
	TimeRemainingSeconds int         `json:"time_remaining_seconds"`
	IsActive             bool        `json:"is_active"`
	PomodorosCompleted   int         `json:"pomodoros_completed"`
	LinkedTask           *LinkedTask `json:"linked_task,omitempty"`
	LastPersistedAt      time.Time   `json:"last_persisted_at"`
}

// NewSession returns a fresh, inactive Work session sized from prefs.
func NewSession(prefs Preferences) Session {
	return Session{
		Mode:                 ModeWork,
		TimeRemainingSeconds: prefs.DurationSeconds(ModeWork),
		IsActive:             false,
	}
}

// Clone returns a deep copy of the session so callers cannot alias the linked task.
func (s Session) Clone() Session {
	if s.LinkedTask != nil {
		task := *s.LinkedTask
		s.LinkedTask = &task
	}
	return s
}
