package models

import "fmt"

// Default durations in minutes.
const (
	DefaultWorkMinutes       = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15

	// SoundNone disables the completion sound.
	SoundNone = "none"
)

// Preferences holds the user's timer settings.
type Preferences struct {
	WorkMinutes          int    `json:"work_minutes" yaml:"work_minutes"`
	ShortBreakMinutes    int    `json:"short_break_minutes" yaml:"short_break_minutes"`
	LongBreakMinutes     int    `json:"long_break_minutes" yaml:"long_break_minutes"`
	NotificationsEnabled bool   `json:"notifications_enabled" yaml:"notifications_enabled"`
	SoundID              string `json:"sound_id" yaml:"sound_id"`
}

// DefaultPreferences returns the stock 25/5/15 configuration.
func DefaultPreferences() Preferences {
	return Preferences{
		WorkMinutes:          DefaultWorkMinutes,
		ShortBreakMinutes:    DefaultShortBreakMinutes,
		LongBreakMinutes:     DefaultLongBreakMinutes,
		NotificationsEnabled: true,
		SoundID:              "bell",
	}
}

// Minutes returns the configured length of mode in minutes.
// Non-positive values fall back to the defaults.
func (p Preferences) Minutes(mode Mode) int {
	var minutes, fallback int
	switch mode {
	case ModeShortBreak:
		minutes, fallback = p.ShortBreakMinutes, DefaultShortBreakMinutes
	case ModeLongBreak:
		minutes, fallback = p.LongBreakMinutes, DefaultLongBreakMinutes
	default:
		minutes, fallback = p.WorkMinutes, DefaultWorkMinutes
	}
	if minutes <= 0 {
		return fallback
	}
	return minutes
}

// DurationSeconds returns the configured length of mode in seconds.
func (p Preferences) DurationSeconds(mode Mode) int {
	return p.Minutes(mode) * 60
}

// SoundEnabled reports whether a completion sound should play.
func (p Preferences) SoundEnabled() bool {
	return p.SoundID != "" && p.SoundID != SoundNone
}

// Validate checks that every duration is a positive number of minutes.
func (p Preferences) Validate() error {
	if p.WorkMinutes <= 0 {
		return fmt.Errorf("work minutes must be positive, got %d", p.WorkMinutes)
	}
	if p.ShortBreakMinutes <= 0 {
		return fmt.Errorf("short break minutes must be positive, got %d", p.ShortBreakMinutes)
	}
	if p.LongBreakMinutes <= 0 {
		return fmt.Errorf("long break minutes must be positive, got %d", p.LongBreakMinutes)
	}
	return nil
}
