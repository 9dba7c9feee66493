package timer

import (
	"testing"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNextMode(t *testing.T) {
	tests := []struct {
		name      string
		current   models.Mode
		completed int
		every     int
		want      models.Mode
	}{
		{name: "first pomodoro", current: models.ModeWork, completed: 0, every: 4, want: models.ModeShortBreak},
		{name: "fourth pomodoro", current: models.ModeWork, completed: 3, every: 4, want: models.ModeLongBreak},
		{name: "fifth pomodoro", current: models.ModeWork, completed: 4, every: 4, want: models.ModeShortBreak},
		{name: "eighth pomodoro", current: models.ModeWork, completed: 7, every: 4, want: models.ModeLongBreak},
		{name: "custom cadence", current: models.ModeWork, completed: 1, every: 2, want: models.ModeLongBreak},
		{name: "no long breaks", current: models.ModeWork, completed: 3, every: 0, want: models.ModeShortBreak},
		{name: "short break ends", current: models.ModeShortBreak, completed: 1, every: 4, want: models.ModeWork},
		{name: "long break ends", current: models.ModeLongBreak, completed: 4, every: 4, want: models.ModeWork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMode(tt.current, tt.completed, tt.every))
		})
	}
}

func TestWorkedMinutes(t *testing.T) {
	prefs := models.DefaultPreferences()

	assert.Equal(t, 25, workedMinutes(prefs, 0))
	assert.Equal(t, 0, workedMinutes(prefs, 25*60))
	assert.Equal(t, 1, workedMinutes(prefs, 25*60-89))
	assert.Equal(t, 2, workedMinutes(prefs, 25*60-90))
	assert.Equal(t, 0, workedMinutes(prefs, 30*60))
}

func TestDurationsArePositive(t *testing.T) {
	for _, prefs := range []models.Preferences{models.DefaultPreferences(), {}} {
		for _, mode := range []models.Mode{models.ModeWork, models.ModeShortBreak, models.ModeLongBreak} {
			assert.Positive(t, prefs.DurationSeconds(mode), "mode %s", mode)
		}
	}
}
