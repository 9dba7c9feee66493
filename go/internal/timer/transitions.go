package timer

import "github.com/mcdev12/pomotrack/go/internal/models"

// DefaultLongBreakEvery is the long-break cadence in completed pomodoros.
const DefaultLongBreakEvery = 4

// NextMode returns the mode entered when current expires or is skipped.
// completed is the number of pomodoros finished before this expiry.
func NextMode(current models.Mode, completed, longBreakEvery int) models.Mode {
	if current != models.ModeWork {
		return models.ModeWork
	}
	if longBreakEvery > 0 && (completed+1)%longBreakEvery == 0 {
		return models.ModeLongBreak
	}
	return models.ModeShortBreak
}

// workedMinutes is the Work time spent so far, rounded to the nearest minute.
func workedMinutes(prefs models.Preferences, remainingSeconds int) int {
	elapsed := prefs.DurationSeconds(models.ModeWork) - remainingSeconds
	if elapsed <= 0 {
		return 0
	}
	return (elapsed + 30) / 60
}

func completionMessage(next models.Mode) (string, string) {
	switch next {
	case models.ModeLongBreak:
		return "Pomodoro complete", "Great streak! Time for a long break."
	case models.ModeShortBreak:
		return "Pomodoro complete", "Time for a short break."
	default:
		return "Break over", "Time to get back to work."
	}
}
