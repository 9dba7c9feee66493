package timer

import (
	"time"

	"github.com/mcdev12/pomotrack/go/internal/models"
)

// EventType defines the type of engine event.
type EventType string

const (
	EventTick               EventType = "tick"
	EventStateChanged       EventType = "state_changed"
	EventModeChanged        EventType = "mode_changed"
	EventPomodoroCompleted  EventType = "pomodoro_completed"
	EventTaskAssigned       EventType = "task_assigned"
	EventTaskDone           EventType = "task_done"
	EventStartRefused       EventType = "start_refused"
	EventRestored           EventType = "restored"
	EventCleared            EventType = "cleared"
	EventPreferencesUpdated EventType = "preferences_updated"
)

// Event is an engine update for observers.
type Event struct {
	Type         EventType           `json:"type"`
	Session      models.Session      `json:"session"`
	Preferences  *models.Preferences `json:"preferences,omitempty"`
	PreviousMode models.Mode         `json:"previous_mode,omitempty"`
	TaskID       string              `json:"task_id,omitempty"`
	Message      string              `json:"message,omitempty"`
	At           time.Time           `json:"at"`
}

// Subscribe registers a new observer channel. Events are dropped for
// observers whose buffer is full. Channels are closed when Run returns.
func (e *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	if e.subsClosed {
		close(ch)
		return ch
	}
	e.subs = append(e.subs, ch)
	return ch
}

func (e *Engine) emit(eventType EventType, fill func(*Event)) {
	event := Event{
		Type:    eventType,
		Session: e.session.Clone(),
		At:      e.clock.Now(),
	}
	if fill != nil {
		fill(&event)
	}

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.subsClosed = true
}
