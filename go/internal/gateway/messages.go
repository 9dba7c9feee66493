package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/pomotrack/go/internal/models"
)

// MessageType is the type of a message sent to clients.
type MessageType string

const (
	// MessageTypeEvent carries a timer.Event.
	MessageTypeEvent        MessageType = "event"
	MessageTypeNotification MessageType = "notification"
	MessageTypeSound        MessageType = "sound"
	// MessageTypeResult answers a client command.
	MessageTypeResult MessageType = "result"
	MessageTypeError  MessageType = "error"
)

// ServerMessage is the envelope for everything written to a client.
type ServerMessage struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NotificationPayload is the data of a notification message.
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SoundPayload is the data of a sound message.
type SoundPayload struct {
	SoundID string `json:"sound_id"`
}

// ResultPayload is the data of a result message.
type ResultPayload struct {
	Command CommandType    `json:"command"`
	Session models.Session `json:"session"`
}

// ErrorPayload is the data of an error message.
type ErrorPayload struct {
	Command CommandType `json:"command,omitempty"`
	Message string      `json:"message"`
}

// CommandType names a client command.
type CommandType string

const (
	CommandStartPause        CommandType = "start_pause"
	CommandStart             CommandType = "start"
	CommandPause             CommandType = "pause"
	CommandReset             CommandType = "reset"
	CommandSkip              CommandType = "skip"
	CommandAssignTask        CommandType = "assign_task"
	CommandMarkTaskDone      CommandType = "mark_task_done"
	CommandUpdatePreferences CommandType = "update_preferences"
	CommandClear             CommandType = "clear"
	CommandVisibility        CommandType = "visibility"
)

// ClientCommand is a message received from a client.
type ClientCommand struct {
	Command     CommandType         `json:"command"`
	Task        *models.LinkedTask  `json:"task,omitempty"`
	TaskID      string              `json:"task_id,omitempty"`
	Preferences *models.Preferences `json:"preferences,omitempty"`
	Visible     *bool               `json:"visible,omitempty"`
}

func newServerMessage(messageType MessageType, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ServerMessage{
		ID:        uuid.New().String(),
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	})
}
