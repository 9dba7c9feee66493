package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidCommand is returned for malformed or unknown client commands.
	ErrInvalidCommand = errors.New("invalid command")
)

// Controller is the engine surface exposed to clients.
type Controller interface {
	StartPause(ctx context.Context) (models.Session, error)
	Start(ctx context.Context) (models.Session, error)
	Pause(ctx context.Context) (models.Session, error)
	Reset(ctx context.Context) (models.Session, error)
	Skip(ctx context.Context) (models.Session, error)
	AssignTask(ctx context.Context, task models.LinkedTask) (models.Session, error)
	MarkTaskDone(ctx context.Context, taskID string) (models.Session, error)
	UpdatePreferences(ctx context.Context, prefs models.Preferences) (models.Session, error)
	Clear(ctx context.Context) (models.Session, error)
	Session(ctx context.Context) (models.Session, error)
	Preferences(ctx context.Context) (models.Preferences, error)
}

// VisibilityListener consumes the host visibility signal.
type VisibilityListener interface {
	SetVisible(visible bool)
}

// CommandHandler dispatches client commands to the engine.
type CommandHandler struct {
	controller Controller
	visibility VisibilityListener
}

// NewCommandHandler creates a command handler. visibility may be nil.
func NewCommandHandler(controller Controller, visibility VisibilityListener) *CommandHandler {
	return &CommandHandler{
		controller: controller,
		visibility: visibility,
	}
}

// Handle decodes and runs one client command.
func (h *CommandHandler) Handle(ctx context.Context, raw []byte) (ResultPayload, error) {
	var cmd ClientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return ResultPayload{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	session, err := h.dispatch(ctx, cmd)
	result := ResultPayload{Command: cmd.Command, Session: session}
	if err != nil {
		log.Warn().Err(err).Str("command", string(cmd.Command)).Msg("client command failed")
		return result, err
	}
	return result, nil
}

func (h *CommandHandler) dispatch(ctx context.Context, cmd ClientCommand) (models.Session, error) {
	switch cmd.Command {
	case CommandStartPause:
		return h.controller.StartPause(ctx)
	case CommandStart:
		return h.controller.Start(ctx)
	case CommandPause:
		return h.controller.Pause(ctx)
	case CommandReset:
		return h.controller.Reset(ctx)
	case CommandSkip:
		return h.controller.Skip(ctx)
	case CommandAssignTask:
		if cmd.Task == nil {
			return models.Session{}, fmt.Errorf("%w: assign_task requires a task", ErrInvalidCommand)
		}
		return h.controller.AssignTask(ctx, *cmd.Task)
	case CommandMarkTaskDone:
		if cmd.TaskID == "" {
			return models.Session{}, fmt.Errorf("%w: mark_task_done requires a task_id", ErrInvalidCommand)
		}
		return h.controller.MarkTaskDone(ctx, cmd.TaskID)
	case CommandUpdatePreferences:
		if cmd.Preferences == nil {
			return models.Session{}, fmt.Errorf("%w: update_preferences requires preferences", ErrInvalidCommand)
		}
		return h.controller.UpdatePreferences(ctx, *cmd.Preferences)
	case CommandClear:
		return h.controller.Clear(ctx)
	case CommandVisibility:
		if cmd.Visible == nil {
			return models.Session{}, fmt.Errorf("%w: visibility requires visible", ErrInvalidCommand)
		}
		if h.visibility != nil {
			h.visibility.SetVisible(*cmd.Visible)
		}
		return h.controller.Session(ctx)
	default:
		return models.Session{}, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, cmd.Command)
	}
}
