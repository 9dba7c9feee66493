package timer

import "errors"

var (
	// ErrValidation marks a refused action. It is logged, never returned by
	// the control methods.
	ErrValidation = errors.New("timer validation failed")

	// ErrNoLinkedTask is the validation failure for starting Work without a task.
	ErrNoLinkedTask = errors.New("work session requires a linked task")

	// ErrEngineStopped is returned when the engine loop is no longer running.
	ErrEngineStopped = errors.New("timer engine stopped")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("timer engine already running")
)
