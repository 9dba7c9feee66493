package models

import "time"

// TaskStatus is the status the external task record is moved to.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// StatusUpdate is one push to the task service.
type StatusUpdate struct {
	Status           TaskStatus `json:"status"`
	AddWorkedMinutes int        `json:"add_worked_minutes,omitempty"`
}

// Task is the task record as returned by the task service.
type Task struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Status        TaskStatus `json:"status"`
	WorkedMinutes int        `json:"worked_minutes"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DailyStats holds today's aggregate counters.
type DailyStats struct {
	Day                time.Time `json:"day"`
	PomodorosCompleted int       `json:"pomodoros_completed"`
}
