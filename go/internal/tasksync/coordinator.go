package tasksync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultPushTimeout bounds a single push to the task service.
const DefaultPushTimeout = 5 * time.Second

// ErrTaskService wraps failures reported by the task service.
var ErrTaskService = errors.New("task service update failed")

// Updater is the one remote capability the coordinator needs.
type Updater interface {
	UpdateTask(ctx context.Context, taskID string, update models.StatusUpdate) (*models.Task, error)
}

// Coordinator pushes task status changes to the task service on behalf of
// the timer engine. Pushes are best-effort: they run off the caller's
// goroutine, failures are logged and never returned, and there is no retry.
//
// Pushes for the same task are sent one at a time in the order they were
// queued, so an in_progress never overtakes the pending that follows it.
type Coordinator struct {
	updater Updater
	timeout time.Duration

	mu sync.Mutex
	// last queued plain status per task, used to drop duplicate pushes for
	// the same transition
	last map[string]models.TaskStatus
	// per-task backlog; a key is present while a sender goroutine owns it
	queues map[string][]queuedPush

	inflight sync.WaitGroup
}

type queuedPush struct {
	ctx    context.Context
	update models.StatusUpdate
}

// NewCoordinator creates a coordinator over updater. A non-positive timeout
// means DefaultPushTimeout.
func NewCoordinator(updater Updater, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	return &Coordinator{
		updater: updater,
		timeout: timeout,
		last:    make(map[string]models.TaskStatus),
		queues:  make(map[string][]queuedPush),
	}
}

// PushStatus queues update for taskID and returns without waiting for the
// task service. It reports whether a push was queued.
//
// A plain status that matches the last queued push for the same task is
// dropped. Updates carrying worked minutes are always sent. The push is not
// cancelled when ctx is, only bounded by the coordinator timeout.
func (c *Coordinator) PushStatus(ctx context.Context, taskID string, update models.StatusUpdate) bool {
	if taskID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if update.AddWorkedMinutes == 0 && c.last[taskID] == update.Status {
		log.Debug().
			Str("task_id", taskID).
			Str("status", string(update.Status)).
			Msg("skipping duplicate task status push")
		return false
	}
	c.last[taskID] = update.Status

	queue, sending := c.queues[taskID]
	c.queues[taskID] = append(queue, queuedPush{ctx: context.WithoutCancel(ctx), update: update})
	if !sending {
		c.inflight.Add(1)
		go c.drain(taskID)
	}
	return true
}

// Wait blocks until every queued push has been sent or has failed.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// Reset drops all dedup memory, e.g. on logout. Pushes already queued are
// still sent.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[string]models.TaskStatus)
}

func (c *Coordinator) drain(taskID string) {
	defer c.inflight.Done()

	for {
		c.mu.Lock()
		queue := c.queues[taskID]
		if len(queue) == 0 {
			delete(c.queues, taskID)
			c.mu.Unlock()
			return
		}
		next := queue[0]
		c.queues[taskID] = queue[1:]
		c.mu.Unlock()

		c.send(next.ctx, taskID, next.update)
	}
}

func (c *Coordinator) send(ctx context.Context, taskID string, update models.StatusUpdate) {
	pushCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	task, err := c.updater.UpdateTask(pushCtx, taskID, update)
	if err != nil {
		c.forget(taskID, update.Status)
		log.Error().
			Err(fmt.Errorf("%w: %v", ErrTaskService, err)).
			Str("task_id", taskID).
			Str("status", string(update.Status)).
			Int("add_worked_minutes", update.AddWorkedMinutes).
			Msg("failed to push task status")
		return
	}

	event := log.Info().
		Str("task_id", taskID).
		Str("status", string(update.Status)).
		Int("add_worked_minutes", update.AddWorkedMinutes)
	if task != nil {
		event = event.Int("worked_minutes", task.WorkedMinutes)
	}
	event.Msg("pushed task status")
}

// forget clears the dedup entry for a failed push unless a newer status has
// been queued since.
func (c *Coordinator) forget(taskID string, status models.TaskStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last[taskID] == status {
		delete(c.last, taskID)
	}
}
