package timer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Config contains runtime options for the Engine.
type Config struct {
	// LongBreakEvery is the number of completed pomodoros between long breaks.
	LongBreakEvery int
	// Clock drives timestamps. Defaults to the real clock.
	Clock clockwork.Clock
	// StoreTimeout bounds each snapshot and stats call.
	StoreTimeout time.Duration
}

// DefaultStoreTimeout is used when Config.StoreTimeout is not set.
const DefaultStoreTimeout = 2 * time.Second

type command struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Engine owns the timer session and every transition rule.
//
// The session is only touched by the loop started with Run. Public methods
// hand a command to that loop and wait for it to finish, so ticks and user
// actions never interleave.
type Engine struct {
	config     Config
	clock      clockwork.Clock
	deps       Dependencies
	instanceID string

	commands chan command
	stopped  chan struct{}
	running  atomic.Bool

	// stats writes started off the loop
	background sync.WaitGroup

	subsMu     sync.Mutex
	subs       []chan Event
	subsClosed bool

	// owned by the Run loop
	session models.Session
	prefs   models.Preferences
}

// New creates an engine with a default session sized from prefs.
func New(config Config, deps Dependencies, prefs models.Preferences) *Engine {
	if config.LongBreakEvery <= 0 {
		config.LongBreakEvery = DefaultLongBreakEvery
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = DefaultStoreTimeout
	}
	return &Engine{
		config:     config,
		clock:      config.Clock,
		deps:       deps,
		instanceID: uuid.New().String()[:8],
		commands:   make(chan command),
		stopped:    make(chan struct{}),
		session:    models.NewSession(prefs),
		prefs:      prefs,
	}
}

// Run processes commands until ctx is cancelled. Observer channels are
// closed when it returns.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.stopped)
	defer e.closeSubscribers()
	defer e.background.Wait()

	log.Info().Str("instance", e.instanceID).Msg("timer engine started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", e.instanceID).Msg("timer engine shutting down")
			return nil
		case cmd := <-e.commands:
			cmd.fn(ctx)
			close(cmd.done)
		}
	}
}

// exec hands fn to the Run loop and waits for it to complete.
func (e *Engine) exec(ctx context.Context, fn func(ctx context.Context)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// storeContext detaches a store call from the caller and bounds it, so a hung
// backend costs at most StoreTimeout of loop time.
func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.config.StoreTimeout)
}

// apply runs fn on the loop and returns the session as fn left it.
func (e *Engine) apply(ctx context.Context, fn func(ctx context.Context)) (models.Session, error) {
	result := make(chan models.Session, 1)
	err := e.exec(ctx, func(runCtx context.Context) {
		fn(runCtx)
		result <- e.session.Clone()
	})
	if err != nil {
		return models.Session{}, err
	}
	return <-result, nil
}

// Restore rehydrates the session from the last snapshot and seeds the
// pomodoro count from today's stats.
func (e *Engine) Restore(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, e.restore)
}

// StartPause toggles the session between running and paused.
func (e *Engine) StartPause(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, func(ctx context.Context) {
		if e.session.IsActive {
			e.pause(ctx)
			return
		}
		e.start(ctx)
	})
}

// Start activates the session. Starting Work without a linked task is
// refused and logged.
func (e *Engine) Start(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, e.start)
}

// Pause deactivates the session. Pausing an inactive session does nothing.
func (e *Engine) Pause(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, e.pause)
}

// Reset stops the session and refills the current mode's time.
func (e *Engine) Reset(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, e.reset)
}

// Skip takes the expiry path immediately.
func (e *Engine) Skip(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, func(ctx context.Context) {
		e.expire(ctx, "skipped")
	})
}

// Tick advances the countdown by one second, expiring the mode when it has
// run out.
func (e *Engine) Tick(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, e.tick)
}

// AssignTask links task to the session. It never starts the timer.
func (e *Engine) AssignTask(ctx context.Context, task models.LinkedTask) (models.Session, error) {
	return e.apply(ctx, func(ctx context.Context) {
		e.assignTask(ctx, task)
	})
}

// MarkTaskDone completes taskID on the task service, unlinking it when it
// is the linked task.
func (e *Engine) MarkTaskDone(ctx context.Context, taskID string) (models.Session, error) {
	return e.apply(ctx, func(ctx context.Context) {
		e.markTaskDone(ctx, taskID)
	})
}

// UpdatePreferences replaces the preferences. Unlike the control methods it
// returns validation failures, since they come straight from user input.
func (e *Engine) UpdatePreferences(ctx context.Context, prefs models.Preferences) (models.Session, error) {
	if err := prefs.Validate(); err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return e.apply(ctx, func(ctx context.Context) {
		e.updatePreferences(ctx, prefs)
	})
}

// Clear resets the session to defaults, keeping preferences.
func (e *Engine) Clear(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, e.clear)
}

// Session returns a copy of the current session.
func (e *Engine) Session(ctx context.Context) (models.Session, error) {
	return e.apply(ctx, func(context.Context) {})
}

// Preferences returns the current preferences.
func (e *Engine) Preferences(ctx context.Context) (models.Preferences, error) {
	result := make(chan models.Preferences, 1)
	if err := e.exec(ctx, func(context.Context) { result <- e.prefs }); err != nil {
		return models.Preferences{}, err
	}
	return <-result, nil
}
