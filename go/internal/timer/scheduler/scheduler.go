package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/mcdev12/pomotrack/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the tick period.
const DefaultInterval = time.Second

// Ticker is the engine capability driven by the scheduler.
type Ticker interface {
	Tick(ctx context.Context) (models.Session, error)
}

// Config holds scheduler options.
type Config struct {
	Interval time.Duration
	// Enabled is false for headless and test runs, where ticks are driven
	// by hand.
	Enabled bool
}

// DefaultConfig returns an enabled one-second scheduler.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, Enabled: true}
}

// Scheduler drives a single repeating tick into the engine.
type Scheduler struct {
	ticker Ticker
	clock  clockwork.Clock
	config Config

	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler for ticker.
func New(ticker Ticker, clock clockwork.Clock, config Config) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &Scheduler{
		ticker: ticker,
		clock:  clock,
		config: config,
	}
}

// Start begins ticking until ctx is cancelled or Stop is called. Starting a
// running scheduler is a no-op. It reports whether a new loop was started.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parent = ctx
	return s.startLocked()
}

// Stop cancels the tick loop and waits for it to exit. In-flight engine
// work is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info().Msg("tick scheduler stopped")
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// SetVisible handles a host visibility change. Becoming visible restarts
// the loop if it is not running, recovering from throttling while hidden.
// Hiding does nothing.
func (s *Scheduler) SetVisible(visible bool) {
	if !visible {
		log.Debug().Msg("host hidden")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parent == nil {
		s.parent = context.Background()
	}
	if s.startLocked() {
		log.Info().Msg("tick scheduler restarted on visibility")
	}
}

func (s *Scheduler) startLocked() bool {
	if !s.config.Enabled {
		log.Debug().Msg("tick scheduler disabled, not starting")
		return false
	}
	if s.done != nil {
		return false
	}
	if s.parent.Err() != nil {
		return false
	}

	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	ticker := s.clock.NewTicker(s.config.Interval)
	go s.loop(ctx, ticker, done)

	log.Info().Dur("interval", s.config.Interval).Msg("tick scheduler started")
	return true
}

func (s *Scheduler) loop(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	defer s.release(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_, err := s.ticker.Tick(ctx)
			switch {
			case err == nil:
			case errors.Is(err, timer.ErrEngineStopped):
				log.Warn().Msg("timer engine stopped, ending tick loop")
				return
			case ctx.Err() != nil:
				return
			default:
				log.Error().Err(err).Msg("tick failed")
			}
		}
	}
}

// release forgets a loop that exited on its own so a later Start can run.
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.cancel()
		s.cancel, s.done = nil, nil
	}
}
