package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// CheckFunc reports a component failure as an error.
type CheckFunc func(ctx context.Context) error

// Status is the result of running every registered check.
type Status struct {
	Healthy    bool              `json:"healthy"`
	CheckedAt  time.Time         `json:"checked_at"`
	Components map[string]string `json:"components"`
	Errors     []string          `json:"errors"`
}

type namedCheck struct {
	name  string
	check CheckFunc
}

// Checker aggregates component checks for the service.
type Checker struct {
	mu      sync.RWMutex
	checks  []namedCheck
	clock   clockwork.Clock
	timeout time.Duration
}

// NewChecker creates a checker. Each request runs all checks under timeout.
func NewChecker(clock clockwork.Clock, timeout time.Duration) *Checker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{clock: clock, timeout: timeout}
}

// Add registers a named check.
func (c *Checker) Add(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, namedCheck{name: name, check: check})
}

// Check runs every check in registration order.
func (c *Checker) Check(ctx context.Context) Status {
	c.mu.RLock()
	checks := append([]namedCheck(nil), c.checks...)
	c.mu.RUnlock()

	status := Status{
		Healthy:    true,
		CheckedAt:  c.clock.Now(),
		Components: make(map[string]string, len(checks)),
		Errors:     []string{},
	}

	for _, nc := range checks {
		if err := nc.check(ctx); err != nil {
			status.Healthy = false
			status.Components[nc.name] = "unhealthy"
			status.Errors = append(status.Errors, nc.name+": "+err.Error())
			continue
		}
		status.Components[nc.name] = "ok"
	}
	return status
}

// ServeHTTP writes the status as JSON, with 503 when anything is unhealthy.
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	status := c.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		log.Warn().Strs("errors", status.Errors).Msg("health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode health status")
	}
}
