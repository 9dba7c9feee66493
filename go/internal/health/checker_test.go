package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkedAt = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func TestCheckerAllHealthy(t *testing.T) {
	checker := NewChecker(clockwork.NewFakeClockAt(checkedAt), time.Second)
	checker.Add("engine", func(context.Context) error { return nil })
	checker.Add("database", func(context.Context) error { return nil })

	status := checker.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, map[string]string{"engine": "ok", "database": "ok"}, status.Components)
	assert.Empty(t, status.Errors)
	assert.Equal(t, checkedAt, status.CheckedAt)
}

func TestCheckerServeHTTPUnhealthy(t *testing.T) {
	checker := NewChecker(clockwork.NewFakeClockAt(checkedAt), time.Second)
	checker.Add("engine", func(context.Context) error { return nil })
	checker.Add("nats", func(context.Context) error { return errors.New("disconnected") })

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/details", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.False(t, status.Healthy)
	assert.Equal(t, "unhealthy", status.Components["nats"])
	assert.Equal(t, []string{"nats: disconnected"}, status.Errors)
}

func TestCheckerServeHTTPHealthy(t *testing.T) {
	checker := NewChecker(nil, 0)

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/details", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
