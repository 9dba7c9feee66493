package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/mcdev12/pomotrack/go/internal/snapshot"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

type push struct {
	TaskID string
	Update models.StatusUpdate
}

type fakeTasks struct {
	mu     sync.Mutex
	pushes []push
	resets int
}

func (f *fakeTasks) PushStatus(_ context.Context, taskID string, update models.StatusUpdate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, push{TaskID: taskID, Update: update})
	return true
}

func (f *fakeTasks) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeTasks) all() []push {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push(nil), f.pushes...)
}

type fakeStats struct {
	mu         sync.Mutex
	today      int
	getErr     error
	incErr     error
	incBlock   bool
	increments int
}

func (f *fakeStats) GetToday(_ context.Context) (models.DailyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return models.DailyStats{}, f.getErr
	}
	return models.DailyStats{Day: baseTime, PomodorosCompleted: f.today}, nil
}

func (f *fakeStats) IncrementPomodoro(ctx context.Context) error {
	f.mu.Lock()
	incErr, block := f.incErr, f.incBlock
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if incErr != nil {
		return incErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	f.today++
	return nil
}

func (f *fakeStats) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.increments
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (f *fakeNotifier) Show(title, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.titles)
}

type fakeSound struct {
	mu     sync.Mutex
	played []string
}

func (f *fakeSound) Play(soundID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, soundID)
}

func (f *fakeSound) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

type memoryStore struct {
	mu      sync.Mutex
	snap    *snapshot.PersistedSnapshot
	saves     int
	saveErr   error
	saveBlock bool
}

func (m *memoryStore) Save(ctx context.Context, snap *snapshot.PersistedSnapshot) error {
	m.mu.Lock()
	block := m.saveBlock
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *snap
	m.snap = &copied
	m.saves++
	return nil
}

func (m *memoryStore) Load(_ context.Context) (*snapshot.PersistedSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	copied := *m.snap
	return &copied, nil
}

func (m *memoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

func (m *memoryStore) stored() *snapshot.PersistedSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil
	}
	copied := *m.snap
	return &copied
}

type harness struct {
	engine   *Engine
	clock    *clockwork.FakeClock
	tasks    *fakeTasks
	stats    *fakeStats
	notifier *fakeNotifier
	sound    *fakeSound
	store    *memoryStore
	prefs    models.Preferences
	config   Config
}

type harnessOption func(*harness)

func withPreferences(prefs models.Preferences) harnessOption {
	return func(h *harness) { h.prefs = prefs }
}

func withSnapshot(snap snapshot.PersistedSnapshot) harnessOption {
	return func(h *harness) { h.store.snap = &snap }
}

func withTodayStats(n int) harnessOption {
	return func(h *harness) { h.stats.today = n }
}

func withStoreTimeout(d time.Duration) harnessOption {
	return func(h *harness) { h.config.StoreTimeout = d }
}

// newHarness builds an engine over fakes and runs it until the test ends.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		clock:    clockwork.NewFakeClockAt(baseTime),
		tasks:    &fakeTasks{},
		stats:    &fakeStats{},
		notifier: &fakeNotifier{},
		sound:    &fakeSound{},
		store:    &memoryStore{},
		prefs:    models.DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(h)
	}

	deps := Dependencies{
		Tasks:     h.tasks,
		Stats:     h.stats,
		Notifier:  h.notifier,
		Sound:     h.sound,
		Snapshots: snapshot.NewAdapter(h.store, h.clock, snapshot.DefaultConfig()),
	}
	h.config.Clock = h.clock
	h.engine = New(h.config, deps, h.prefs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return h
}

func task1() models.LinkedTask {
	return models.LinkedTask{ID: "T1", Name: "Write report", Description: "quarterly numbers"}
}

func task2() models.LinkedTask {
	return models.LinkedTask{ID: "T2", Name: "Review PR"}
}
