package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomotrack/go/internal/dbconfig"
	"github.com/mcdev12/pomotrack/go/internal/eventbus"
	"github.com/mcdev12/pomotrack/go/internal/gateway"
	"github.com/mcdev12/pomotrack/go/internal/health"
	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/mcdev12/pomotrack/go/internal/snapshot"
	"github.com/mcdev12/pomotrack/go/internal/stats"
	"github.com/mcdev12/pomotrack/go/internal/tasksync"
	"github.com/mcdev12/pomotrack/go/internal/timer"
	"github.com/mcdev12/pomotrack/go/internal/timer/scheduler"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Engine    *timer.Engine
	Scheduler *scheduler.Scheduler
	Hub       *gateway.Hub
	Publisher *eventbus.Publisher
	Health    *health.Checker

	preferencesPath string
	tasks           *tasksync.Coordinator
	database        *sql.DB
	pool            *pgxpool.Pool
	wg              sync.WaitGroup
}

func setupServices(ctx context.Context, cfg *Config, prefs models.Preferences) (*Services, error) {
	// Wire up dependency injection chain
	// Storage → collaborators → engine → scheduler / transport
	s := &Services{preferencesPath: cfg.PreferencesFile}
	clock := clockwork.NewRealClock()
	deps := timer.Dependencies{}

	var dbCfg dbconfig.Config
	if cfg.needsDatabase() {
		dbCfg = dbconfig.NewConfigFromEnv()
	}

	// Snapshots
	var store snapshot.Store
	switch cfg.SnapshotBackend {
	case backendPostgres:
		database, err := setupDatabase(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		s.database = database
		pgStore := snapshot.NewPostgresStore(database, snapshot.DefaultProfile)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to prepare snapshot schema: %w", err)
		}
		store = pgStore
	default:
		store = snapshot.NewFileStore(cfg.SnapshotFile)
		log.Info().Str("path", cfg.SnapshotFile).Msg("using file snapshot store")
	}
	deps.Snapshots = snapshot.NewAdapter(store, clock, snapshot.Config{
		ExpirationThreshold: cfg.ExpirationThreshold,
	})

	// Daily stats
	if cfg.StatsBackend == backendPostgres {
		pool, err := setupPool(ctx, dbCfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pool = pool
		repo := stats.NewRepository(pool, clock, cfg.StatsTimezone)
		if err := repo.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to prepare stats schema: %w", err)
		}
		deps.Stats = repo
	}

	// Task service
	if cfg.TaskServiceURL != "" {
		httpClient := &http.Client{
			Timeout: 30 * time.Second,
		}
		client := tasksync.NewClient(httpClient, cfg.TaskServiceURL)
		s.tasks = tasksync.NewCoordinator(client, cfg.TaskSyncTimeout)
		deps.Tasks = s.tasks
	} else {
		log.Warn().Msg("TASK_SERVICE_URL not set, task status will not be synced")
	}

	// Clients receive notifications and sounds over the hub
	s.Hub = gateway.NewHub(gateway.DefaultConnectionConfig())
	deps.Notifier = s.Hub
	deps.Sound = s.Hub

	s.Engine = timer.New(timer.Config{
		LongBreakEvery: cfg.LongBreakEvery,
		Clock:          clock,
		StoreTimeout:   cfg.StoreTimeout,
	}, deps, prefs)

	s.Scheduler = scheduler.New(s.Engine, clock, scheduler.Config{
		Interval: scheduler.DefaultInterval,
		Enabled:  cfg.TickerEnabled,
	})
	s.Hub.SetCommandHandler(gateway.NewCommandHandler(s.Engine, s.Scheduler))

	// Events
	if cfg.NATSURL != "" {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.NATSURL
		publisher, err := eventbus.Connect(ctx, busCfg, appName)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to setup event publisher: %w", err)
		}
		s.Publisher = publisher
	}

	s.Health = s.setupHealth(clock, cfg.TickerEnabled)
	return s, nil
}

func (s *Services) setupHealth(clock clockwork.Clock, tickerEnabled bool) *health.Checker {
	checker := health.NewChecker(clock, 5*time.Second)
	checker.Add("engine", func(ctx context.Context) error {
		_, err := s.Engine.Session(ctx)
		return err
	})
	if tickerEnabled {
		checker.Add("scheduler", func(context.Context) error {
			if !s.Scheduler.Running() {
				return errors.New("tick loop not running")
			}
			return nil
		})
	}
	if s.database != nil {
		checker.Add("snapshot_database", s.database.PingContext)
	}
	if s.pool != nil {
		checker.Add("stats_database", s.pool.Ping)
	}
	if s.Publisher != nil {
		checker.Add("nats", func(context.Context) error {
			if !s.Publisher.IsConnected() {
				return errors.New("NATS disconnected")
			}
			return nil
		})
	}
	return checker
}

// Start runs the engine and its consumers, restores the session and starts
// ticking.
func (s *Services) Start(ctx context.Context) error {
	hubEvents := s.Engine.Subscribe(256)
	prefEvents := s.Engine.Subscribe(16)
	var busEvents <-chan timer.Event
	if s.Publisher != nil {
		busEvents = s.Engine.Subscribe(256)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Engine.Run(ctx); err != nil {
			log.Error().Err(err).Msg("timer engine failed")
		}
	}()

	go s.Hub.Start(ctx)
	go s.Hub.Forward(ctx, hubEvents)
	go s.savePreferences(prefEvents)
	if s.Publisher != nil {
		go s.Publisher.Forward(ctx, busEvents)
	}

	session, err := s.Engine.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore timer session: %w", err)
	}
	log.Info().
		Str("mode", string(session.Mode)).
		Int("time_remaining_sec", session.TimeRemainingSeconds).
		Bool("is_active", session.IsActive).
		Msg("timer session ready")

	s.Scheduler.Start(ctx)
	return nil
}

// savePreferences mirrors preference changes into the preferences file.
func (s *Services) savePreferences(events <-chan timer.Event) {
	for event := range events {
		if event.Type != timer.EventPreferencesUpdated || event.Preferences == nil {
			continue
		}
		if err := savePreferences(s.preferencesPath, *event.Preferences); err != nil {
			log.Error().Err(err).Str("path", s.preferencesPath).Msg("failed to save preferences")
		}
	}
}

// Wait blocks until the engine loop has exited and queued task pushes have
// been sent.
func (s *Services) Wait() {
	s.Scheduler.Stop()
	s.wg.Wait()
	if s.tasks != nil {
		s.tasks.Wait()
	}
}

func (s *Services) Close() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.database != nil {
		if err := s.database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}
