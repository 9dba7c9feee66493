package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/mcdev12/pomotrack/go/internal/snapshot"
	"github.com/mcdev12/pomotrack/go/internal/tasksync"
	"github.com/mcdev12/pomotrack/go/internal/timer"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const appName = "pomotrack"

const (
	backendFile     = "file"
	backendPostgres = "postgres"
	backendNone     = "none"
)

type Config struct {
	Port                string
	LogLevel            zerolog.Level
	SnapshotBackend     string
	SnapshotFile        string
	PreferencesFile     string
	TaskServiceURL      string
	TaskSyncTimeout     time.Duration
	StoreTimeout        time.Duration
	NATSURL             string
	StatsBackend        string
	StatsTimezone       *time.Location
	TickerEnabled       bool
	LongBreakEvery      int
	ExpirationThreshold time.Duration
}

// preferencesFile is the on-disk layout of PREFERENCES_FILE.
type preferencesFile struct {
	Preferences models.Preferences `yaml:"preferences"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadConfig() (*Config, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	snapshotFile := os.Getenv("SNAPSHOT_FILE")
	if snapshotFile == "" {
		if snapshotFile, err = snapshot.DefaultFilePath(appName); err != nil {
			return nil, err
		}
	}

	preferencesPath := os.Getenv("PREFERENCES_FILE")
	if preferencesPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user config dir: %w", err)
		}
		preferencesPath = filepath.Join(configDir, appName, "preferences.yaml")
	}

	loc, err := time.LoadLocation(getEnv("STATS_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            level,
		SnapshotBackend:     getEnv("SNAPSHOT_BACKEND", backendFile),
		SnapshotFile:        snapshotFile,
		PreferencesFile:     preferencesPath,
		TaskServiceURL:      os.Getenv("TASK_SERVICE_URL"),
		TaskSyncTimeout:     getEnvAsDuration("TASK_SYNC_TIMEOUT", tasksync.DefaultPushTimeout),
		StoreTimeout:        getEnvAsDuration("STORE_TIMEOUT", timer.DefaultStoreTimeout),
		NATSURL:             os.Getenv("NATS_URL"),
		StatsBackend:        getEnv("STATS_BACKEND", backendNone),
		StatsTimezone:       loc,
		TickerEnabled:       getEnvAsBool("TICKER_ENABLED", true),
		LongBreakEvery:      getEnvAsInt("LONG_BREAK_EVERY", timer.DefaultLongBreakEvery),
		ExpirationThreshold: getEnvAsDuration("EXPIRATION_THRESHOLD", snapshot.DefaultExpirationThreshold),
	}

	switch cfg.SnapshotBackend {
	case backendFile, backendPostgres:
	default:
		return nil, fmt.Errorf("invalid SNAPSHOT_BACKEND %q", cfg.SnapshotBackend)
	}
	switch cfg.StatsBackend {
	case backendPostgres, backendNone:
	default:
		return nil, fmt.Errorf("invalid STATS_BACKEND %q", cfg.StatsBackend)
	}
	if cfg.LongBreakEvery <= 0 {
		return nil, fmt.Errorf("LONG_BREAK_EVERY must be positive, got %d", cfg.LongBreakEvery)
	}

	return cfg, nil
}

func (c *Config) needsDatabase() bool {
	return c.SnapshotBackend == backendPostgres || c.StatsBackend == backendPostgres
}

// loadPreferences reads the preferences file. A missing file yields the
// defaults, which are written back so the user has something to edit.
func loadPreferences(path string) (models.Preferences, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		prefs := models.DefaultPreferences()
		return prefs, savePreferences(path, prefs)
	}
	if err != nil {
		return models.DefaultPreferences(), fmt.Errorf("failed to read preferences file: %w", err)
	}

	file := preferencesFile{Preferences: models.DefaultPreferences()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return models.DefaultPreferences(), fmt.Errorf("failed to parse preferences: %w", err)
	}
	if err := file.Preferences.Validate(); err != nil {
		return models.DefaultPreferences(), fmt.Errorf("invalid preferences: %w", err)
	}
	return file.Preferences, nil
}

func savePreferences(path string, prefs models.Preferences) error {
	data, err := yaml.Marshal(preferencesFile{Preferences: prefs})
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	return nil
}
