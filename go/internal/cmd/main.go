package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	prefs, err := loadPreferences(cfg.PreferencesFile)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.PreferencesFile).Msg("using default preferences")
	}

	log.Info().
		Str("port", cfg.Port).
		Str("snapshot_backend", cfg.SnapshotBackend).
		Str("stats_backend", cfg.StatsBackend).
		Str("task_service_url", cfg.TaskServiceURL).
		Bool("ticker_enabled", cfg.TickerEnabled).
		Msg("starting pomotrack timer service")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg, prefs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}
	defer services.Close()

	if err := services.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start timer")
	}

	server := setupServer(cfg, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	// Stop ticking and let the engine finish its last write
	cancel()
	services.Wait()

	log.Info().Msg("pomotrack timer service shutdown complete")
}
