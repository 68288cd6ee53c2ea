package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/api"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/config"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/connectivity"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/domain"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/events"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/logging"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/metrics"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/notify"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/remote"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/storage"
	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/syncq"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml (overrides CONFIG_PATH)")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	metrics.Register()

	sqlite, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	store := buildStore(cfg, sqlite, baseLogger)
	defer store.Close()

	client := remote.New(cfg.Remote, cfg.Auth, baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()

	initial, max := cfg.SyncDurations()
	queue, err := syncq.NewManager(ctx, store, client, bus, baseLogger, syncq.Options{
		RetryCeiling:    cfg.Sync.RetryCeiling,
		DispatchTimeout: time.Duration(cfg.Sync.DispatchTimeoutSeconds) * time.Second,
		Policy: syncq.RetryPolicy{
			InitialDelay:  initial,
			MaxDelay:      max,
			BackoffFactor: cfg.Sync.BackoffFactor,
		},
	})
	if err != nil {
		return fmt.Errorf("init sync queue: %w", err)
	}

	watcher := connectivity.NewWatcher(client, time.Duration(cfg.Sync.ProbeIntervalSeconds)*time.Second, baseLogger)
	watcher.OnChange(queue.SetOnline)
	go watcher.Start(ctx)

	if cfg.Reminders.Enabled {
		scheduler, err := notify.NewScheduler(cfg.Reminders.Time, bus, baseLogger)
		if err != nil {
			return fmt.Errorf("init reminders: %w", err)
		}
		go scheduler.Start(ctx)
	}

	server := api.NewServer(cfg.Monitoring.HTTPPort, sqlite, queue, cfg.Monitoring.PrometheusEnabled, baseLogger)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logger.Info().Str("storage", cfg.Storage.Path).Msg("engine started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown failed")
	}
	return nil
}

// buildStore layers redis in front of sqlite behind the failover
// decorator when redis is configured; otherwise sqlite serves alone.
func buildStore(cfg *config.Config, sqlite *storage.SQLiteStore, logger *zerolog.Logger) domain.Store {
	if !cfg.Storage.Redis.Enabled {
		return sqlite
	}
	redisStore := storage.NewRedisStore(storage.NewRedisClient(cfg.Storage.Redis))
	return storage.NewFailoverStore(redisStore, sqlite, logger)
}
