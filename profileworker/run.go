package profileworker

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mycelian/mycelian-feed/internal/config"
	"github.com/mycelian/mycelian-feed/internal/factory"
	"github.com/mycelian/mycelian-feed/internal/logger"
	"github.com/mycelian/mycelian-feed/internal/outbox"
	"github.com/mycelian/mycelian-feed/internal/profile"
)

const serviceName = "profile-worker"

// Run drains interaction_recorded outbox rows into profile rebuilds and
// blocks until shutdown or error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		log := logger.New(serviceName, "info")
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log := logger.New(serviceName, cfg.LogLevel)

	if cfg.DBDriver != "postgres" {
		return fmt.Errorf("profile-worker requires DB_DRIVER=postgres, got %s", cfg.DBDriver)
	}
	if cfg.RebuildMode != config.RebuildOutbox {
		log.Warn().Str("rebuild_mode", cfg.RebuildMode).Msg("feed service is not writing outbox rows; worker will idle")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return err
	}
	defer func() { _ = storage.Close() }()

	builder := profile.NewBuilder(storage.Store, profile.Config{
		RecentWindow:   1000,
		MinCommonLikes: cfg.MinCommonLikes,
		MinTotalLikes:  cfg.MinTotalLikes,
	}, log)
	scheduler := profile.NewScheduler(builder, profile.SchedulerConfig{
		Every:           cfg.RebuildEvery,
		BreakerFailures: uint32(cfg.BreakerFailures),
		BreakerTimeout:  cfg.BreakerTimeout,
	}, log)

	w := outbox.NewWorker(storage.DB, scheduler, outbox.Config{
		BatchSize: cfg.OutboxBatchSize,
		Interval:  cfg.OutboxInterval,
	}, log)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("profile worker exit")
		return err
	}
	return nil
}
