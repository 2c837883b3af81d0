package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/notify"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

// startEvents runs the outbox relay and the notification subscriber inside
// the API process. The memory driver has no shared database for a separate
// worker to read from.
func startEvents(ctx context.Context, cfg *config.Config, repos *repository.Repositories, loc *time.Location, m *metrics.Metrics, appLogger *logger.Logger) (func(), error) {
	zl, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create worker logger: %w", err)
	}

	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog(), m)
	if err != nil {
		return nil, err
	}

	processor, err := worker.NewOutboxProcessor(repos.Outbox, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Redis.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
	}, zl, m)
	if err != nil {
		broker.Close()
		return nil, err
	}
	cleanup := worker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, zl)

	var mailer email.Service = email.NewLogService(*appLogger.Zerolog())
	if cfg.SMTP.Enabled {
		mailer = email.NewSMTPService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	subscriber := notify.NewSubscriber(broker, cfg.Redis.Channel, repos.Doctors, repos.Visits, mailer, loc, zl, m)

	go processor.Start(ctx)
	go cleanup.Start(ctx)
	go func() {
		if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("notification subscriber stopped")
		}
	}()

	return func() {
		if err := broker.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis broker")
		}
		_ = zl.Sync()
	}, nil
}
