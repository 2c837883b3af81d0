package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel       string
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.Channel == "":
		return errors.New("channel is required")
	case c.BatchSize <= 0:
		return errors.New("batch size must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("poll interval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("retry attempts must be greater than 0")
	}
	return nil
}

// OutboxProcessor relays committed outbox events to the broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *zap.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger.Named("outbox"),
		metrics: metrics,
	}, nil
}

// Start polls until ctx is done.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor",
		zap.String("channel", p.config.Channel),
		zap.Duration("poll_interval", p.config.PollInterval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("failed to process outbox batch", zap.Error(err))
			}
		}
	}
}

// RunOnce relays one batch and returns how many events were published.
func (p *OutboxProcessor) RunOnce(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	published := 0
	_, err := p.repo.ProcessBatch(ctx, p.config.BatchSize, p.config.RetryAttempts,
		func(ctx context.Context, event *model.OutboxEvent) error {
			if err := p.publish(ctx, event); err != nil {
				p.metrics.OutboxEventsFailed.Inc()
				p.logger.Warn("failed to publish event",
					zap.String("event_id", event.ID.String()),
					zap.String("event_type", event.EventType),
					zap.Int("retry_count", event.RetryCount),
					zap.Error(err))
				return err
			}
			p.metrics.OutboxEventsProcessed.Inc()
			published++
			return nil
		})
	if err != nil {
		return published, fmt.Errorf("failed to process outbox events: %w", err)
	}

	if pending, err := p.repo.CountPending(ctx); err == nil {
		p.metrics.OutboxQueueSize.Set(float64(pending))
	}
	if published > 0 {
		p.logger.Debug("published outbox events", zap.Int("count", published))
	}
	return published, nil
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) error {
	return p.broker.Publish(ctx, p.config.Channel, &messaging.Message{
		ID:         event.ID,
		Type:       event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.CreatedAt,
	})
}
