package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Base delay before a failed event is retried; doubles per attempt.
const outboxRetryBase = 5 * time.Second

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func insertOutboxEvent(ctx context.Context, execer sqlx.ExtContext, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := execer.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		[]byte(event.Payload),
		string(event.Status),
		event.RetryCount,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return mapStoreError(insertOutboxEvent(ctx, r.db, event))
}

func (r *outboxRepository) ProcessBatch(ctx context.Context, limit, maxRetries int, fn func(context.Context, *model.OutboxEvent) error) (int, error) {
	processed := 0

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			SELECT id, event_type, payload, status, error_message, retry_count,
			       retry_at, created_at, updated_at, processed_at
			FROM outbox_events
			WHERE status IN ('pending', 'retry')
			  AND (retry_at IS NULL OR retry_at <= NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`
		var events []*model.OutboxEvent
		if err := tx.SelectContext(ctx, &events, query, limit); err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, event := range events {
			if handleErr := fn(ctx, event); handleErr != nil {
				if err := markOutboxFailure(ctx, tx, event, handleErr, maxRetries); err != nil {
					return err
				}
				continue
			}
			update := `
				UPDATE outbox_events
				SET status = 'processed', error_message = NULL, processed_at = NOW(), updated_at = NOW()
				WHERE id = $1
			`
			if _, err := tx.ExecContext(ctx, update, event.ID); err != nil {
				return fmt.Errorf("failed to mark event processed: %w", err)
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

func markOutboxFailure(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent, cause error, maxRetries int) error {
	attempts := event.RetryCount + 1
	status := model.OutboxStatusRetry
	var retryAt *time.Time
	if attempts >= maxRetries {
		status = model.OutboxStatusFailed
	} else {
		at := time.Now().UTC().Add(outboxRetryBase << (attempts - 1))
		retryAt = &at
	}

	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_count = $3, retry_at = $4, updated_at = NOW()
		WHERE id = $5
	`
	if _, err := tx.ExecContext(ctx, query, string(status), cause.Error(), attempts, retryAt, event.ID); err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	return nil
}

func (r *outboxRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM outbox_events WHERE status IN ('pending', 'retry')`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, mapStoreError(fmt.Errorf("failed to count pending events: %w", err))
	}
	return count, nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, mapStoreError(fmt.Errorf("failed to delete processed events: %w", err))
	}

	return result.RowsAffected()
}
