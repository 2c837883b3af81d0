package memory

import (
	"context"
	"slices"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const outboxRetryBase = 5 * time.Second

type outboxView struct{ *Store }

func (s *Store) Outbox() repository.OutboxRepository { return outboxView{s} }

func (s outboxView) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return apperrors.InvalidParameter("event payload cannot be nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

// ProcessBatch hands due events to fn without holding the store lock, so
// bookings are not blocked by a slow broker. Batches are serialized.
func (s outboxView) ProcessBatch(ctx context.Context, limit, maxRetries int, fn func(context.Context, *model.OutboxEvent) error) (int, error) {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	now := time.Now().UTC()
	s.mu.RLock()
	var due []*model.OutboxEvent
	for _, e := range s.events {
		if len(due) == limit {
			break
		}
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		due = append(due, e)
	}
	s.mu.RUnlock()

	processed := 0
	for _, e := range due {
		if err := ctx.Err(); err != nil {
			return processed, apperrors.StoreUnavailable(err)
		}
		s.mu.RLock()
		cp := *e
		s.mu.RUnlock()

		handleErr := fn(ctx, &cp)

		s.mu.Lock()
		e.UpdatedAt = time.Now().UTC()
		if handleErr == nil {
			at := e.UpdatedAt
			e.Status = model.OutboxStatusProcessed
			e.ErrorMessage = nil
			e.ProcessedAt = &at
			processed++
		} else {
			msg := handleErr.Error()
			e.ErrorMessage = &msg
			e.RetryCount++
			if e.RetryCount >= maxRetries {
				e.Status = model.OutboxStatusFailed
				e.RetryAt = nil
			} else {
				at := e.UpdatedAt.Add(outboxRetryBase << (e.RetryCount - 1))
				e.Status = model.OutboxStatusRetry
				e.RetryAt = &at
			}
		}
		s.mu.Unlock()
	}
	return processed, nil
}

func (s outboxView) CountPending(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.events {
		if e.Status == model.OutboxStatusPending || e.Status == model.OutboxStatusRetry {
			n++
		}
	}
	return n, nil
}

func (s outboxView) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.events)
	s.events = slices.DeleteFunc(s.events, func(e *model.OutboxEvent) bool {
		return e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before)
	})
	return int64(n - len(s.events)), nil
}
