package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func (s holidayView) Create(ctx context.Context, holiday *model.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := holiday.Date.Format(time.DateOnly)
	for _, h := range s.holidays {
		if h.Date.Format(time.DateOnly) == day {
			return apperrors.InvalidParameter("a holiday already exists on this date", nil)
		}
	}
	holiday.ID = uuid.New()
	holiday.CreatedAt = time.Now().UTC()
	cp := *holiday
	s.holidays[holiday.ID] = &cp
	return nil
}

func (s holidayView) Get(ctx context.Context, id uuid.UUID) (*model.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holidays[id]
	if !ok {
		return nil, apperrors.NotFound("holiday", nil)
	}
	cp := *h
	return &cp, nil
}

func (s holidayView) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holidays[id]; !ok {
		return apperrors.NotFound("holiday", nil)
	}
	delete(s.holidays, id)
	return nil
}

func (s holidayView) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := from.Format(time.DateOnly), to.Format(time.DateOnly)
	out := []*model.Holiday{}
	for _, h := range s.holidays {
		if d := h.Date.Format(time.DateOnly); d >= lo && d < hi {
			cp := *h
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.Holiday) int {
		return a.Date.Compare(b.Date)
	})
	return out, nil
}
