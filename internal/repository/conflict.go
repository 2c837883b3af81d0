package repository

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// SortSlots returns a copy of slots ordered by start.
func SortSlots(slots []model.TimeSlot) []model.TimeSlot {
	sorted := slices.Clone(slots)
	slices.SortFunc(sorted, func(a, b model.TimeSlot) int {
		return a.Start.Compare(b.Start)
	})
	return sorted
}

// FindBatchOverlap returns the first pair of overlapping slots in a batch
// sorted by start.
func FindBatchOverlap(sorted []model.TimeSlot) (model.TimeSlot, model.TimeSlot, bool) {
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return sorted[i], sorted[i-1], true
		}
	}
	return model.TimeSlot{}, model.TimeSlot{}, false
}

// FindConflict returns the first candidate overlapping an existing slot.
// Both inputs must be ordered by start; existing slots never overlap each other.
func FindConflict(candidates []model.TimeSlot, existing []*model.Slot) (model.TimeSlot, *model.Slot, bool) {
	j := 0
	for _, c := range candidates {
		for j < len(existing) && !existing[j].EndTime.After(c.Start) {
			j++
		}
		if j == len(existing) {
			break
		}
		if existing[j].StartTime.Before(c.End) {
			return c, existing[j], true
		}
	}
	return model.TimeSlot{}, nil, false
}

// ConflictError describes a candidate that overlaps a stored slot.
func ConflictError(candidate, existing model.TimeSlot, existingID *uuid.UUID) *apperrors.AppError {
	err := apperrors.SlotConflict("generated slots overlap existing slots").
		WithDetail("source", "existing").
		WithDetail("candidate_start", candidate.Start.Format(time.RFC3339)).
		WithDetail("candidate_end", candidate.End.Format(time.RFC3339)).
		WithDetail("existing_start", existing.Start.Format(time.RFC3339)).
		WithDetail("existing_end", existing.End.Format(time.RFC3339))
	if existingID != nil {
		err.WithDetail("existing_slot_id", existingID.String())
	}
	return err
}

// BatchOverlapError describes two slots of the same batch that overlap.
// first starts no later than second.
func BatchOverlapError(first, second model.TimeSlot) *apperrors.AppError {
	return apperrors.SlotConflict("generated slots overlap each other").
		WithDetail("source", "batch").
		WithDetail("first_start", first.Start.Format(time.RFC3339)).
		WithDetail("first_end", first.End.Format(time.RFC3339)).
		WithDetail("second_start", second.Start.Format(time.RFC3339)).
		WithDetail("second_end", second.End.Format(time.RFC3339))
}
