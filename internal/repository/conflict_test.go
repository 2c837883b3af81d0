package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func span(fromMin, toMin int) model.TimeSlot {
	return model.TimeSlot{
		Start: base.Add(time.Duration(fromMin) * time.Minute),
		End:   base.Add(time.Duration(toMin) * time.Minute),
	}
}

func stored(fromMin, toMin int) *model.Slot {
	s := span(fromMin, toMin)
	return &model.Slot{ID: uuid.New(), StartTime: s.Start, EndTime: s.End}
}

func TestFindConflict(t *testing.T) {
	tests := []struct {
		name       string
		candidates []model.TimeSlot
		existing   []*model.Slot
		wantHit    bool
		wantStart  int
	}{
		{
			name:       "no existing",
			candidates: []model.TimeSlot{span(0, 30), span(30, 60)},
		},
		{
			name:       "touching is fine",
			candidates: []model.TimeSlot{span(0, 30), span(30, 60)},
			existing:   []*model.Slot{stored(60, 90), stored(-30, 0)},
		},
		{
			name:       "partial overlap",
			candidates: []model.TimeSlot{span(0, 30), span(30, 60)},
			existing:   []*model.Slot{stored(45, 75)},
			wantHit:    true,
			wantStart:  30,
		},
		{
			name:       "existing inside candidate",
			candidates: []model.TimeSlot{span(0, 60)},
			existing:   []*model.Slot{stored(10, 20)},
			wantHit:    true,
			wantStart:  0,
		},
		{
			name:       "different grid",
			candidates: []model.TimeSlot{span(0, 20), span(20, 40), span(40, 60)},
			existing:   []*model.Slot{stored(-60, -30), stored(50, 80)},
			wantHit:    true,
			wantStart:  40,
		},
		{
			name:       "gap between existing",
			candidates: []model.TimeSlot{span(30, 60)},
			existing:   []*model.Slot{stored(0, 30), stored(60, 90)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, slot, ok := FindConflict(tt.candidates, tt.existing)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, base.Add(time.Duration(tt.wantStart)*time.Minute), c.Start)
				assert.True(t, c.Overlaps(slot.Interval()))
			}
		})
	}
}

func TestFindBatchOverlap(t *testing.T) {
	_, _, ok := FindBatchOverlap(SortSlots([]model.TimeSlot{span(30, 60), span(0, 30)}))
	assert.False(t, ok)

	c, other, ok := FindBatchOverlap(SortSlots([]model.TimeSlot{span(20, 50), span(0, 30)}))
	assert.True(t, ok)
	assert.Equal(t, span(20, 50), c)
	assert.Equal(t, span(0, 30), other)
}

func TestSortSlots_DoesNotMutate(t *testing.T) {
	in := []model.TimeSlot{span(30, 60), span(0, 30)}
	out := SortSlots(in)
	assert.Equal(t, span(30, 60), in[0])
	assert.Equal(t, span(0, 30), out[0])
}

func TestConflictError(t *testing.T) {
	id := uuid.New()
	err := ConflictError(span(0, 30), span(15, 45), &id)
	assert.Equal(t, apperrors.ErrSlotConflict, err.Code)
	assert.Equal(t, id.String(), err.Details["existing_slot_id"])
	assert.Equal(t, "2024-05-01T09:00:00Z", err.Details["candidate_start"])
	assert.Equal(t, "existing", err.Details["source"])

	err = ConflictError(span(0, 30), span(15, 45), nil)
	assert.NotContains(t, err.Details, "existing_slot_id")
}

func TestBatchOverlapError(t *testing.T) {
	later, earlier, ok := FindBatchOverlap(SortSlots([]model.TimeSlot{span(20, 50), span(0, 30)}))
	require.True(t, ok)

	err := BatchOverlapError(earlier, later)
	assert.Equal(t, apperrors.ErrSlotConflict, err.Code)
	assert.Equal(t, "batch", err.Details["source"])
	assert.Equal(t, "2024-05-01T09:00:00Z", err.Details["first_start"])
	assert.Equal(t, "2024-05-01T09:20:00Z", err.Details["second_start"])
	assert.NotContains(t, err.Details, "existing_start")
	assert.NotContains(t, err.Details, "existing_slot_id")
}
