package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Rows per INSERT statement, well under the 65535 bind parameter limit.
const slotInsertBatch = 1000

const slotColumns = `id, doctor_id, creator_id, start_time, end_time, is_busy, created_at`

type slotRepository struct {
	BaseRepository
}

func NewSlotRepository(base BaseRepository) repository.SlotRepository {
	return &slotRepository{base}
}

func (r *slotRepository) BulkInsert(ctx context.Context, doctorID, creatorID uuid.UUID, slots []model.TimeSlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	candidates := repository.SortSlots(slots)
	if later, earlier, ok := repository.FindBatchOverlap(candidates); ok {
		return 0, repository.BatchOverlapError(earlier, later)
	}

	now := time.Now().UTC()
	rows := make([]model.Slot, len(candidates))
	for i, c := range candidates {
		rows[i] = model.Slot{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			CreatorID: creatorID,
			StartTime: c.Start,
			EndTime:   c.End,
			CreatedAt: now,
		}
	}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Concurrent generations for one doctor queue up on the doctor row.
		var locked uuid.UUID
		err := tx.GetContext(ctx, &locked, `SELECT id FROM doctors WHERE id = $1 FOR NO KEY UPDATE`, doctorID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("doctor", err)
		}
		if err != nil {
			return fmt.Errorf("failed to lock doctor: %w", err)
		}

		var existing []*model.Slot
		query := `
			SELECT ` + slotColumns + `
			FROM schedule_slots
			WHERE doctor_id = $1 AND start_time < $3 AND end_time > $2
			ORDER BY start_time ASC
		`
		first, last := candidates[0], candidates[len(candidates)-1]
		if err := tx.SelectContext(ctx, &existing, query, doctorID, first.Start, last.End); err != nil {
			return fmt.Errorf("failed to load existing slots: %w", err)
		}
		if c, slot, ok := repository.FindConflict(candidates, existing); ok {
			return repository.ConflictError(c, slot.Interval(), &slot.ID)
		}

		insert := `
			INSERT INTO schedule_slots (` + slotColumns + `)
			VALUES (:id, :doctor_id, :creator_id, :start_time, :end_time, :is_busy, :created_at)
		`
		for i := 0; i < len(rows); i += slotInsertBatch {
			end := min(i+slotInsertBatch, len(rows))
			if _, err := tx.NamedExecContext(ctx, insert, rows[i:end]); err != nil {
				return fmt.Errorf("failed to insert slots: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM schedule_slots WHERE id = $1`

	var slot model.Slot
	err := r.db.GetContext(ctx, &slot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("slot", err)
	}
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get slot: %w", err))
	}
	return &slot, nil
}

func (r *slotRepository) ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM schedule_slots
		WHERE doctor_id = $1
		  AND start_time >= $2 AND start_time < $3
		  AND is_busy = FALSE
		ORDER BY start_time ASC
	`
	slots := []*model.Slot{}
	if err := r.db.SelectContext(ctx, &slots, query, doctorID, from, to); err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to list available slots: %w", err))
	}
	return slots, nil
}

const spanQuery = `
	SELECT s.doctor_id,
	       CONCAT_WS(' ', NULLIF(u.last_name, ''), NULLIF(u.first_name, ''), NULLIF(u.middle_name, '')) AS doctor_name,
	       MIN(s.start_time) AS first_start,
	       MAX(s.end_time) AS last_end,
	       COUNT(*) AS total,
	       COUNT(*) FILTER (WHERE s.is_busy) AS busy
	FROM schedule_slots s
	JOIN doctors d ON d.id = s.doctor_id
	JOIN users u ON u.id = d.user_id
`

func (r *slotRepository) GetDoctorSpan(ctx context.Context, doctorID uuid.UUID) (*model.ScheduleSpan, error) {
	query := spanQuery + `
		WHERE s.doctor_id = $1
		GROUP BY s.doctor_id, u.last_name, u.first_name, u.middle_name
	`
	var span model.ScheduleSpan
	err := r.db.GetContext(ctx, &span, query, doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("schedule", err)
	}
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get schedule span: %w", err))
	}
	return &span, nil
}

func (r *slotRepository) ListDoctorSpans(ctx context.Context) ([]*model.ScheduleSpan, error) {
	query := spanQuery + `
		GROUP BY s.doctor_id, u.last_name, u.first_name, u.middle_name
		ORDER BY doctor_name ASC
	`
	spans := []*model.ScheduleSpan{}
	if err := r.db.SelectContext(ctx, &spans, query); err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to list schedule spans: %w", err))
	}
	return spans, nil
}
