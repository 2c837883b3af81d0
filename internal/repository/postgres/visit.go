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

const visitSlotConstraint = "visits_slot_id_key"

type visitRepository struct {
	BaseRepository
	lockTimeout time.Duration
}

func NewVisitRepository(base BaseRepository, lockTimeout time.Duration) repository.VisitRepository {
	return &visitRepository{BaseRepository: base, lockTimeout: lockTimeout}
}

func (r *visitRepository) Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	var result *model.BookingResult

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if r.lockTimeout > 0 {
			timeout := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
			if _, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}

		var slot model.Slot
		query := `SELECT ` + slotColumns + ` FROM schedule_slots WHERE id = $1 FOR UPDATE`
		err := tx.GetContext(ctx, &slot, query, req.SlotID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("slot", err)
		}
		if err != nil {
			return fmt.Errorf("failed to lock slot: %w", err)
		}
		if slot.DoctorID != req.DoctorID {
			return apperrors.InvalidParameter("slot does not belong to the doctor", nil)
		}
		if slot.IsBusy {
			return apperrors.SlotAlreadyBooked(nil)
		}

		var patient *model.Patient
		if req.PatientID != nil {
			patient, err = getPatient(ctx, tx, *req.PatientID)
		} else {
			patient, err = createPatient(ctx, tx, req.Patient)
		}
		if err != nil {
			return err
		}

		visit := &model.Visit{
			ID:              uuid.New(),
			CreatorID:       req.CreatorID,
			PatientID:       patient.ID,
			DoctorID:        slot.DoctorID,
			SlotID:          slot.ID,
			FinancingSource: req.FinancingSource,
			Comment:         req.Comment,
			CreatedAt:       time.Now().UTC(),
		}
		insert := `
			INSERT INTO visits (id, creator_id, patient_id, doctor_id, slot_id, financing_source, comment, created_at)
			VALUES (:id, :creator_id, :patient_id, :doctor_id, :slot_id, :financing_source, :comment, :created_at)
		`
		if _, err := tx.NamedExecContext(ctx, insert, visit); err != nil {
			return fmt.Errorf("failed to create visit: %w", err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE schedule_slots SET is_busy = TRUE WHERE id = $1 AND is_busy = FALSE`, slot.ID)
		if err != nil {
			return fmt.Errorf("failed to claim slot: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.SlotAlreadyBooked(nil)
		}
		slot.IsBusy = true

		event, err := model.NewOutboxEvent(model.EventVisitBooked, model.VisitBookedEvent{
			VisitID:   visit.ID,
			SlotID:    slot.ID,
			DoctorID:  slot.DoctorID,
			PatientID: patient.ID,
			CreatorID: req.CreatorID,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
		})
		if err != nil {
			return fmt.Errorf("failed to build outbox event: %w", err)
		}
		if err := insertOutboxEvent(ctx, tx, event); err != nil {
			return err
		}

		result = &model.BookingResult{Visit: visit, Patient: patient, Slot: &slot}
		return nil
	})
	if isUniqueViolation(err, visitSlotConstraint) {
		return nil, apperrors.SlotAlreadyBooked(err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

const visitDetailQuery = `
	SELECT v.id, v.creator_id, v.patient_id, v.doctor_id, v.slot_id,
	       v.financing_source, v.comment, v.created_at,
	       s.start_time, s.end_time,
	       p.last_name AS patient_last_name,
	       p.first_name AS patient_first_name,
	       p.middle_name AS patient_middle_name,
	       u.last_name AS doctor_last_name,
	       u.first_name AS doctor_first_name,
	       u.middle_name AS doctor_middle_name,
	       COALESCE(d.color, '') AS doctor_color
	FROM visits v
	JOIN schedule_slots s ON s.id = v.slot_id
	JOIN patients p ON p.id = v.patient_id
	JOIN doctors d ON d.id = v.doctor_id
	JOIN users u ON u.id = d.user_id
`

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.VisitDetail, error) {
	var visit model.VisitDetail
	err := r.db.GetContext(ctx, &visit, visitDetailQuery+` WHERE v.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("visit", err)
	}
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get visit: %w", err))
	}
	return &visit, nil
}

func (r *visitRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.VisitDetail, error) {
	query := visitDetailQuery + `
		WHERE s.start_time >= $1 AND s.start_time < $2
		ORDER BY s.start_time ASC
	`
	visits := []*model.VisitDetail{}
	if err := r.db.SelectContext(ctx, &visits, query, from, to); err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to list visits: %w", err))
	}
	return visits, nil
}
