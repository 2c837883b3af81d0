package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, user_id, specialization_id, COALESCE(color, '') AS color, created_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("doctor", err)
	}
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get doctor: %w", err))
	}
	return &doctor, nil
}

func (r *doctorRepository) GetContact(ctx context.Context, id uuid.UUID) (*model.DoctorContact, error) {
	query := `
		SELECT d.id AS doctor_id, u.email, u.last_name, u.first_name, u.middle_name
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.id = $1
	`
	var contact model.DoctorContact
	err := r.db.GetContext(ctx, &contact, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("doctor", err)
	}
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get doctor contact: %w", err))
	}
	return &contact, nil
}
