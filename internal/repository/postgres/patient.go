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
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Patients are only written inside the booking transaction.

func createPatient(ctx context.Context, tx *sqlx.Tx, info model.PatientInfo) (*model.Patient, error) {
	query := `
		INSERT INTO patients (id, last_name, first_name, middle_name, mobile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now().UTC()
	patient := &model.Patient{
		Base:       model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		LastName:   info.LastName,
		FirstName:  info.FirstName,
		MiddleName: info.MiddleName,
		Mobile:     info.Mobile,
	}

	_, err := tx.ExecContext(ctx, query,
		patient.ID,
		patient.LastName,
		patient.FirstName,
		patient.MiddleName,
		patient.Mobile,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return patient, nil
}

func getPatient(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, last_name, first_name, middle_name, mobile, created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := tx.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}
