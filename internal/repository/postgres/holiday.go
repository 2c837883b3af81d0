package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const holidayDateConstraint = "holidays_date_key"

type holidayRepository struct {
	BaseRepository
}

func NewHolidayRepository(base BaseRepository) repository.HolidayRepository {
	return &holidayRepository{base}
}

func (r *holidayRepository) Create(ctx context.Context, holiday *model.Holiday) error {
	query := `
		INSERT INTO holidays (id, date, name, created_at)
		VALUES ($1, $2, $3, $4)
	`
	holiday.ID = uuid.New()
	holiday.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		holiday.ID,
		holiday.Date.Format(time.DateOnly),
		holiday.Name,
		holiday.CreatedAt,
	)
	if isUniqueViolation(err, holidayDateConstraint) {
		return apperrors.InvalidParameter("a holiday already exists on this date", err)
	}
	if err != nil {
		return mapStoreError(fmt.Errorf("failed to create holiday: %w", err))
	}
	return nil
}

func (r *holidayRepository) Get(ctx context.Context, id uuid.UUID) (*model.Holiday, error) {
	query := `SELECT id, date, name, created_at FROM holidays WHERE id = $1`

	var holiday model.Holiday
	err := r.db.GetContext(ctx, &holiday, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("holiday", err)
	}
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to get holiday: %w", err))
	}
	return &holiday, nil
}

func (r *holidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return mapStoreError(fmt.Errorf("failed to delete holiday: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("holiday", nil)
	}
	return nil
}

// ListBetween returns holidays dated in [from, to), compared as calendar dates.
func (r *holidayRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.Holiday, error) {
	query := `
		SELECT id, date, name, created_at
		FROM holidays
		WHERE date >= $1 AND date < $2
		ORDER BY date ASC
	`
	holidays := []*model.Holiday{}
	err := r.db.SelectContext(ctx, &holidays, query, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, mapStoreError(fmt.Errorf("failed to list holidays: %w", err))
	}
	return holidays, nil
}
