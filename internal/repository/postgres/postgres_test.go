package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var slotCols = []string{"id", "doctor_id", "creator_id", "start_time", "end_time", "is_busy", "created_at"}

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"lock timeout", &pq.Error{Code: "55P03"}, true},
		{"serialization", &pq.Error{Code: "40001"}, true},
		{"connection class", &pq.Error{Code: "08006"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapStoreError(tt.err)
			assert.Equal(t, tt.retryable, apperrors.IsRetryable(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	nf := apperrors.NotFound("slot", nil)
	assert.Same(t, nf, mapStoreError(nf))
	assert.NoError(t, mapStoreError(nil))
}

func TestSlotBulkInsert(t *testing.T) {
	doctorID, creatorID := uuid.New(), uuid.New()
	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	candidates := []model.TimeSlot{
		{Start: day.Add(30 * time.Minute), End: day.Add(time.Hour)},
		{Start: day, End: day.Add(30 * time.Minute)},
	}

	t.Run("inserts all", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSlotRepository(NewBaseRepository(db))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM doctors WHERE id = \$1 FOR NO KEY UPDATE`).
			WithArgs(doctorID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(doctorID.String()))
		mock.ExpectQuery(`FROM schedule_slots\s+WHERE doctor_id = \$1 AND start_time < \$3 AND end_time > \$2`).
			WithArgs(doctorID, day, day.Add(time.Hour)).
			WillReturnRows(sqlmock.NewRows(slotCols))
		mock.ExpectExec(`INSERT INTO schedule_slots`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		n, err := repo.BulkInsert(context.Background(), doctorID, creatorID, candidates)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSlotRepository(NewBaseRepository(db))

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR NO KEY UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(doctorID.String()))
		mock.ExpectQuery(`FROM schedule_slots`).
			WillReturnRows(sqlmock.NewRows(slotCols).AddRow(
				uuid.NewString(), doctorID.String(), creatorID.String(),
				day.Add(45*time.Minute), day.Add(75*time.Minute), false, day,
			))
		mock.ExpectRollback()

		_, err := repo.BulkInsert(context.Background(), doctorID, creatorID, candidates)
		assert.True(t, apperrors.Is(err, apperrors.ErrSlotConflict), "got %v", err)
		appErr, _ := apperrors.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, "existing", appErr.Details["source"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown doctor", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSlotRepository(NewBaseRepository(db))

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR NO KEY UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := repo.BulkInsert(context.Background(), doctorID, creatorID, candidates)
		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("overlapping batch never reaches the database", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSlotRepository(NewBaseRepository(db))

		_, err := repo.BulkInsert(context.Background(), doctorID, creatorID, []model.TimeSlot{
			{Start: day, End: day.Add(time.Hour)},
			{Start: day.Add(30 * time.Minute), End: day.Add(90 * time.Minute)},
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrSlotConflict))
		appErr, _ := apperrors.As(err)
		require.NotNil(t, appErr)
		assert.Equal(t, "batch", appErr.Details["source"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure is atomic", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewSlotRepository(NewBaseRepository(db))

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR NO KEY UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(doctorID.String()))
		mock.ExpectQuery(`FROM schedule_slots`).WillReturnRows(sqlmock.NewRows(slotCols))
		mock.ExpectExec(`INSERT INTO schedule_slots`).WillReturnError(&pq.Error{Code: "40P01"})
		mock.ExpectRollback()

		_, err := repo.BulkInsert(context.Background(), doctorID, creatorID, candidates)
		assert.True(t, apperrors.IsRetryable(err), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVisitBook(t *testing.T) {
	doctorID, slotID := uuid.New(), uuid.New()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	req := &model.BookingRequest{
		SlotID:          slotID,
		DoctorID:        doctorID,
		Patient:         model.PatientInfo{LastName: "Sidorova", FirstName: "Maria", Mobile: "+79001234567"},
		FinancingSource: model.FinancingPrivate,
		CreatorID:       uuid.New(),
	}
	slotRow := func(busy bool) *sqlmock.Rows {
		return sqlmock.NewRows(slotCols).AddRow(
			slotID.String(), doctorID.String(), uuid.NewString(),
			start, start.Add(30*time.Minute), busy, start,
		)
	}

	t.Run("claims free slot", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVisitRepository(NewBaseRepository(db), 2*time.Second)

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT set_config\('lock_timeout'`).WithArgs("2000ms").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM schedule_slots WHERE id = \$1 FOR UPDATE`).WithArgs(slotID).WillReturnRows(slotRow(false))
		mock.ExpectExec(`INSERT INTO patients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO visits`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE schedule_slots SET is_busy = TRUE WHERE id = \$1 AND is_busy = FALSE`).
			WithArgs(slotID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO outbox_events`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := repo.Book(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, slotID, res.Visit.SlotID)
		assert.Equal(t, res.Patient.ID, res.Visit.PatientID)
		assert.True(t, res.Slot.IsBusy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("busy slot", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVisitRepository(NewBaseRepository(db), 0)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(slotRow(true))
		mock.ExpectRollback()

		_, err := repo.Book(context.Background(), req)
		assert.True(t, apperrors.Is(err, apperrors.ErrSlotAlreadyBooked), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost compare and set", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVisitRepository(NewBaseRepository(db), 0)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(slotRow(false))
		mock.ExpectExec(`INSERT INTO patients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO visits`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE schedule_slots`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.Book(context.Background(), req)
		assert.True(t, apperrors.Is(err, apperrors.ErrSlotAlreadyBooked), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique visit per slot", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVisitRepository(NewBaseRepository(db), 0)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(slotRow(false))
		mock.ExpectExec(`INSERT INTO patients`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO visits`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: visitSlotConstraint})
		mock.ExpectRollback()

		_, err := repo.Book(context.Background(), req)
		assert.True(t, apperrors.Is(err, apperrors.ErrSlotAlreadyBooked), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock timeout is retryable", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVisitRepository(NewBaseRepository(db), time.Second)

		mock.ExpectBegin()
		mock.ExpectExec(`set_config`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FOR UPDATE`).WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
		mock.ExpectRollback()

		_, err := repo.Book(context.Background(), req)
		assert.True(t, apperrors.Is(err, apperrors.ErrStoreUnavailable), "got %v", err)
		assert.True(t, apperrors.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("slot of another doctor", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVisitRepository(NewBaseRepository(db), 0)
		other := *req
		other.DoctorID = uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(slotRow(false))
		mock.ExpectRollback()

		_, err := repo.Book(context.Background(), &other)
		assert.True(t, apperrors.IsInvalidParameter(err), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVisitRepository(NewBaseRepository(db), 0)
		mock.ExpectBegin().WillReturnError(&pq.Error{Code: "53300"})

		_, err := repo.Book(context.Background(), req)
		assert.True(t, apperrors.IsRetryable(err), "got %v", err)
	})
}

func TestSlotListAvailable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSlotRepository(NewBaseRepository(db))
	doctorID := uuid.New()
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`is_busy = FALSE\s+ORDER BY start_time ASC`).
		WithArgs(doctorID, from, from.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(uuid.NewString(), doctorID.String(), uuid.NewString(), from.Add(9*time.Hour), from.Add(9*time.Hour+30*time.Minute), false, from).
			AddRow(uuid.NewString(), doctorID.String(), uuid.NewString(), from.Add(10*time.Hour), from.Add(10*time.Hour+30*time.Minute), false, from))

	slots, err := repo.ListAvailable(context.Background(), doctorID, from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].StartTime.Before(slots[1].StartTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePasswordHash(t *testing.T) {
	userID := uuid.New()

	t.Run("updated", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepository(NewBaseRepository(db))
		mock.ExpectExec(`UPDATE users SET password_hash = \$2`).
			WithArgs(userID, "new-hash").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdatePasswordHash(context.Background(), userID, "new-hash"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewUserRepository(NewBaseRepository(db))
		mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdatePasswordHash(context.Background(), userID, "new-hash")
		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	})
}
