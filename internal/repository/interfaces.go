package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// SlotRepository is the availability store.
	SlotRepository interface {
		// BulkInsert stores all slots or none. Any overlap with the doctor's
		// existing slots, or within the batch, fails with SLOT_CONFLICT.
		BulkInsert(ctx context.Context, doctorID, creatorID uuid.UUID, slots []model.TimeSlot) (int, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
		// ListAvailable returns free slots starting in [from, to), earliest first.
		ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Slot, error)
		GetDoctorSpan(ctx context.Context, doctorID uuid.UUID) (*model.ScheduleSpan, error)
		ListDoctorSpans(ctx context.Context) ([]*model.ScheduleSpan, error)
	}

	VisitRepository interface {
		// Book claims the slot and creates the patient and visit in one unit.
		Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error)
		Get(ctx context.Context, id uuid.UUID) (*model.VisitDetail, error)
		ListBetween(ctx context.Context, from, to time.Time) ([]*model.VisitDetail, error)
	}

	HolidayRepository interface {
		Create(ctx context.Context, holiday *model.Holiday) error
		Get(ctx context.Context, id uuid.UUID) (*model.Holiday, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListBetween(ctx context.Context, from, to time.Time) ([]*model.Holiday, error)
	}

	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetContact(ctx context.Context, id uuid.UUID) (*model.DoctorContact, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	}

	RBACRepository interface {
		GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ProcessBatch locks up to limit due events and hands each to fn.
		// Events fn accepts are marked processed; failures are rescheduled
		// until maxRetries, then marked failed.
		ProcessBatch(ctx context.Context, limit, maxRetries int, fn func(context.Context, *model.OutboxEvent) error) (int, error)
		CountPending(ctx context.Context) (int, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories bundles one implementation of every store.
type Repositories struct {
	Slots    SlotRepository
	Visits   VisitRepository
	Holidays HolidayRepository
	Doctors  DoctorRepository
	Users    UserRepository
	RBAC     RBACRepository
	Outbox   OutboxRepository
}
