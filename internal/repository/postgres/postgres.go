package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

// NewRepositories builds the PostgreSQL implementations over one pool.
func NewRepositories(db *sqlx.DB, lockTimeout time.Duration) *repository.Repositories {
	base := NewBaseRepository(db)
	return &repository.Repositories{
		Slots:    NewSlotRepository(base),
		Visits:   NewVisitRepository(base, lockTimeout),
		Holidays: NewHolidayRepository(base),
		Doctors:  NewDoctorRepository(base),
		Users:    NewUserRepository(base),
		RBAC:     NewRBACRepository(base),
		Outbox:   NewOutboxRepository(base),
	}
}
