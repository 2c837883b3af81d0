package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDoctorColor is used when a doctor has no calendar color.
const DefaultDoctorColor = "orange"

// Doctor is referenced by slots and visits; it is owned by staff management.
type Doctor struct {
	ID               uuid.UUID `db:"id" json:"id"`
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	SpecializationID uuid.UUID `db:"specialization_id" json:"specialization_id"`
	Color            string    `db:"color" json:"color"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// DoctorContact is a doctor joined with its user for notifications.
type DoctorContact struct {
	DoctorID   uuid.UUID `db:"doctor_id"`
	Email      string    `db:"email"`
	LastName   string    `db:"last_name"`
	FirstName  string    `db:"first_name"`
	MiddleName string    `db:"middle_name"`
}

func (d *DoctorContact) ShortName() string {
	return shortName(d.LastName, d.FirstName, d.MiddleName)
}
