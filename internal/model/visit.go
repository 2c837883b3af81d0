package model

import (
	"time"

	"github.com/google/uuid"
)

// FinancingSource tags how a visit is paid for.
type FinancingSource string

const (
	FinancingInsurance FinancingSource = "insurance"
	FinancingPrivate   FinancingSource = "private"
	FinancingPaid      FinancingSource = "paid"
)

func (f FinancingSource) Valid() bool {
	switch f {
	case FinancingInsurance, FinancingPrivate, FinancingPaid:
		return true
	}
	return false
}

// Visit ties a patient to exactly one booked slot.
type Visit struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	CreatorID       uuid.UUID       `db:"creator_id" json:"creator_id"`
	PatientID       uuid.UUID       `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	SlotID          uuid.UUID       `db:"slot_id" json:"slot_id"`
	FinancingSource FinancingSource `db:"financing_source" json:"financing_source"`
	Comment         *string         `db:"comment" json:"comment,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// BookingRequest is the input of the booking coordinator.
type BookingRequest struct {
	SlotID          uuid.UUID
	DoctorID        uuid.UUID
	PatientID       *uuid.UUID
	Patient         PatientInfo
	FinancingSource FinancingSource
	Comment         *string
	CreatorID       uuid.UUID
}

// BookingResult is what a successful claim produced.
type BookingResult struct {
	Visit   *Visit
	Patient *Patient
	Slot    *Slot
}

// CreateVisitRequest is the body of a visit creation call.
type CreateVisitRequest struct {
	SlotID          uuid.UUID       `json:"slot_id" binding:"required"`
	DoctorID        uuid.UUID       `json:"doctor_id" binding:"required"`
	PatientID       *uuid.UUID      `json:"patient_id"`
	LastName        string          `json:"last_name" binding:"required_without=PatientID,max=100"`
	FirstName       string          `json:"first_name" binding:"required_without=PatientID,max=100"`
	MiddleName      string          `json:"middle_name" binding:"max=100"`
	Mobile          string          `json:"mobile" binding:"required_without=PatientID,omitempty,mobile"`
	FinancingSource FinancingSource `json:"financing_source" binding:"required,oneof=insurance private paid"`
	Comment         *string         `json:"comment" binding:"omitempty,max=1000"`
}

type CreateVisitResponse struct {
	VisitID uuid.UUID `json:"visit_id"`
}

// VisitDetail is a visit joined with the names and bounds needed for display.
type VisitDetail struct {
	Visit
	StartTime         time.Time `db:"start_time" json:"start_time"`
	EndTime           time.Time `db:"end_time" json:"end_time"`
	PatientLastName   string    `db:"patient_last_name" json:"-"`
	PatientFirstName  string    `db:"patient_first_name" json:"-"`
	PatientMiddleName string    `db:"patient_middle_name" json:"-"`
	DoctorLastName    string    `db:"doctor_last_name" json:"-"`
	DoctorFirstName   string    `db:"doctor_first_name" json:"-"`
	DoctorMiddleName  string    `db:"doctor_middle_name" json:"-"`
	DoctorColor       string    `db:"doctor_color" json:"doctor_color"`
}

func (v *VisitDetail) PatientName() string {
	return fullName(v.PatientLastName, v.PatientFirstName, v.PatientMiddleName)
}

func (v *VisitDetail) DoctorShortName() string {
	return shortName(v.DoctorLastName, v.DoctorFirstName, v.DoctorMiddleName)
}

// CalendarEvent is a visit rendered for a calendar widget.
type CalendarEvent struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	BackgroundColor string    `json:"background_color"`
	BorderColor     string    `json:"border_color"`
}
