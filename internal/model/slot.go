package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a fixed-length bookable interval owned by one doctor.
type Slot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	CreatorID uuid.UUID `db:"creator_id" json:"creator_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	IsBusy    bool      `db:"is_busy" json:"is_busy"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Interval returns the slot bounds.
func (s *Slot) Interval() TimeSlot {
	return TimeSlot{Start: s.StartTime, End: s.EndTime}
}

type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the half-open intervals intersect.
func (t TimeSlot) Overlaps(o TimeSlot) bool {
	return t.Start.Before(o.End) && o.Start.Before(t.End)
}

func (t TimeSlot) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// AvailableSlot is the wire shape of a free slot.
type AvailableSlot struct {
	SlotID           uuid.UUID `json:"slot_id"`
	StartEpochMillis int64     `json:"start_epoch_millis"`
	EndEpochMillis   int64     `json:"end_epoch_millis"`
}

func NewAvailableSlot(s *Slot) AvailableSlot {
	return AvailableSlot{
		SlotID:           s.ID,
		StartEpochMillis: EpochMillis(s.StartTime),
		EndEpochMillis:   EpochMillis(s.EndTime),
	}
}

// ScheduleSpan summarizes the generated schedule of one doctor.
type ScheduleSpan struct {
	DoctorID   uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DoctorName string    `db:"doctor_name" json:"doctor_name"`
	FirstStart time.Time `db:"first_start" json:"first_start"`
	LastEnd    time.Time `db:"last_end" json:"last_end"`
	Total      int       `db:"total" json:"total"`
	Busy       int       `db:"busy" json:"busy"`
}

// DateMode selects how a schedule request names its dates.
type DateMode string

const (
	DateModeSingle DateMode = "single"
	DateModeRange  DateMode = "range"
)

// CreateScheduleRequest is the body of a schedule generation call.
type CreateScheduleRequest struct {
	DateMode        DateMode  `json:"date_mode" binding:"required,oneof=single range"`
	Date            string    `json:"date" binding:"required_if=DateMode single"`
	Dates           []string  `json:"dates" binding:"required_if=DateMode range"`
	DoctorID        uuid.UUID `json:"doctor_id" binding:"required"`
	StartTime       string    `json:"start_time" binding:"required,hhmm"`
	EndTime         string    `json:"end_time" binding:"required,hhmm"`
	IntervalMinutes int       `json:"interval_minutes" binding:"required"`
	ActiveWeekdays  []string  `json:"active_weekdays" binding:"omitempty,dive,weekday"`
}

// ScheduleResult reports how many slots a generation call stored.
type ScheduleResult struct {
	Created int `json:"created"`
}
