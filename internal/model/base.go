package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "02.01.2006"

// ClockLayout is the wire format for times of day.
const ClockLayout = "15:04"

// EpochMillis converts t to Unix milliseconds.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
