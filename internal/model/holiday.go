package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Holiday struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MarshalJSON renders the date as DD.MM.YYYY.
func (h Holiday) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID   uuid.UUID `json:"id"`
		Date string    `json:"date"`
		Name string    `json:"name"`
	}{
		ID:   h.ID,
		Date: h.Date.Format(DateLayout),
		Name: h.Name,
	})
}

type CreateHolidayRequest struct {
	Date string `json:"date" binding:"required"`
	Name string `json:"name" binding:"required,max=200"`
}
