package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Clock is a time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses HH:MM.
func ParseClock(text string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(text))
	if err != nil {
		return Clock{}, apperrors.InvalidParameter(fmt.Sprintf("invalid time %q, expected HH:MM", text), err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Generator cuts a daily window into fixed-length slots.
type Generator struct {
	start    Clock
	end      Clock
	interval time.Duration
}

// NewGenerator validates the window and interval once for all days.
func NewGenerator(start, end Clock, intervalMinutes int) (*Generator, error) {
	if end.minutes() <= start.minutes() {
		return nil, apperrors.InvalidRange(fmt.Sprintf("end time %s must be after start time %s", end, start), nil)
	}
	if intervalMinutes <= 0 {
		return nil, apperrors.InvalidParameter("interval must be a positive number of minutes", nil)
	}
	return &Generator{
		start:    start,
		end:      end,
		interval: time.Duration(intervalMinutes) * time.Minute,
	}, nil
}

// Slots returns the contiguous slots for day. A trailing remainder shorter
// than the interval is dropped.
func (g *Generator) Slots(day time.Time) []model.TimeSlot {
	windowEnd := g.end.On(day)
	var slots []model.TimeSlot
	for cursor := g.start.On(day); !cursor.Add(g.interval).After(windowEnd); cursor = cursor.Add(g.interval) {
		slots = append(slots, model.TimeSlot{
			Start: cursor,
			End:   cursor.Add(g.interval),
		})
	}
	return slots
}

// Generate is the one-shot form of NewGenerator followed by Slots.
func Generate(day time.Time, start, end Clock, intervalMinutes int) ([]model.TimeSlot, error) {
	g, err := NewGenerator(start, end, intervalMinutes)
	if err != nil {
		return nil, err
	}
	return g.Slots(day), nil
}
