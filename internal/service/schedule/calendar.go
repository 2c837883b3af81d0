package schedule

import (
	"fmt"
	"iter"
	"strings"
	"time"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// WeekdaySet is a bit set of active weekdays.
type WeekdaySet uint8

// DefaultWorkdays is Monday through Friday.
const DefaultWorkdays = WeekdaySet(1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday)

var weekdayTags = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// IsWeekdayTag reports whether tag names a weekday.
func IsWeekdayTag(tag string) bool {
	_, ok := weekdayTags[strings.ToUpper(strings.TrimSpace(tag))]
	return ok
}

// ParseWeekdays converts two-letter tags into a set. No tags means DefaultWorkdays.
func ParseWeekdays(tags []string) (WeekdaySet, error) {
	if len(tags) == 0 {
		return DefaultWorkdays, nil
	}
	var set WeekdaySet
	for _, tag := range tags {
		day, ok := weekdayTags[strings.ToUpper(strings.TrimSpace(tag))]
		if !ok {
			return 0, apperrors.InvalidParameter(fmt.Sprintf("unknown weekday %q", tag), nil)
		}
		set = set.With(day)
	}
	return set, nil
}

func (s WeekdaySet) With(day time.Weekday) WeekdaySet {
	return s | 1<<day
}

func (s WeekdaySet) Has(day time.Weekday) bool {
	return s&(1<<day) != 0
}

// HolidaySet holds calendar dates regardless of time of day or zone.
type HolidaySet map[civilDate]struct{}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// NewHolidaySet builds a set from the given dates.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

func (h HolidaySet) Add(t time.Time) {
	h[dateOf(t)] = struct{}{}
}

func (h HolidaySet) Contains(t time.Time) bool {
	_, ok := h[dateOf(t)]
	return ok
}

// ParseDate parses DD.MM.YYYY as midnight in loc.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("02.01.2006", strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, apperrors.InvalidRange(fmt.Sprintf("invalid date %q, expected DD.MM.YYYY", text), err)
	}
	return d, nil
}

// ParseRange parses the half-open range [start, end). An empty end means the
// day after start.
func ParseRange(startText, endText string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseDate(startText, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if strings.TrimSpace(endText) == "" {
		return start, start.AddDate(0, 0, 1), nil
	}
	end, err := ParseDate(endText, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Expand yields the business dates in [start, end) in increasing order.
// Dates are normalized to midnight in start's location. Each range over the
// returned sequence walks the calendar again from start.
func Expand(start, end time.Time, workdays WeekdaySet, holidays HolidaySet) iter.Seq[time.Time] {
	first := midnight(start)
	last := midnight(end.In(start.Location()))
	return func(yield func(time.Time) bool) {
		for day := first; day.Before(last); day = day.AddDate(0, 0, 1) {
			if !workdays.Has(day.Weekday()) || holidays.Contains(day) {
				continue
			}
			if !yield(day) {
				return
			}
		}
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// YearsBetween lists the calendar years touched by [start, end).
func YearsBetween(start, end time.Time) []int {
	if !start.Before(end) {
		return nil
	}
	lastDay := end.Add(-time.Nanosecond)
	years := make([]int, 0, lastDay.Year()-start.Year()+1)
	for y := start.Year(); y <= lastDay.Year(); y++ {
		years = append(years, y)
	}
	return years
}
