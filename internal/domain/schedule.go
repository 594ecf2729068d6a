package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// MinutesPerDay is the length of a scheduling day.
const MinutesPerDay = 24 * 60

// DateLayout is the wire layout of a scheduled date.
const DateLayout = "2006-01-02"

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrInvalidTimeOfDay
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return TimeOfDay(h*60 + mm), nil
}

// String renders the time as HH:MM. The end of day renders as 24:00.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// AddMinutes returns the time shifted forward by the given number of minutes.
func (t TimeOfDay) AddMinutes(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// DurationMinutes converts a duration in hours to whole minutes, rounding to the nearest minute.
func DurationMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}

// Date is a calendar day with no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// Slot is a half-open interval [Start, End) within a single day.
type Slot struct {
	Start TimeOfDay
	End   TimeOfDay
}

// NewSlot builds the slot that starts at start and lasts durationHours. Fractional hours are
// allowed; the slot ends on the nearest whole minute.
func NewSlot(start TimeOfDay, durationHours float64) (Slot, error) {
	if math.IsNaN(durationHours) || durationHours <= 0 {
		return Slot{}, ErrInvalidDuration
	}
	if durationHours > 24 {
		return Slot{}, ErrCrossesMidnight
	}
	minutes := DurationMinutes(durationHours)
	if minutes < 1 {
		return Slot{}, ErrInvalidDuration
	}
	end := start.AddMinutes(minutes)
	if end > MinutesPerDay {
		return Slot{}, ErrCrossesMidnight
	}
	return Slot{Start: start, End: end}, nil
}

// Overlaps reports whether two slots share any minute. Touching slots do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start < other.End && s.End > other.Start
}

// FirstOverlap returns the first active booking whose slot intersects candidate, or nil.
func FirstOverlap(candidate Slot, bookings []*Booking) *Booking {
	for _, b := range bookings {
		if !b.Status.IsActive() {
			continue
		}
		if candidate.Overlaps(b.Slot()) {
			return b
		}
	}
	return nil
}
