package entities

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar day without time-of-day, counted in days since 1970-01-01
// of the proleptic Gregorian calendar. Arithmetic on Day is exact calendar
// arithmetic: DST shifts and time zones never move a Day.
type Day int64

// DayOf returns the civil date of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, m, d)
}

// NewDay builds a Day from its calendar fields. Out of range fields are
// normalized the same way time.Date normalizes them.
func NewDay(year int, month time.Month, day int) Day {
	return Day(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// DaysBetween returns the number of calendar days from a to b. It is negative
// when b precedes a.
func DaysBetween(a, b Day) int64 {
	return int64(b) - int64(a)
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return d < other
}

// In returns midnight of d in loc.
func (d Day) In(loc *time.Location) time.Time {
	u := time.Unix(int64(d)*86400, 0).UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, loc)
}

func (d Day) String() string {
	return time.Unix(int64(d)*86400, 0).UTC().Format(dayLayout)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
