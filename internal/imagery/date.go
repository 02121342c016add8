// Package imagery describes the satellite imagery catalog served on the map:
// calendar dates, imagery sources and their WMTS tile templates.
package imagery

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical date form embedded in tile addresses.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string is not a real YYYY-MM-DD day.
var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar day normalized to UTC midnight.
// The zero value is not a valid date; use ParseDate, DateOf or Today.
type Date struct {
	t time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// MustParseDate is like ParseDate but panics on error. Intended for tests and
// static tables.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the UTC calendar day containing t.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// MinusDays returns the date n days earlier. Negative n moves forward.
func (d Date) MinusDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, -n)}
}

// DaysSince returns the number of days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// Time returns the UTC midnight instant of d.
func (d Date) Time() time.Time {
	return d.t
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
