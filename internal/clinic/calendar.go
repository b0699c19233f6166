// Package clinic holds clinic-wide calendar helpers: the practice time zone,
// "today" as the clinic sees it, and parsing of the date/time labels used by
// appointments.
package clinic

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Lambda and scratch images ship without zoneinfo.
)

// DefaultTimezone is the practice's IANA zone (SAST, no DST).
const DefaultTimezone = "Africa/Johannesburg"

// ErrInvalidDate is returned for anything that is not a YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("clinic: invalid date, expected YYYY-MM-DD")

// ErrInvalidTime is returned for anything that is not an HH:MM label.
var ErrInvalidTime = errors.New("clinic: invalid time, expected HH:MM")

// Location returns the *time.Location for a clinic timezone string.
// Falls back to UTC if the timezone is invalid or empty.
func Location(timezone string) *time.Location {
	if strings.TrimSpace(timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Calendar answers "what day is it at the clinic" questions.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar builds a calendar for the given zone using the wall clock.
func NewCalendar(timezone string) *Calendar {
	return NewCalendarWithClock(Location(timezone), time.Now)
}

// NewCalendarWithClock allows tests to pin the current instant.
func NewCalendarWithClock(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// Location returns the clinic zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current instant expressed in the clinic zone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the clinic-local calendar date as YYYY-MM-DD.
func (c *Calendar) Today() string {
	return c.Now().Format(time.DateOnly)
}

// ParseDate parses a YYYY-MM-DD label into midnight UTC of that date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// FormatDate renders a date column value back to its YYYY-MM-DD label.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// MonthBounds returns the first and last calendar day of a month.
// Month uses Go's convention (January == 1); Go normalises day 0 of the
// following month to the last day of this one.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return first, last
}

// SlotStart combines a date label and an HH:MM label into an instant in loc.
func SlotStart(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	var hour, minute int
	if _, err := fmt.Sscanf(strings.TrimSpace(clock), "%02d:%02d", &hour, &minute); err != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, ErrInvalidTime
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), nil
}
