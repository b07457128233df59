package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// timePattern matches wall-clock times in 24h HH:MM form.
var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ValidClockTime reports whether s is a well-formed HH:MM time.
func ValidClockTime(s string) bool {
	return timePattern.MatchString(s)
}

// MinutesOfDay converts an HH:MM time to minutes since midnight.
func MinutesOfDay(s string) (int, error) {
	if !timePattern.MatchString(s) {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return h*60 + m, nil
}

// HourToClock formats a whole hour as an HH:00 time string.
func HourToClock(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// Intervals overlap when neither ends before the other starts; boundaries
// touching (end == start) do not overlap.
func ClockRangesOverlap(startA, endA, startB, endB string) bool {
	sa, err1 := MinutesOfDay(startA)
	ea, err2 := MinutesOfDay(endA)
	sb, err3 := MinutesOfDay(startB)
	eb, err4 := MinutesOfDay(endB)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return !(ea <= sb || eb <= sa)
}

const dateLayout = "2006-01-02"

// Date is a calendar date without a time-of-day component. It marshals as
// ISO-8601 (YYYY-MM-DD) and accepts full RFC 3339 timestamps on input.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month, day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses YYYY-MM-DD, or an RFC 3339 timestamp as a fallback.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) String() string        { return d.t.Format(dateLayout) }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) Before(o Date) bool    { return d.t.Before(o.t) }
func (d Date) Equal(o Date) bool     { return d.t.Equal(o.t) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(d.t.AddDate(0, 0, n))
}

// DaysSince returns the whole number of days from o to d.
func (d Date) DaysSince(o Date) int {
	return int(d.t.Sub(o.t).Hours() / 24)
}

// ISOWeek returns the ISO-8601 year and week number used to bucket
// weekly-hours constraints.
func (d Date) ISOWeek() (year, week int) {
	return d.t.ISOWeek()
}

// WeekKey is a single comparable key for the ISO week of the date.
func (d Date) WeekKey() int {
	y, w := d.t.ISOWeek()
	return y*100 + w
}

// DayOfWeekSundayZero maps the weekday to the availability-slot convention
// where 0=Sunday and 6=Saturday.
func (d Date) DayOfWeekSundayZero() int {
	return int(d.t.Weekday())
}

// Time exposes the underlying midnight-UTC timestamp.
func (d Date) Time() time.Time { return d.t }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.t.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
