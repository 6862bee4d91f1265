package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04"
	MinutesPerDay = 24 * 60
)

var (
	ErrInvalidClock = errors.New("invalid time format, expected HH:MM")
	ErrInvalidDate  = errors.New("invalid date format, expected YYYY-MM-DD")
)

// ParseClock parses a 24-hour "HH:MM" wall-clock time into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM" on a 24-hour clock.
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ClockOf returns the wall-clock minute of t in t's own location. Seconds are dropped.
func ClockOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ParseDate parses "YYYY-MM-DD" as midnight in loc (UTC when loc is nil).
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// FormatDate returns the calendar date of t in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to local midnight, keeping its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// At combines a calendar date and an "HH:MM" time in loc.
func At(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(m) * time.Minute), nil
}

// StringPtr returns a pointer to s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
