// Package dateutil provides calendar-date arithmetic used across the planner.
// All helpers operate at day granularity in UTC; callers hand in dates that have
// already been normalized with Midnight to avoid DST drift.
package dateutil

import (
	"fmt"
	"time"
)

// DateKeyLayout is the wire format for calendar dates.
const DateKeyLayout = "2006-01-02"

// Midnight strips the time-of-day component, pinning the date to UTC midnight.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays steps n calendar days forward (or backward for negative n).
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AddMonths steps n calendar months forward, letting the standard library
// normalize overflow (Jan 31 + 1 month = Mar 3).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// FormatDateKey renders a date as YYYY-MM-DD.
func FormatDateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key into a UTC midnight date.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
