package models

import (
	"time"

	"github.com/lib/pq"
)

// SchoolYear bounds one academic year. StartDate <= EndDate always holds; the
// weekday defaults and overrides may be edited after lessons reference the year.
type SchoolYear struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	StartDate time.Time     `db:"start_date" json:"start_date"`
	EndDate   time.Time     `db:"end_date" json:"end_date"`
	Weekdays  pq.Int64Array `db:"weekdays" json:"weekdays"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// OverrideKind distinguishes forced school days from forced closures.
type OverrideKind string

const (
	OverrideExclude OverrideKind = "EXCLUDE"
	OverrideInclude OverrideKind = "INCLUDE"
)

// DateOverride is a point-in-time exception to a year's weekday defaults.
// A later write for the same date replaces the earlier one.
type DateOverride struct {
	ID           string       `db:"id" json:"id"`
	SchoolYearID string       `db:"school_year_id" json:"school_year_id"`
	Date         time.Time    `db:"date" json:"date"`
	Kind         OverrideKind `db:"kind" json:"kind"`
	Reason       *string      `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// NormalizeWeekdays de-duplicates and drops out-of-range members (valid range
// 0-6, Sunday=0), preserving no particular order guarantee beyond ascending.
func NormalizeWeekdays(raw []int) []int {
	seen := [7]bool{}
	for _, d := range raw {
		if d >= 0 && d <= 6 {
			seen[d] = true
		}
	}
	out := make([]int, 0, 7)
	for d := 0; d < 7; d++ {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out
}

// WeekdaySet converts a stored weekday array into a membership set.
func WeekdaySet(raw pq.Int64Array) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(raw))
	for _, d := range raw {
		if d >= 0 && d <= 6 {
			set[time.Weekday(d)] = true
		}
	}
	return set
}
