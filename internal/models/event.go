package models

import "time"

// RecurrenceType enumerates the supported repeat patterns.
type RecurrenceType string

const (
	RecurrenceOnce     RecurrenceType = "ONCE"
	RecurrenceWeekly   RecurrenceType = "WEEKLY"
	RecurrenceBiweekly RecurrenceType = "BIWEEKLY"
	RecurrenceMonthly  RecurrenceType = "MONTHLY"
)

// RecurrenceRule describes when a series repeats. AnchorWeekday is set for
// Once/Weekly/Biweekly and nil for Monthly, which anchors on StartDate's
// day-of-month instead.
type RecurrenceRule struct {
	Type          RecurrenceType `json:"type"`
	AnchorWeekday *int           `json:"anchor_weekday,omitempty"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
}

// RecurringEvent is an external calendar entry (co-op class, practice, etc.).
// StartTime/EndTime are opaque local HH:MM strings; a nil StartTime means the
// event is all-day.
type RecurringEvent struct {
	ID            string         `db:"id" json:"id"`
	LearnerID     *string        `db:"learner_id" json:"learner_id,omitempty"`
	Title         string         `db:"title" json:"title"`
	Location      *string        `db:"location" json:"location,omitempty"`
	Recurrence    RecurrenceType `db:"recurrence" json:"recurrence"`
	AnchorWeekday *int           `db:"anchor_weekday" json:"anchor_weekday,omitempty"`
	StartDate     time.Time      `db:"start_date" json:"start_date"`
	EndDate       *time.Time     `db:"end_date" json:"end_date,omitempty"`
	StartTime     *string        `db:"start_time" json:"start_time,omitempty"`
	EndTime       *string        `db:"end_time" json:"end_time,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Rule projects the event's stored columns into a RecurrenceRule.
func (e *RecurringEvent) Rule() RecurrenceRule {
	return RecurrenceRule{
		Type:          e.Recurrence,
		AnchorWeekday: e.AnchorWeekday,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
	}
}

// EventException marks one date on which a series does not occur.
type EventException struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	Date      time.Time `db:"date" json:"date"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Occurrence is a materialized instance of a recurring event. Never persisted;
// always recomputed from rule + exceptions + query window.
type Occurrence struct {
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	StartTime *string   `json:"start_time,omitempty"`
	EndTime   *string   `json:"end_time,omitempty"`
	AllDay    bool      `json:"all_day"`
}
