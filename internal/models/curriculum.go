package models

import (
	"time"

	"github.com/lib/pq"
)

// LessonStatus tracks lesson completion.
type LessonStatus string

const (
	LessonPlanned    LessonStatus = "PLANNED"
	LessonInProgress LessonStatus = "IN_PROGRESS"
	LessonCompleted  LessonStatus = "COMPLETED"
)

// Lesson belongs to exactly one curriculum. The scheduler owns PlannedDate;
// completion workflows own Status. Completed lessons are never rescheduled.
type Lesson struct {
	ID           string       `db:"id" json:"id"`
	CurriculumID string       `db:"curriculum_id" json:"curriculum_id"`
	Title        string       `db:"title" json:"title"`
	OrderIndex   int          `db:"order_index" json:"order_index"`
	PlannedDate  *time.Time   `db:"planned_date" json:"planned_date,omitempty"`
	Status       LessonStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// CurriculumAssignment links a curriculum to a learner and school year. A
// non-empty Weekdays set fully replaces the year's defaults for scheduling;
// it is not merged with date overrides.
type CurriculumAssignment struct {
	ID           string        `db:"id" json:"id"`
	CurriculumID string        `db:"curriculum_id" json:"curriculum_id"`
	LearnerID    string        `db:"learner_id" json:"learner_id"`
	SchoolYearID string        `db:"school_year_id" json:"school_year_id"`
	Weekdays     pq.Int64Array `db:"weekdays" json:"weekdays"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// LessonExportRow is the denormalized shape consumed by calendar exports.
type LessonExportRow struct {
	LessonID    string    `db:"lesson_id"`
	Title       string    `db:"title"`
	SubjectName string    `db:"subject_name"`
	LearnerName string    `db:"learner_name"`
	PlannedDate time.Time `db:"planned_date"`
	Status      string    `db:"status"`
}
