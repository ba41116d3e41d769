package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fernwood-app/homeschool-api/internal/models"
)

// LessonDateAssignment pairs one lesson with its newly planned date.
type LessonDateAssignment struct {
	LessonID string
	Date     time.Time
}

// LessonRepository persists lessons and planned dates.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByCurriculum returns all lessons of a curriculum in teaching order.
func (r *LessonRepository) ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Lesson, error) {
	const query = `SELECT id, curriculum_id, title, order_index, planned_date, status, created_at, updated_at
FROM lessons WHERE curriculum_id = $1 ORDER BY order_index ASC, id ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, curriculumID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListUnscheduled returns lessons awaiting a planned date, ordered by
// order_index with the lesson id breaking ties so runs are stable.
func (r *LessonRepository) ListUnscheduled(ctx context.Context, curriculumID string) ([]models.Lesson, error) {
	const query = `SELECT id, curriculum_id, title, order_index, planned_date, status, created_at, updated_at
FROM lessons WHERE curriculum_id = $1 AND planned_date IS NULL AND status <> $2 ORDER BY order_index ASC, id ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, curriculumID, models.LessonCompleted); err != nil {
		return nil, fmt.Errorf("list unscheduled lessons: %w", err)
	}
	return lessons, nil
}

// CommitPlan writes a full scheduling run as one transaction. An advisory lock
// keyed on the curriculum serializes concurrent runs so two callers cannot
// both read the same unscheduled set and double-book dates.
func (r *LessonRepository) CommitPlan(ctx context.Context, curriculumID string, plan []LessonDateAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule commit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, curriculumID); err != nil {
		return fmt.Errorf("acquire schedule lock: %w", err)
	}

	now := time.Now().UTC()
	const update = `UPDATE lessons SET planned_date = $2, updated_at = $3 WHERE id = $1 AND status <> $4`
	for _, entry := range plan {
		if _, err := tx.ExecContext(ctx, update, entry.LessonID, entry.Date, now, models.LessonCompleted); err != nil {
			return fmt.Errorf("assign lesson %s: %w", entry.LessonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule: %w", err)
	}
	return nil
}

// ClearPlanned nulls planned dates on all non-completed lessons of a
// curriculum and reports how many rows changed.
func (r *LessonRepository) ClearPlanned(ctx context.Context, curriculumID string) (int, error) {
	const query = `UPDATE lessons SET planned_date = NULL, updated_at = $2
WHERE curriculum_id = $1 AND planned_date IS NOT NULL AND status <> $3`
	res, err := r.db.ExecContext(ctx, query, curriculumID, time.Now().UTC(), models.LessonCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear planned dates: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count cleared dates: %w", err)
	}
	return int(affected), nil
}

// ListExportRows returns the denormalized planned-lesson rows the calendar
// export renders, optionally scoped to one learner.
func (r *LessonRepository) ListExportRows(ctx context.Context, learnerID string) ([]models.LessonExportRow, error) {
	base := `SELECT l.id AS lesson_id, l.title, s.name AS subject_name, le.name AS learner_name, l.planned_date, l.status
FROM lessons l
JOIN curricula c ON c.id = l.curriculum_id
JOIN subjects s ON s.id = c.subject_id
JOIN curriculum_assignments a ON a.curriculum_id = c.id
JOIN learners le ON le.id = a.learner_id
WHERE l.planned_date IS NOT NULL`
	args := []interface{}{}
	if learnerID != "" {
		base += " AND a.learner_id = $1"
		args = append(args, learnerID)
	}
	base += " ORDER BY l.planned_date ASC, l.id ASC"

	var rows []models.LessonExportRow
	if err := r.db.SelectContext(ctx, &rows, base, args...); err != nil {
		return nil, fmt.Errorf("list export rows: %w", err)
	}
	return rows, nil
}
