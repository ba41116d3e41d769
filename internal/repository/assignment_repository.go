package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fernwood-app/homeschool-api/internal/models"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

// AssignmentRepository persists curriculum assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// GetByID fetches one assignment.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.CurriculumAssignment, error) {
	const query = `SELECT id, curriculum_id, learner_id, school_year_id, weekdays, created_at, updated_at
FROM curriculum_assignments WHERE id = $1`
	var assignment models.CurriculumAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return &assignment, nil
}

// ListByCurriculumAndLearner returns every school-year assignment linking the
// pair, for the scheduler to pick from.
func (r *AssignmentRepository) ListByCurriculumAndLearner(ctx context.Context, curriculumID, learnerID string) ([]models.CurriculumAssignment, error) {
	const query = `SELECT id, curriculum_id, learner_id, school_year_id, weekdays, created_at, updated_at
FROM curriculum_assignments WHERE curriculum_id = $1 AND learner_id = $2`
	var assignments []models.CurriculumAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, curriculumID, learnerID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// UpdateWeekdays sets (or clears, with an empty slice) an assignment's custom
// weekday subset.
func (r *AssignmentRepository) UpdateWeekdays(ctx context.Context, id string, weekdays []int64) error {
	const query = `UPDATE curriculum_assignments SET weekdays = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, pq.Int64Array(weekdays), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update assignment weekdays: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}
