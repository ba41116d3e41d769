package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fernwood-app/homeschool-api/internal/models"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

// SchoolYearRepository persists school years and their date overrides.
type SchoolYearRepository struct {
	db *sqlx.DB
}

// NewSchoolYearRepository constructs a school year repository.
func NewSchoolYearRepository(db *sqlx.DB) *SchoolYearRepository {
	return &SchoolYearRepository{db: db}
}

// Create inserts a school year.
func (r *SchoolYearRepository) Create(ctx context.Context, year *models.SchoolYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now
	const query = `INSERT INTO school_years (id, name, start_date, end_date, weekdays, created_at, updated_at)
VALUES (:id, :name, :start_date, :end_date, :weekdays, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create school year: %w", err)
	}
	return nil
}

// GetByID fetches one school year.
func (r *SchoolYearRepository) GetByID(ctx context.Context, id string) (*models.SchoolYear, error) {
	const query = `SELECT id, name, start_date, end_date, weekdays, created_at, updated_at
FROM school_years WHERE id = $1`
	var year models.SchoolYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get school year %s: %w", id, err)
	}
	return &year, nil
}

// List returns all school years, newest first.
func (r *SchoolYearRepository) List(ctx context.Context) ([]models.SchoolYear, error) {
	const query = `SELECT id, name, start_date, end_date, weekdays, created_at, updated_at
FROM school_years ORDER BY start_date DESC`
	var years []models.SchoolYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list school years: %w", err)
	}
	return years, nil
}

// UpdateWeekdays replaces a year's default school weekdays.
func (r *SchoolYearRepository) UpdateWeekdays(ctx context.Context, id string, weekdays []int64) error {
	const query = `UPDATE school_years SET weekdays = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, pq.Int64Array(weekdays), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update school year weekdays: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// UpsertOverride writes a date override; a later write for the same date
// replaces the earlier one.
func (r *SchoolYearRepository) UpsertOverride(ctx context.Context, override *models.DateOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	override.CreatedAt = now
	override.UpdatedAt = now
	const query = `INSERT INTO date_overrides (id, school_year_id, date, kind, reason, created_at, updated_at)
VALUES (:id, :school_year_id, :date, :kind, :reason, :created_at, :updated_at)
ON CONFLICT (school_year_id, date) DO UPDATE SET kind = EXCLUDED.kind, reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("upsert date override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override for a date, if any.
func (r *SchoolYearRepository) DeleteOverride(ctx context.Context, schoolYearID string, date time.Time) error {
	const query = `DELETE FROM date_overrides WHERE school_year_id = $1 AND date = $2`
	if _, err := r.db.ExecContext(ctx, query, schoolYearID, date); err != nil {
		return fmt.Errorf("delete date override: %w", err)
	}
	return nil
}

// ListOverrides returns all overrides for a year ordered by date.
func (r *SchoolYearRepository) ListOverrides(ctx context.Context, schoolYearID string) ([]models.DateOverride, error) {
	const query = `SELECT id, school_year_id, date, kind, reason, created_at, updated_at
FROM date_overrides WHERE school_year_id = $1 ORDER BY date ASC`
	var overrides []models.DateOverride
	if err := r.db.SelectContext(ctx, &overrides, query, schoolYearID); err != nil {
		return nil, fmt.Errorf("list date overrides: %w", err)
	}
	return overrides, nil
}
