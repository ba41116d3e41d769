package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fernwood-app/homeschool-api/internal/models"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

// EventRepository persists recurring events and their exception dates.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, learner_id, title, location, recurrence, anchor_weekday, start_date, end_date, start_time, end_time, created_at, updated_at`

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, event *models.RecurringEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO recurring_events (id, learner_id, title, location, recurrence, anchor_weekday, start_date, end_date, start_time, end_time, created_at, updated_at)
VALUES (:id, :learner_id, :title, :location, :recurrence, :anchor_weekday, :start_date, :end_date, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetByID fetches one event.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.RecurringEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurring_events WHERE id = $1`, eventColumns)
	var event models.RecurringEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return &event, nil
}

// ListInWindow returns events whose active span intersects [start, end],
// optionally scoped to one learner (learner-scoped plus family-wide rows).
func (r *EventRepository) ListInWindow(ctx context.Context, start, end time.Time, learnerID string) ([]models.RecurringEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurring_events
WHERE start_date <= $1 AND (end_date IS NULL OR end_date >= $2)`, eventColumns)
	args := []interface{}{end, start}
	if learnerID != "" {
		query += " AND (learner_id IS NULL OR learner_id = $3)"
		args = append(args, learnerID)
	}
	query += " ORDER BY start_date ASC, id ASC"

	var events []models.RecurringEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Update modifies an event.
func (r *EventRepository) Update(ctx context.Context, event *models.RecurringEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE recurring_events SET learner_id = :learner_id, title = :title, location = :location,
recurrence = :recurrence, anchor_weekday = :anchor_weekday, start_date = :start_date, end_date = :end_date,
start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// Delete removes an event and its exceptions (cascade via FK).
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recurring_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// AddException skips one date of a series; re-adding the same date updates the
// reason.
func (r *EventRepository) AddException(ctx context.Context, exception *models.EventException) error {
	if exception.ID == "" {
		exception.ID = uuid.NewString()
	}
	exception.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO event_exceptions (id, event_id, date, reason, created_at)
VALUES (:id, :event_id, :date, :reason, :created_at)
ON CONFLICT (event_id, date) DO UPDATE SET reason = EXCLUDED.reason`
	if _, err := r.db.NamedExecContext(ctx, query, exception); err != nil {
		return fmt.Errorf("add event exception: %w", err)
	}
	return nil
}

// DeleteException restores one skipped date.
func (r *EventRepository) DeleteException(ctx context.Context, eventID string, date time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM event_exceptions WHERE event_id = $1 AND date = $2`, eventID, date); err != nil {
		return fmt.Errorf("delete event exception: %w", err)
	}
	return nil
}

// ListExceptions returns all skipped dates for an event ordered by date.
func (r *EventRepository) ListExceptions(ctx context.Context, eventID string) ([]models.EventException, error) {
	const query = `SELECT id, event_id, date, reason, created_at FROM event_exceptions WHERE event_id = $1 ORDER BY date ASC`
	var exceptions []models.EventException
	if err := r.db.SelectContext(ctx, &exceptions, query, eventID); err != nil {
		return nil, fmt.Errorf("list event exceptions: %w", err)
	}
	return exceptions, nil
}
