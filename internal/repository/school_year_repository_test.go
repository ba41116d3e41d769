package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-app/homeschool-api/internal/models"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

func TestSchoolYearRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO school_years")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	year := &models.SchoolYear{
		Name:      "2025-2026",
		StartDate: time.Date(2025, time.August, 18, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.May, 29, 0, 0, 0, 0, time.UTC),
		Weekdays:  pq.Int64Array{1, 2, 3, 4, 5},
	}
	require.NoError(t, repo.Create(context.Background(), year))
	assert.NotEmpty(t, year.ID)
	assert.False(t, year.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM school_years WHERE id = $1")).
		WithArgs("year-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "year-missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryUpdateWeekdaysNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE school_years SET weekdays = $2")).
		WithArgs("year-missing", pq.Int64Array{1, 3}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateWeekdays(context.Background(), "year-missing", []int64{1, 3})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryUpsertOverride(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (school_year_id, date) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	override := &models.DateOverride{
		SchoolYearID: "year-1",
		Date:         time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC),
		Kind:         models.OverrideExclude,
	}
	require.NoError(t, repo.UpsertOverride(context.Background(), override))
	assert.NotEmpty(t, override.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolYearRepositoryListOverrides(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSchoolYearRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_year_id", "date", "kind", "reason", "created_at", "updated_at"}).
		AddRow("ov-1", "year-1", time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC), string(models.OverrideExclude), nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM date_overrides WHERE school_year_id = $1 ORDER BY date ASC")).
		WithArgs("year-1").
		WillReturnRows(rows)

	overrides, err := repo.ListOverrides(context.Background(), "year-1")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, models.OverrideExclude, overrides[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
