package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-app/homeschool-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLessonRepositoryListUnscheduled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"id", "curriculum_id", "title", "order_index", "planned_date", "status", "created_at", "updated_at"}).
		AddRow("l1", "cur-1", "Counting", 1, nil, string(models.LessonPlanned), time.Now(), time.Now()).
		AddRow("l2", "cur-1", "Addition", 2, nil, string(models.LessonPlanned), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("planned_date IS NULL AND status <> $2 ORDER BY order_index ASC, id ASC")).
		WithArgs("cur-1", string(models.LessonCompleted)).
		WillReturnRows(rows)

	lessons, err := repo.ListUnscheduled(context.Background(), "cur-1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "l1", lessons[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCommitPlanLocksAndUpdatesInOneTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("cur-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lessons SET planned_date = $2, updated_at = $3 WHERE id = $1 AND status <> $4")).
		WithArgs("l1", time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), sqlmock.AnyArg(), string(models.LessonCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lessons SET planned_date = $2, updated_at = $3 WHERE id = $1 AND status <> $4")).
		WithArgs("l2", time.Date(2025, time.September, 2, 0, 0, 0, 0, time.UTC), sqlmock.AnyArg(), string(models.LessonCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	plan := []LessonDateAssignment{
		{LessonID: "l1", Date: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)},
		{LessonID: "l2", Date: time.Date(2025, time.September, 2, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, repo.CommitPlan(context.Background(), "cur-1", plan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCommitPlanRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("cur-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lessons SET planned_date")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	plan := []LessonDateAssignment{{LessonID: "l1", Date: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)}}
	err := repo.CommitPlan(context.Background(), "cur-1", plan)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryClearPlanned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE lessons SET planned_date = NULL")).
		WithArgs("cur-1", sqlmock.AnyArg(), string(models.LessonCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	cleared, err := repo.ClearPlanned(context.Background(), "cur-1")
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListExportRowsFiltersLearner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"lesson_id", "title", "subject_name", "learner_name", "planned_date", "status"}).
		AddRow("l1", "Counting", "Math", "Avery", time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), string(models.LessonPlanned))
	mock.ExpectQuery(regexp.QuoteMeta("AND a.learner_id = $1")).
		WithArgs("lea-1").
		WillReturnRows(rows)

	exportRows, err := repo.ListExportRows(context.Background(), "lea-1")
	require.NoError(t, err)
	require.Len(t, exportRows, 1)
	assert.Equal(t, "Math", exportRows[0].SubjectName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
