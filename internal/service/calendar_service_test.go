package service

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-app/homeschool-api/internal/dto"
	"github.com/fernwood-app/homeschool-api/internal/models"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

type yearRepoStub struct {
	years     map[string]*models.SchoolYear
	overrides map[string][]models.DateOverride
	deleted   []string
}

func (s *yearRepoStub) Create(_ context.Context, year *models.SchoolYear) error {
	if s.years == nil {
		s.years = map[string]*models.SchoolYear{}
	}
	if year.ID == "" {
		year.ID = "year-new"
	}
	s.years[year.ID] = year
	return nil
}

func (s *yearRepoStub) GetByID(_ context.Context, id string) (*models.SchoolYear, error) {
	if year, ok := s.years[id]; ok {
		return year, nil
	}
	return nil, appErrors.ErrNotFound
}

func (s *yearRepoStub) List(_ context.Context) ([]models.SchoolYear, error) {
	var out []models.SchoolYear
	for _, y := range s.years {
		out = append(out, *y)
	}
	return out, nil
}

func (s *yearRepoStub) UpdateWeekdays(_ context.Context, id string, weekdays []int64) error {
	year, ok := s.years[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	year.Weekdays = pq.Int64Array(weekdays)
	return nil
}

func (s *yearRepoStub) UpsertOverride(_ context.Context, override *models.DateOverride) error {
	if s.overrides == nil {
		s.overrides = map[string][]models.DateOverride{}
	}
	s.overrides[override.SchoolYearID] = append(s.overrides[override.SchoolYearID], *override)
	return nil
}

func (s *yearRepoStub) DeleteOverride(_ context.Context, schoolYearID string, date time.Time) error {
	s.deleted = append(s.deleted, schoolYearID+":"+date.Format("2006-01-02"))
	return nil
}

func (s *yearRepoStub) ListOverrides(_ context.Context, schoolYearID string) ([]models.DateOverride, error) {
	return s.overrides[schoolYearID], nil
}

func TestIsSchoolDate(t *testing.T) {
	weekdays := map[time.Weekday]bool{time.Monday: true, time.Wednesday: true}
	overrides := map[string]models.OverrideKind{
		"2025-09-01": models.OverrideExclude, // a Monday
		"2025-09-06": models.OverrideInclude, // a Saturday
		"2025-09-07": models.OverrideExclude, // a Sunday, already off
	}

	assert.True(t, IsSchoolDate(day("2025-09-08"), weekdays, overrides), "plain school weekday")
	assert.False(t, IsSchoolDate(day("2025-09-09"), weekdays, overrides), "weekday outside the set")
	assert.False(t, IsSchoolDate(day("2025-09-01"), weekdays, overrides), "exclude beats weekday membership")
	assert.True(t, IsSchoolDate(day("2025-09-06"), weekdays, overrides), "include beats weekday absence")
	assert.False(t, IsSchoolDate(day("2025-09-07"), weekdays, overrides), "exclude on an off day stays off")
}

func TestIsSchoolDateEmptyWeekdaySet(t *testing.T) {
	overrides := map[string]models.OverrideKind{"2025-09-06": models.OverrideInclude}

	assert.False(t, IsSchoolDate(day("2025-09-08"), map[time.Weekday]bool{}, overrides))
	assert.True(t, IsSchoolDate(day("2025-09-06"), map[time.Weekday]bool{}, overrides))
}

func TestOverrideMapLastWriteWins(t *testing.T) {
	m := OverrideMap([]models.DateOverride{
		{Date: day("2025-09-01"), Kind: models.OverrideExclude},
		{Date: day("2025-09-01"), Kind: models.OverrideInclude},
	})
	assert.Equal(t, models.OverrideInclude, m["2025-09-01"])
}

func TestCreateSchoolYearNormalizesWeekdays(t *testing.T) {
	repo := &yearRepoStub{}
	svc := NewCalendarService(repo, nil, nil)

	year, err := svc.CreateSchoolYear(context.Background(), dto.CreateSchoolYearRequest{
		Name:      "2025-2026",
		StartDate: "2025-08-18",
		EndDate:   "2026-05-29",
		Weekdays:  []int{5, 1, 3, 1},
	})
	require.NoError(t, err)
	assert.Equal(t, pq.Int64Array{1, 3, 5}, year.Weekdays)
}

func TestCreateSchoolYearRejectsInvertedBounds(t *testing.T) {
	svc := NewCalendarService(&yearRepoStub{}, nil, nil)

	_, err := svc.CreateSchoolYear(context.Background(), dto.CreateSchoolYearRequest{
		Name:      "backwards",
		StartDate: "2026-05-29",
		EndDate:   "2025-08-18",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateSchoolYearRejectsUnparseableDates(t *testing.T) {
	svc := NewCalendarService(&yearRepoStub{}, nil, nil)

	_, err := svc.CreateSchoolYear(context.Background(), dto.CreateSchoolYearRequest{
		Name:      "bad",
		StartDate: "August 18th",
		EndDate:   "2026-05-29",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpsertOverrideRequiresExistingYear(t *testing.T) {
	svc := NewCalendarService(&yearRepoStub{}, nil, nil)

	_, err := svc.UpsertOverride(context.Background(), "year-missing", dto.UpsertOverrideRequest{
		Date: "2025-12-25",
		Kind: "EXCLUDE",
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUpsertOverrideStoresKind(t *testing.T) {
	repo := &yearRepoStub{years: map[string]*models.SchoolYear{"year-1": {ID: "year-1"}}}
	svc := NewCalendarService(repo, nil, nil)

	override, err := svc.UpsertOverride(context.Background(), "year-1", dto.UpsertOverrideRequest{
		Date: "2025-12-25",
		Kind: "EXCLUDE",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OverrideExclude, override.Kind)
	assert.Equal(t, "2025-12-25", override.Date.Format("2006-01-02"))
	require.Len(t, repo.overrides["year-1"], 1)
}

func TestDeleteOverrideRejectsBadDate(t *testing.T) {
	svc := NewCalendarService(&yearRepoStub{}, nil, nil)

	err := svc.DeleteOverride(context.Background(), "year-1", "christmas")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
