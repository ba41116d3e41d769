package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwood-app/homeschool-api/internal/dto"
	"github.com/fernwood-app/homeschool-api/internal/models"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

type eventRepoStub struct {
	events     map[string]*models.RecurringEvent
	exceptions map[string][]models.EventException
	nextID     int
}

func newEventRepoStub() *eventRepoStub {
	return &eventRepoStub{
		events:     map[string]*models.RecurringEvent{},
		exceptions: map[string][]models.EventException{},
	}
}

func (s *eventRepoStub) Create(_ context.Context, event *models.RecurringEvent) error {
	s.nextID++
	if event.ID == "" {
		event.ID = "evt-" + string(rune('0'+s.nextID))
	}
	s.events[event.ID] = event
	return nil
}

func (s *eventRepoStub) GetByID(_ context.Context, id string) (*models.RecurringEvent, error) {
	if e, ok := s.events[id]; ok {
		return e, nil
	}
	return nil, appErrors.ErrNotFound
}

func (s *eventRepoStub) ListInWindow(_ context.Context, _, _ time.Time, learnerID string) ([]models.RecurringEvent, error) {
	var out []models.RecurringEvent
	for _, e := range s.events {
		if learnerID != "" && (e.LearnerID == nil || *e.LearnerID != learnerID) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *eventRepoStub) Update(_ context.Context, event *models.RecurringEvent) error {
	s.events[event.ID] = event
	return nil
}

func (s *eventRepoStub) Delete(_ context.Context, id string) error {
	delete(s.events, id)
	delete(s.exceptions, id)
	return nil
}

func (s *eventRepoStub) AddException(_ context.Context, exception *models.EventException) error {
	s.exceptions[exception.EventID] = append(s.exceptions[exception.EventID], *exception)
	return nil
}

func (s *eventRepoStub) DeleteException(_ context.Context, eventID string, date time.Time) error {
	kept := s.exceptions[eventID][:0]
	for _, e := range s.exceptions[eventID] {
		if !e.Date.Equal(date) {
			kept = append(kept, e)
		}
	}
	s.exceptions[eventID] = kept
	return nil
}

func (s *eventRepoStub) ListExceptions(_ context.Context, eventID string) ([]models.EventException, error) {
	return s.exceptions[eventID], nil
}

type occurrenceCacheStub struct {
	entries map[string][]models.Occurrence
}

func newOccurrenceCacheStub() *occurrenceCacheStub {
	return &occurrenceCacheStub{entries: map[string][]models.Occurrence{}}
}

func (s *occurrenceCacheStub) Get(_ context.Context, key string, dest interface{}) error {
	cached, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*[]models.Occurrence) = cached
	return nil
}

func (s *occurrenceCacheStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.entries[key] = value.([]models.Occurrence)
	return nil
}

func (s *occurrenceCacheStub) DeleteByPattern(_ context.Context, _ string) error {
	s.entries = map[string][]models.Occurrence{}
	return nil
}

type cacheMetricsStub struct {
	hits   int
	misses int
}

func (s *cacheMetricsStub) RecordCacheOperation(hit bool) {
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

func newEventServiceFixture() (*EventService, *eventRepoStub) {
	repo := newEventRepoStub()
	svc := NewEventService(repo, NewRecurrenceService(nil), nil, nil, 0, nil, nil)
	return svc, repo
}

func TestEventServiceCreateDerivesAnchorFromStartDate(t *testing.T) {
	svc, _ := newEventServiceFixture()

	event, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title:      "Co-op science",
		Recurrence: "WEEKLY",
		StartDate:  "2025-09-03",
	})
	require.NoError(t, err)
	require.NotNil(t, event.AnchorWeekday)
	assert.Equal(t, int(time.Wednesday), *event.AnchorWeekday)
}

func TestEventServiceCreateMonthlyDropsAnchor(t *testing.T) {
	svc, _ := newEventServiceFixture()
	anchor := 2

	event, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title:         "Library day",
		Recurrence:    "MONTHLY",
		AnchorWeekday: &anchor,
		StartDate:     "2025-09-10",
	})
	require.NoError(t, err)
	assert.Nil(t, event.AnchorWeekday)
}

func TestEventServiceCreateRejectsMalformedClock(t *testing.T) {
	svc, _ := newEventServiceFixture()
	clock := "25:99"

	_, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title:      "Swim practice",
		Recurrence: "WEEKLY",
		StartDate:  "2025-09-03",
		StartTime:  &clock,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceCreateRejectsEndBeforeStart(t *testing.T) {
	svc, _ := newEventServiceFixture()
	end := "2025-08-01"

	_, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title:      "Backwards",
		Recurrence: "WEEKLY",
		StartDate:  "2025-09-03",
		EndDate:    &end,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceListOccurrencesExpandsAndSorts(t *testing.T) {
	svc, repo := newEventServiceFixture()

	weekly, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title:      "Co-op science",
		Recurrence: "WEEKLY",
		StartDate:  "2025-09-01",
	})
	require.NoError(t, err)
	start := "10:00"
	_, err = svc.Create(context.Background(), dto.CreateEventRequest{
		Title:      "Art class",
		Recurrence: "ONCE",
		StartDate:  "2025-09-08",
		StartTime:  &start,
	})
	require.NoError(t, err)
	_, err = svc.AddException(context.Background(), weekly.ID, dto.AddExceptionRequest{Date: "2025-09-15"})
	require.NoError(t, err)

	occurrences, err := svc.ListOccurrences(context.Background(), dto.OccurrenceQuery{
		Start: "2025-09-01",
		End:   "2025-09-22",
	})
	require.NoError(t, err)

	var got []string
	for _, o := range occurrences {
		got = append(got, o.Date.Format("2006-01-02")+" "+o.Title)
	}
	assert.Equal(t, []string{
		"2025-09-01 Co-op science",
		"2025-09-08 Art class",
		"2025-09-08 Co-op science",
		"2025-09-22 Co-op science",
	}, got)

	require.Len(t, repo.exceptions[weekly.ID], 1)
	assert.True(t, occurrences[0].AllDay)
	assert.False(t, occurrences[1].AllDay)
}

func TestEventServiceListOccurrencesRecordsCacheHitsAndMisses(t *testing.T) {
	repo := newEventRepoStub()
	cacheStub := newOccurrenceCacheStub()
	metrics := &cacheMetricsStub{}
	svc := NewEventService(repo, NewRecurrenceService(nil), cacheStub, metrics, time.Minute, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title:      "Co-op science",
		Recurrence: "WEEKLY",
		StartDate:  "2025-09-01",
	})
	require.NoError(t, err)

	query := dto.OccurrenceQuery{Start: "2025-09-01", End: "2025-09-15"}

	first, err := svc.ListOccurrences(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.hits)
	assert.Equal(t, 1, metrics.misses)

	second, err := svc.ListOccurrences(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestEventServiceListOccurrencesRejectsInvertedWindow(t *testing.T) {
	svc, _ := newEventServiceFixture()

	_, err := svc.ListOccurrences(context.Background(), dto.OccurrenceQuery{
		Start: "2025-09-21",
		End:   "2025-09-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceRemoveExceptionRestoresDate(t *testing.T) {
	svc, _ := newEventServiceFixture()

	event, err := svc.Create(context.Background(), dto.CreateEventRequest{
		Title:      "Co-op science",
		Recurrence: "WEEKLY",
		StartDate:  "2025-09-01",
	})
	require.NoError(t, err)
	_, err = svc.AddException(context.Background(), event.ID, dto.AddExceptionRequest{Date: "2025-09-08"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveException(context.Background(), event.ID, "2025-09-08"))

	occurrences, err := svc.ListOccurrences(context.Background(), dto.OccurrenceQuery{
		Start: "2025-09-08",
		End:   "2025-09-08",
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
}

func TestEventServiceAddExceptionUnknownEvent(t *testing.T) {
	svc, _ := newEventServiceFixture()

	_, err := svc.AddException(context.Background(), "evt-missing", dto.AddExceptionRequest{Date: "2025-09-08"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
