package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fernwood-app/homeschool-api/internal/dto"
	"github.com/fernwood-app/homeschool-api/internal/models"
	"github.com/fernwood-app/homeschool-api/pkg/dateutil"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

const occurrenceCachePrefix = "occurrences"

type eventRepository interface {
	Create(ctx context.Context, event *models.RecurringEvent) error
	GetByID(ctx context.Context, id string) (*models.RecurringEvent, error)
	ListInWindow(ctx context.Context, start, end time.Time, learnerID string) ([]models.RecurringEvent, error)
	Update(ctx context.Context, event *models.RecurringEvent) error
	Delete(ctx context.Context, id string) error
	AddException(ctx context.Context, exception *models.EventException) error
	DeleteException(ctx context.Context, eventID string, date time.Time) error
	ListExceptions(ctx context.Context, eventID string) ([]models.EventException, error)
}

type occurrenceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type occurrenceExpander interface {
	Expand(rule models.RecurrenceRule, exceptions []time.Time, rangeStart, rangeEnd time.Time) ([]time.Time, error)
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// EventService manages external recurring events and materializes their
// occurrences for query windows.
type EventService struct {
	events     eventRepository
	recurrence occurrenceExpander
	cache      occurrenceCache
	metrics    cacheMetrics
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEventService wires event dependencies. The cache and metrics may be nil.
func NewEventService(
	events eventRepository,
	recurrence occurrenceExpander,
	cache occurrenceCache,
	metrics cacheMetrics,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &EventService{
		events:     events,
		recurrence: recurrence,
		cache:      cache,
		metrics:    metrics,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger,
	}
}

// Create validates and stores a new event.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest) (*models.RecurringEvent, error) {
	event, err := s.eventFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	s.invalidateOccurrences(ctx)
	return event, nil
}

// Update replaces an event's fields.
func (s *EventService) Update(ctx context.Context, id string, req dto.UpdateEventRequest) (*models.RecurringEvent, error) {
	existing, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.eventFromRequest(dto.CreateEventRequest(req))
	if err != nil {
		return nil, err
	}
	event.ID = existing.ID
	event.CreatedAt = existing.CreatedAt
	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}
	s.invalidateOccurrences(ctx)
	return event, nil
}

// Delete removes an event and its exceptions.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateOccurrences(ctx)
	return nil
}

// List returns all events, optionally scoped to one learner.
func (s *EventService) List(ctx context.Context, learnerID string) ([]models.RecurringEvent, error) {
	return s.events.ListInWindow(ctx,
		time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
		learnerID,
	)
}

// Get returns one event with its exception dates.
func (s *EventService) Get(ctx context.Context, id string) (*models.RecurringEvent, []models.EventException, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	exceptions, err := s.events.ListExceptions(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return event, exceptions, nil
}

// AddException skips one date of a series.
func (s *EventService) AddException(ctx context.Context, eventID string, req dto.AddExceptionRequest) (*models.EventException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception payload")
	}
	date, err := dateutil.ParseDateKey(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exception date")
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	exception := &models.EventException{EventID: eventID, Date: date, Reason: req.Reason}
	if err := s.events.AddException(ctx, exception); err != nil {
		return nil, err
	}
	s.invalidateOccurrences(ctx)
	return exception, nil
}

// RemoveException restores one skipped date.
func (s *EventService) RemoveException(ctx context.Context, eventID, dateKey string) error {
	date, err := dateutil.ParseDateKey(dateKey)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid exception date")
	}
	if err := s.events.DeleteException(ctx, eventID, date); err != nil {
		return err
	}
	s.invalidateOccurrences(ctx)
	return nil
}

// ListOccurrences expands every event intersecting the query window into
// concrete dated occurrences, ascending by date then title.
func (s *EventService) ListOccurrences(ctx context.Context, query dto.OccurrenceQuery) ([]models.Occurrence, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid occurrence query")
	}
	start, err := dateutil.ParseDateKey(query.Start)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid range start")
	}
	end, err := dateutil.ParseDateKey(query.End)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid range end")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "range end precedes range start")
	}

	cacheKey := fmt.Sprintf("%s:%s:%s:%s", occurrenceCachePrefix, query.LearnerID, query.Start, query.End)
	if s.cache != nil {
		var cached []models.Occurrence
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.recordCacheLookup(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("occurrence_cache_read_failed", zap.Error(err))
		}
		s.recordCacheLookup(false)
	}

	events, err := s.events.ListInWindow(ctx, start, end, query.LearnerID)
	if err != nil {
		return nil, err
	}

	occurrences := make([]models.Occurrence, 0, len(events))
	for i := range events {
		event := &events[i]
		exceptions, err := s.events.ListExceptions(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		dates, err := s.recurrence.Expand(event.Rule(), exceptionDates(exceptions), start, end)
		if err != nil {
			return nil, err
		}
		for _, date := range dates {
			occurrences = append(occurrences, models.Occurrence{
				EventID:   event.ID,
				Title:     event.Title,
				Date:      date,
				StartTime: event.StartTime,
				EndTime:   event.EndTime,
				AllDay:    event.StartTime == nil,
			})
		}
	}
	sort.Slice(occurrences, func(i, j int) bool {
		if !occurrences[i].Date.Equal(occurrences[j].Date) {
			return occurrences[i].Date.Before(occurrences[j].Date)
		}
		return occurrences[i].Title < occurrences[j].Title
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, occurrences, s.cacheTTL); err != nil {
			s.logger.Warn("occurrence_cache_write_failed", zap.Error(err))
		}
	}
	return occurrences, nil
}

func (s *EventService) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func (s *EventService) invalidateOccurrences(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, occurrenceCachePrefix+":*"); err != nil {
		s.logger.Warn("occurrence_cache_invalidate_failed", zap.Error(err))
	}
}

func (s *EventService) eventFromRequest(req dto.CreateEventRequest) (*models.RecurringEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	start, err := dateutil.ParseDateKey(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	var end *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := dateutil.ParseDateKey(*req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
		}
		if parsed.Before(start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
		}
		end = &parsed
	}

	recurrence := models.RecurrenceType(req.Recurrence)
	anchor := req.AnchorWeekday
	switch recurrence {
	case models.RecurrenceMonthly:
		// monthly anchors on day-of-month, never on a weekday
		anchor = nil
	default:
		if anchor == nil {
			derived := int(start.Weekday())
			anchor = &derived
		}
	}

	if req.StartTime != nil {
		if _, err := parseClock(*req.StartTime); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
		}
	}
	if req.EndTime != nil {
		if _, err := parseClock(*req.EndTime); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
		}
	}

	return &models.RecurringEvent{
		LearnerID:     req.LearnerID,
		Title:         req.Title,
		Location:      req.Location,
		Recurrence:    recurrence,
		AnchorWeekday: anchor,
		StartDate:     start,
		EndDate:       end,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	}, nil
}

func exceptionDates(exceptions []models.EventException) []time.Time {
	dates := make([]time.Time, len(exceptions))
	for i, e := range exceptions {
		dates[i] = e.Date
	}
	return dates
}

// clockDuration is a parsed HH:MM offset from midnight.
type clockDuration struct {
	Hour   int
	Minute int
}

func parseClock(raw string) (clockDuration, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return clockDuration{}, fmt.Errorf("malformed clock value %q", raw)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return clockDuration{}, fmt.Errorf("malformed clock value %q", raw)
	}
	return clockDuration{Hour: hour, Minute: minute}, nil
}
