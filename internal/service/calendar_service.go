package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fernwood-app/homeschool-api/internal/dto"
	"github.com/fernwood-app/homeschool-api/internal/models"
	"github.com/fernwood-app/homeschool-api/pkg/dateutil"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

// IsSchoolDate reports whether a date is a school day. A date qualifies when
// its weekday is in the default set and no Exclude override exists, or when an
// Include override exists for it. Overrides win in the direction they specify;
// an Exclude on a non-school weekday is a harmless no-op.
func IsSchoolDate(date time.Time, weekdays map[time.Weekday]bool, overrides map[string]models.OverrideKind) bool {
	if kind, ok := overrides[dateutil.FormatDateKey(date)]; ok {
		return kind == models.OverrideInclude
	}
	return weekdays[date.Weekday()]
}

// OverrideMap indexes overrides by date key. When the slice carries several
// rows for one date the last write wins, matching storage semantics.
func OverrideMap(overrides []models.DateOverride) map[string]models.OverrideKind {
	m := make(map[string]models.OverrideKind, len(overrides))
	for _, o := range overrides {
		m[dateutil.FormatDateKey(o.Date)] = o.Kind
	}
	return m
}

type schoolYearRepository interface {
	Create(ctx context.Context, year *models.SchoolYear) error
	GetByID(ctx context.Context, id string) (*models.SchoolYear, error)
	List(ctx context.Context) ([]models.SchoolYear, error)
	UpdateWeekdays(ctx context.Context, id string, weekdays []int64) error
	UpsertOverride(ctx context.Context, override *models.DateOverride) error
	DeleteOverride(ctx context.Context, schoolYearID string, date time.Time) error
	ListOverrides(ctx context.Context, schoolYearID string) ([]models.DateOverride, error)
}

// CalendarService manages school years, weekday defaults and date overrides.
type CalendarService struct {
	years     schoolYearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCalendarService wires the calendar configuration service.
func NewCalendarService(years schoolYearRepository, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{years: years, validator: validate, logger: logger}
}

// CreateSchoolYear validates bounds and opens a new year.
func (s *CalendarService) CreateSchoolYear(ctx context.Context, req dto.CreateSchoolYearRequest) (*models.SchoolYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school year payload")
	}
	start, err := dateutil.ParseDateKey(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := dateutil.ParseDateKey(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	year := &models.SchoolYear{
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Weekdays:  toInt64Array(models.NormalizeWeekdays(req.Weekdays)),
	}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, err
	}
	s.logger.Info("school_year_created", zap.String("school_year_id", year.ID))
	return year, nil
}

// ListSchoolYears returns all configured years.
func (s *CalendarService) ListSchoolYears(ctx context.Context) ([]models.SchoolYear, error) {
	return s.years.List(ctx)
}

// GetSchoolYear returns one year with its overrides.
func (s *CalendarService) GetSchoolYear(ctx context.Context, id string) (*models.SchoolYear, []models.DateOverride, error) {
	year, err := s.years.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	overrides, err := s.years.ListOverrides(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return year, overrides, nil
}

// SetWeekdays replaces a year's default school weekdays.
func (s *CalendarService) SetWeekdays(ctx context.Context, id string, req dto.UpdateWeekdaysRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekdays payload")
	}
	return s.years.UpdateWeekdays(ctx, id, toInt64(models.NormalizeWeekdays(req.Weekdays)))
}

// UpsertOverride forces a date in or out of the school calendar; a later
// write for the same date replaces the earlier one.
func (s *CalendarService) UpsertOverride(ctx context.Context, schoolYearID string, req dto.UpsertOverrideRequest) (*models.DateOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	date, err := dateutil.ParseDateKey(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid override date")
	}
	if _, err := s.years.GetByID(ctx, schoolYearID); err != nil {
		return nil, err
	}

	override := &models.DateOverride{
		SchoolYearID: schoolYearID,
		Date:         date,
		Kind:         models.OverrideKind(req.Kind),
		Reason:       req.Reason,
	}
	if err := s.years.UpsertOverride(ctx, override); err != nil {
		return nil, err
	}
	return override, nil
}

// DeleteOverride removes the override for a date.
func (s *CalendarService) DeleteOverride(ctx context.Context, schoolYearID, dateKey string) error {
	date, err := dateutil.ParseDateKey(dateKey)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid override date")
	}
	return s.years.DeleteOverride(ctx, schoolYearID, date)
}

func toInt64(weekdays []int) []int64 {
	out := make([]int64, len(weekdays))
	for i, d := range weekdays {
		out[i] = int64(d)
	}
	return out
}

func toInt64Array(weekdays []int) pq.Int64Array {
	return pq.Int64Array(toInt64(weekdays))
}
