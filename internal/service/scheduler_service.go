package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fernwood-app/homeschool-api/internal/dto"
	"github.com/fernwood-app/homeschool-api/internal/models"
	"github.com/fernwood-app/homeschool-api/internal/repository"
	"github.com/fernwood-app/homeschool-api/pkg/dateutil"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

type schedulerAssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.CurriculumAssignment, error)
	ListByCurriculumAndLearner(ctx context.Context, curriculumID, learnerID string) ([]models.CurriculumAssignment, error)
	UpdateWeekdays(ctx context.Context, id string, weekdays []int64) error
}

type schedulerYearRepository interface {
	GetByID(ctx context.Context, id string) (*models.SchoolYear, error)
	ListOverrides(ctx context.Context, schoolYearID string) ([]models.DateOverride, error)
}

type schedulerLessonRepository interface {
	ListByCurriculum(ctx context.Context, curriculumID string) ([]models.Lesson, error)
	ListUnscheduled(ctx context.Context, curriculumID string) ([]models.Lesson, error)
	CommitPlan(ctx context.Context, curriculumID string, plan []repository.LessonDateAssignment) error
	ClearPlanned(ctx context.Context, curriculumID string) (int, error)
}

// SchedulerService assigns planned dates to a curriculum's lessons along the
// school calendar. The full plan is computed in memory and committed as one
// batch; partial progress within a run is never observable.
type SchedulerService struct {
	assignments schedulerAssignmentRepository
	years       schedulerYearRepository
	lessons     schedulerLessonRepository
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSchedulerService wires scheduler dependencies.
func NewSchedulerService(
	assignments schedulerAssignmentRepository,
	years schedulerYearRepository,
	lessons schedulerLessonRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *SchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		assignments: assignments,
		years:       years,
		lessons:     lessons,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// AutoSchedule walks forward through school days assigning the next available
// date to each unscheduled lesson, in order. Dates are strictly increasing
// and never shared between lessons of one run. Reaching the year boundary with
// lessons left keeps the committed dates and reports the shortfall as data.
func (s *SchedulerService) AutoSchedule(ctx context.Context, curriculumID, learnerID string) (*dto.AutoScheduleResult, error) {
	assignment, year, err := s.resolveAssignment(ctx, curriculumID, learnerID)
	if err != nil {
		return nil, err
	}

	weekdays, overrides, err := s.effectiveCalendar(ctx, assignment, year)
	if err != nil {
		return nil, err
	}
	if len(weekdays) == 0 {
		return nil, appErrors.ErrNoWeekdays
	}

	lessons, err := s.lessons.ListUnscheduled(ctx, curriculumID)
	if err != nil {
		return nil, err
	}
	if len(lessons) == 0 {
		return nil, appErrors.ErrNothingToSchedule
	}

	today := dateutil.Midnight(s.now())
	cursor := dateutil.Midnight(year.StartDate)
	if today.After(cursor) {
		cursor = today
	}
	end := dateutil.Midnight(year.EndDate)

	plan := make([]repository.LessonDateAssignment, 0, len(lessons))
	for !cursor.After(end) && len(plan) < len(lessons) {
		if IsSchoolDate(cursor, weekdays, overrides) {
			plan = append(plan, repository.LessonDateAssignment{
				LessonID: lessons[len(plan)].ID,
				Date:     cursor,
			})
		}
		cursor = dateutil.AddDays(cursor, 1)
	}

	if len(plan) == 0 {
		return nil, appErrors.ErrNoAvailableDates
	}

	if err := s.lessons.CommitPlan(ctx, curriculumID, plan); err != nil {
		return nil, err
	}

	result := &dto.AutoScheduleResult{
		ScheduledCount: len(plan),
		RemainingCount: len(lessons) - len(plan),
	}
	s.logger.Info("auto_schedule_run",
		zap.String("curriculum_id", curriculumID),
		zap.String("learner_id", learnerID),
		zap.Int("scheduled", result.ScheduledCount),
		zap.Int("remaining", result.RemainingCount),
	)
	return result, nil
}

// RescheduleAll clears all non-completed planned dates, then runs the same
// forward walk from scratch.
func (s *SchedulerService) RescheduleAll(ctx context.Context, curriculumID, learnerID string) (*dto.AutoScheduleResult, error) {
	if _, err := s.lessons.ClearPlanned(ctx, curriculumID); err != nil {
		return nil, err
	}
	return s.AutoSchedule(ctx, curriculumID, learnerID)
}

// ListLessons returns a curriculum's lessons in teaching order.
func (s *SchedulerService) ListLessons(ctx context.Context, curriculumID string) ([]models.Lesson, error) {
	return s.lessons.ListByCurriculum(ctx, curriculumID)
}

// ClearSchedule nulls planned dates on all non-completed lessons.
func (s *SchedulerService) ClearSchedule(ctx context.Context, curriculumID string) (*dto.ClearScheduleResult, error) {
	cleared, err := s.lessons.ClearPlanned(ctx, curriculumID)
	if err != nil {
		return nil, err
	}
	return &dto.ClearScheduleResult{ClearedCount: cleared}, nil
}

// SetAssignmentWeekdays stores a custom weekday subset on one assignment.
// Duplicates are collapsed; an empty list reverts to the year's defaults.
func (s *SchedulerService) SetAssignmentWeekdays(ctx context.Context, assignmentID string, req dto.AssignmentWeekdaysRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekdays payload")
	}
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		return err
	}
	normalized := models.NormalizeWeekdays(req.Weekdays)
	converted := make([]int64, len(normalized))
	for i, d := range normalized {
		converted[i] = int64(d)
	}
	return s.assignments.UpdateWeekdays(ctx, assignmentID, converted)
}

// resolveAssignment picks the assignment whose school year contains today,
// falling back to the one with the latest year end.
func (s *SchedulerService) resolveAssignment(ctx context.Context, curriculumID, learnerID string) (*models.CurriculumAssignment, *models.SchoolYear, error) {
	assignments, err := s.assignments.ListByCurriculumAndLearner(ctx, curriculumID, learnerID)
	if err != nil {
		return nil, nil, err
	}
	if len(assignments) == 0 {
		return nil, nil, appErrors.ErrNoAssignment
	}

	today := dateutil.Midnight(s.now())

	var chosen *models.CurriculumAssignment
	var chosenYear *models.SchoolYear
	for i := range assignments {
		year, err := s.years.GetByID(ctx, assignments[i].SchoolYearID)
		if err != nil {
			return nil, nil, err
		}
		start := dateutil.Midnight(year.StartDate)
		end := dateutil.Midnight(year.EndDate)
		if !today.Before(start) && !today.After(end) {
			return &assignments[i], year, nil
		}
		if chosenYear == nil || end.After(dateutil.Midnight(chosenYear.EndDate)) {
			chosen = &assignments[i]
			chosenYear = year
		}
	}
	return chosen, chosenYear, nil
}

// effectiveCalendar resolves the weekday set and overrides for a run. A
// non-empty custom set on the assignment replaces the year's defaults
// entirely; overrides apply only in the default case.
func (s *SchedulerService) effectiveCalendar(ctx context.Context, assignment *models.CurriculumAssignment, year *models.SchoolYear) (map[time.Weekday]bool, map[string]models.OverrideKind, error) {
	if len(assignment.Weekdays) > 0 {
		return models.WeekdaySet(assignment.Weekdays), map[string]models.OverrideKind{}, nil
	}

	overrides, err := s.years.ListOverrides(ctx, year.ID)
	if err != nil {
		return nil, nil, err
	}
	return models.WeekdaySet(year.Weekdays), OverrideMap(overrides), nil
}
