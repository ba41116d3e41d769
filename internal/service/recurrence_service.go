package service

import (
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/fernwood-app/homeschool-api/internal/models"
	"github.com/fernwood-app/homeschool-api/pkg/dateutil"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
)

// dateLayouts are tried in order when parsing pasted calendar lines. ISO and
// US slash forms first, then the generic fallbacks.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// InferredRecurrence is the result of recurrence inference: the minimal rule
// covering the supplied dates plus the dates the rule predicts but the input
// lacks.
type InferredRecurrence struct {
	Rule              models.RecurrenceRule
	ImpliedExceptions []time.Time
}

// RecurrenceService infers recurrence rules from raw date lists and expands
// rules into concrete occurrences. All methods are pure; the service carries
// only a logger.
type RecurrenceService struct {
	logger *zap.Logger
}

// NewRecurrenceService constructs the recurrence engine.
func NewRecurrenceService(logger *zap.Logger) *RecurrenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecurrenceService{logger: logger}
}

// ParseDateLines parses each line permissively, discards what it cannot read,
// de-duplicates and sorts ascending.
func (s *RecurrenceService) ParseDateLines(lines []string) []time.Time {
	seen := make(map[string]struct{})
	dates := make([]time.Time, 0, len(lines))
	for _, line := range lines {
		raw := strings.TrimSpace(line)
		if raw == "" {
			continue
		}
		date, ok := parseFlexibleDate(raw)
		if !ok {
			continue
		}
		key := dateutil.FormatDateKey(date)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Infer classifies a raw date list into the minimal recurrence rule and
// reports implied exceptions. Irregular inputs are approximated as weekly,
// never rejected; only an empty parse result is an error.
func (s *RecurrenceService) Infer(lines []string) (*InferredRecurrence, error) {
	dates := s.ParseDateLines(lines)
	if len(dates) == 0 {
		return nil, appErrors.ErrNoValidDates
	}

	first := dates[0]
	last := dates[len(dates)-1]

	if len(dates) == 1 {
		anchor := int(first.Weekday())
		return &InferredRecurrence{
			Rule: models.RecurrenceRule{
				Type:          models.RecurrenceOnce,
				AnchorWeekday: &anchor,
				StartDate:     first,
				EndDate:       &last,
			},
		}, nil
	}

	weekdays := make(map[time.Weekday]struct{})
	for _, d := range dates {
		weekdays[d.Weekday()] = struct{}{}
	}
	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, int(dates[i].Sub(dates[i-1]).Hours()/24))
	}

	rule := models.RecurrenceRule{StartDate: first, EndDate: &last}
	switch {
	case len(weekdays) == 1 && allMultiplesOf(gaps, 14):
		rule.Type = models.RecurrenceBiweekly
	case len(weekdays) == 1 && allMultiplesOf(gaps, 7):
		rule.Type = models.RecurrenceWeekly
	case sameDayOfMonth(dates):
		rule.Type = models.RecurrenceMonthly
	default:
		rule.Type = models.RecurrenceWeekly
	}
	if rule.Type != models.RecurrenceMonthly {
		anchor := int(first.Weekday())
		rule.AnchorWeekday = &anchor
	}

	expected, err := s.Expand(rule, nil, first, last)
	if err != nil {
		return nil, err
	}
	supplied := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		supplied[dateutil.FormatDateKey(d)] = struct{}{}
	}
	var implied []time.Time
	for _, d := range expected {
		if _, ok := supplied[dateutil.FormatDateKey(d)]; !ok {
			implied = append(implied, d)
		}
	}

	return &InferredRecurrence{Rule: rule, ImpliedExceptions: implied}, nil
}

// Expand materializes a rule's occurrence dates inside [rangeStart, rangeEnd],
// skipping exception dates. Pure and idempotent; the result is ascending.
func (s *RecurrenceService) Expand(rule models.RecurrenceRule, exceptions []time.Time, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	start := dateutil.Midnight(rule.StartDate)
	rangeStart = dateutil.Midnight(rangeStart)
	rangeEnd = dateutil.Midnight(rangeEnd)
	if rangeEnd.Before(rangeStart) {
		return nil, nil
	}

	excluded := make(map[string]struct{}, len(exceptions))
	for _, d := range exceptions {
		excluded[dateutil.FormatDateKey(d)] = struct{}{}
	}

	if rule.Type == models.RecurrenceOnce {
		if start.Before(rangeStart) || start.After(rangeEnd) {
			return nil, nil
		}
		if _, skip := excluded[dateutil.FormatDateKey(start)]; skip {
			return nil, nil
		}
		return []time.Time{start}, nil
	}

	opt := rrule.ROption{Dtstart: start}
	switch rule.Type {
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case models.RecurrenceBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 2
	case models.RecurrenceMonthly:
		// anchored on start date's day-of-month; months lacking the day skip
		opt.Freq = rrule.MONTHLY
	}

	until := rangeEnd
	if rule.EndDate != nil {
		end := dateutil.Midnight(*rule.EndDate)
		if end.Before(until) {
			until = end
		}
	}
	opt.Until = until

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build recurrence rule")
	}

	raw := r.Between(rangeStart, rangeEnd, true)
	out := make([]time.Time, 0, len(raw))
	for _, d := range raw {
		day := dateutil.Midnight(d)
		if _, skip := excluded[dateutil.FormatDateKey(day)]; skip {
			continue
		}
		out = append(out, day)
	}
	return out, nil
}

func parseFlexibleDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return dateutil.Midnight(t), true
		}
	}
	return time.Time{}, false
}

func allMultiplesOf(gaps []int, n int) bool {
	for _, g := range gaps {
		if g%n != 0 {
			return false
		}
	}
	return true
}

func sameDayOfMonth(dates []time.Time) bool {
	day := dates[0].Day()
	for _, d := range dates[1:] {
		if d.Day() != day {
			return false
		}
	}
	return true
}
