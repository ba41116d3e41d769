package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fernwood-app/homeschool-api/internal/models"
	"github.com/fernwood-app/homeschool-api/pkg/config"
	"github.com/fernwood-app/homeschool-api/pkg/export"
	"github.com/fernwood-app/homeschool-api/pkg/ics"
)

// uidDomain suffixes every exported UID so importing calendars can
// deduplicate on re-sync.
const uidDomain = "fernwood-planner"

type exportLessonReader interface {
	ListExportRows(ctx context.Context, learnerID string) ([]models.LessonExportRow, error)
}

type exportEventReader interface {
	ListInWindow(ctx context.Context, start, end time.Time, learnerID string) ([]models.RecurringEvent, error)
	ListExceptions(ctx context.Context, eventID string) ([]models.EventException, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportService renders planned lessons and recurring events as calendar
// interchange text and tabular downloads. It has no scheduling logic of its
// own.
type ExportService struct {
	lessons exportLessonReader
	events  exportEventReader
	csv     csvRenderer
	pdf     pdfRenderer
	cfg     config.ExportConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService wires export dependencies.
func NewExportService(
	lessons exportLessonReader,
	events exportEventReader,
	csv csvRenderer,
	pdf pdfRenderer,
	cfg config.ExportConfig,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CalendarName == "" {
		cfg.CalendarName = "Homeschool Planner"
	}
	if cfg.ProductID == "" {
		cfg.ProductID = "-//Fernwood//Homeschool Planner//EN"
	}
	return &ExportService{
		lessons: lessons,
		events:  events,
		csv:     csv,
		pdf:     pdf,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildCalendar renders the full ICS feed, optionally scoped to one learner.
func (s *ExportService) BuildCalendar(ctx context.Context, learnerID string) (string, error) {
	rows, err := s.lessons.ListExportRows(ctx, learnerID)
	if err != nil {
		return "", err
	}
	// the feed carries every event's rule, so list across the full span
	events, err := s.events.ListInWindow(ctx,
		time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
		learnerID,
	)
	if err != nil {
		return "", err
	}

	stamp := ics.FormatUTC(s.now())

	b := ics.NewBuilder()
	b.Begin("VCALENDAR")
	b.Prop("VERSION", "2.0")
	b.Prop("PRODID", s.cfg.ProductID)
	b.Prop("CALSCALE", "GREGORIAN")
	b.Prop("METHOD", "PUBLISH")
	b.TextProp("X-WR-CALNAME", s.cfg.CalendarName)

	for _, row := range rows {
		s.writeLessonBlock(b, row, stamp)
	}
	for i := range events {
		exceptions, err := s.events.ListExceptions(ctx, events[i].ID)
		if err != nil {
			return "", err
		}
		s.writeEventBlock(b, &events[i], exceptions, stamp)
	}

	b.End("VCALENDAR")
	return b.String(), nil
}

// BuildScheduleTable assembles the tabular planned-lesson view for downloads.
func (s *ExportService) BuildScheduleTable(ctx context.Context, learnerID string) (export.Table, error) {
	rows, err := s.lessons.ListExportRows(ctx, learnerID)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{Headers: []string{"Date", "Subject", "Lesson", "Learner", "Status"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.PlannedDate.Format("2006-01-02"),
			row.SubjectName,
			row.Title,
			row.LearnerName,
			row.Status,
		})
	}
	return table, nil
}

// RenderScheduleCSV renders the schedule table as CSV bytes.
func (s *ExportService) RenderScheduleCSV(ctx context.Context, learnerID string) ([]byte, error) {
	table, err := s.BuildScheduleTable(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return s.csv.Render(table)
}

// RenderSchedulePDF renders the schedule table as a printable PDF.
func (s *ExportService) RenderSchedulePDF(ctx context.Context, learnerID string) ([]byte, error) {
	table, err := s.BuildScheduleTable(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return s.pdf.Render(table, s.cfg.CalendarName)
}

// writeLessonBlock emits one all-day VEVENT per planned lesson with a
// one-day-ahead reminder. The exclusive end date is start-of-next-day.
func (s *ExportService) writeLessonBlock(b *ics.Builder, row models.LessonExportRow, stamp string) {
	summary := fmt.Sprintf("%s: %s (%s)", row.SubjectName, row.Title, row.LearnerName)

	b.Begin("VEVENT")
	b.Propf("UID", "lesson-%s@%s", row.LessonID, uidDomain)
	b.Prop("DTSTAMP", stamp)
	b.Prop("DTSTART;VALUE=DATE", ics.FormatDate(row.PlannedDate))
	b.Prop("DTEND;VALUE=DATE", ics.FormatDate(row.PlannedDate.AddDate(0, 0, 1)))
	b.TextProp("SUMMARY", summary)
	b.Prop("STATUS", "CONFIRMED")
	b.Begin("VALARM")
	b.Prop("ACTION", "DISPLAY")
	b.TextProp("DESCRIPTION", "Reminder: "+summary)
	b.Prop("TRIGGER", "-P1D")
	b.End("VALARM")
	b.End("VEVENT")
}

// writeEventBlock emits one VEVENT per external event, timed or all-day, with
// recurrence and exception encoding.
func (s *ExportService) writeEventBlock(b *ics.Builder, event *models.RecurringEvent, exceptions []models.EventException, stamp string) {
	allDay := event.StartTime == nil

	b.Begin("VEVENT")
	b.Propf("UID", "event-%s@%s", event.ID, uidDomain)
	b.Prop("DTSTAMP", stamp)

	if allDay {
		b.Prop("DTSTART;VALUE=DATE", ics.FormatDate(event.StartDate))
		b.Prop("DTEND;VALUE=DATE", ics.FormatDate(event.StartDate.AddDate(0, 0, 1)))
	} else {
		start := atClock(event.StartDate, *event.StartTime)
		end := start.Add(time.Hour)
		if event.EndTime != nil {
			end = atClock(event.StartDate, *event.EndTime)
		}
		b.Prop("DTSTART", ics.FormatDateTime(start))
		b.Prop("DTEND", ics.FormatDateTime(end))
	}

	b.TextProp("SUMMARY", event.Title)
	if event.Location != nil && *event.Location != "" {
		b.TextProp("LOCATION", *event.Location)
	}
	b.Prop("STATUS", "CONFIRMED")

	if event.Recurrence != models.RecurrenceOnce {
		b.Prop("RRULE", rruleValue(event, allDay))
	}
	if len(exceptions) > 0 {
		if allDay {
			b.Prop("EXDATE;VALUE=DATE", joinExceptionDates(exceptions, ""))
		} else {
			b.Prop("EXDATE", joinExceptionDates(exceptions, *event.StartTime))
		}
	}

	b.End("VEVENT")
}

// rruleValue encodes the recurrence in interchange form, bounding it with
// UNTIL when the series has an end date.
func rruleValue(event *models.RecurringEvent, allDay bool) string {
	var value string
	switch event.Recurrence {
	case models.RecurrenceBiweekly:
		value = "FREQ=WEEKLY;INTERVAL=2"
	case models.RecurrenceMonthly:
		value = fmt.Sprintf("FREQ=MONTHLY;BYMONTHDAY=%d", event.StartDate.Day())
	default:
		value = "FREQ=WEEKLY"
	}
	if event.Recurrence != models.RecurrenceMonthly {
		weekday := event.StartDate.Weekday()
		if event.AnchorWeekday != nil {
			weekday = time.Weekday(*event.AnchorWeekday)
		}
		value += ";BYDAY=" + ics.ByDay(weekday)
	}
	if event.EndDate != nil {
		if allDay {
			value += ";UNTIL=" + ics.FormatDate(*event.EndDate)
		} else {
			value += ";UNTIL=" + ics.FormatDateTime(atClock(*event.EndDate, "23:59"))
		}
	}
	return value
}

func joinExceptionDates(exceptions []models.EventException, clock string) string {
	out := ""
	for i, e := range exceptions {
		if i > 0 {
			out += ","
		}
		if clock == "" {
			out += ics.FormatDate(e.Date)
		} else {
			out += ics.FormatDateTime(atClock(e.Date, clock))
		}
	}
	return out
}

// atClock pins an HH:MM clock string onto a date. Callers validate the clock
// at write time; a malformed stored value degrades to midnight.
func atClock(date time.Time, clock string) time.Time {
	parsed, err := parseClock(clock)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour, parsed.Minute, 0, 0, time.UTC)
}
