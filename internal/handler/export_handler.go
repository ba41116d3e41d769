package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fernwood-app/homeschool-api/internal/service"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
	"github.com/fernwood-app/homeschool-api/pkg/response"
)

type calendarExporter interface {
	BuildCalendar(ctx context.Context, learnerID string) (string, error)
	RenderScheduleCSV(ctx context.Context, learnerID string) ([]byte, error)
	RenderSchedulePDF(ctx context.Context, learnerID string) ([]byte, error)
}

// ExportHandler serves calendar feed and schedule download endpoints.
type ExportHandler struct {
	service calendarExporter
	token   string
}

// NewExportHandler constructs the handler. The token gates the unauthenticated
// feed URL that calendar clients poll.
func NewExportHandler(svc *service.ExportService, token string) *ExportHandler {
	return &ExportHandler{service: svc, token: token}
}

// Feed serves the ICS calendar for subscription clients. It is reachable
// without a session but requires the configured feed token.
func (h *ExportHandler) Feed(c *gin.Context) {
	supplied := c.Query("token")
	if h.token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(h.token)) != 1 {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	body, err := h.service.BuildCalendar(c.Request.Context(), c.Query("learnerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="calendar.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// ScheduleCSV downloads the planned schedule as CSV.
func (h *ExportHandler) ScheduleCSV(c *gin.Context) {
	body, err := h.service.RenderScheduleCSV(c.Request.Context(), c.Query("learnerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="schedule.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

// SchedulePDF downloads the planned schedule as a printable PDF.
func (h *ExportHandler) SchedulePDF(c *gin.Context) {
	body, err := h.service.RenderSchedulePDF(c.Request.Context(), c.Query("learnerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="schedule.pdf"`)
	c.Data(http.StatusOK, "application/pdf", body)
}
