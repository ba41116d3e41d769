package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fernwood-app/homeschool-api/internal/dto"
	"github.com/fernwood-app/homeschool-api/internal/models"
	"github.com/fernwood-app/homeschool-api/internal/service"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
	"github.com/fernwood-app/homeschool-api/pkg/response"
)

type lessonScheduler interface {
	ListLessons(ctx context.Context, curriculumID string) ([]models.Lesson, error)
	AutoSchedule(ctx context.Context, curriculumID, learnerID string) (*dto.AutoScheduleResult, error)
	RescheduleAll(ctx context.Context, curriculumID, learnerID string) (*dto.AutoScheduleResult, error)
	ClearSchedule(ctx context.Context, curriculumID string) (*dto.ClearScheduleResult, error)
	SetAssignmentWeekdays(ctx context.Context, assignmentID string, req dto.AssignmentWeekdaysRequest) error
}

// SchedulerHandler exposes lesson scheduling endpoints.
type SchedulerHandler struct {
	service lessonScheduler
}

// NewSchedulerHandler constructs the handler.
func NewSchedulerHandler(svc *service.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{service: svc}
}

// ListLessons returns a curriculum's lessons in teaching order.
func (h *SchedulerHandler) ListLessons(c *gin.Context) {
	lessons, err := h.service.ListLessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// AutoSchedule assigns planned dates to a curriculum's unscheduled lessons.
func (h *SchedulerHandler) AutoSchedule(c *gin.Context) {
	var req dto.AutoScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.service.AutoSchedule(c.Request.Context(), c.Param("id"), req.LearnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RescheduleAll clears all non-completed planned dates and re-runs the walk.
func (h *SchedulerHandler) RescheduleAll(c *gin.Context) {
	var req dto.AutoScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.service.RescheduleAll(c.Request.Context(), c.Param("id"), req.LearnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClearSchedule removes planned dates from all non-completed lessons.
func (h *SchedulerHandler) ClearSchedule(c *gin.Context) {
	result, err := h.service.ClearSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetAssignmentWeekdays stores a custom weekday subset on one assignment.
func (h *SchedulerHandler) SetAssignmentWeekdays(c *gin.Context) {
	var req dto.AssignmentWeekdaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weekdays payload"))
		return
	}
	if err := h.service.SetAssignmentWeekdays(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
