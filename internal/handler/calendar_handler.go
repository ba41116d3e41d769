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

type calendarManager interface {
	CreateSchoolYear(ctx context.Context, req dto.CreateSchoolYearRequest) (*models.SchoolYear, error)
	ListSchoolYears(ctx context.Context) ([]models.SchoolYear, error)
	GetSchoolYear(ctx context.Context, id string) (*models.SchoolYear, []models.DateOverride, error)
	SetWeekdays(ctx context.Context, id string, req dto.UpdateWeekdaysRequest) error
	UpsertOverride(ctx context.Context, schoolYearID string, req dto.UpsertOverrideRequest) (*models.DateOverride, error)
	DeleteOverride(ctx context.Context, schoolYearID, dateKey string) error
}

// CalendarHandler exposes school year and override configuration endpoints.
type CalendarHandler struct {
	service calendarManager
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Create opens a new school year.
func (h *CalendarHandler) Create(c *gin.Context) {
	var req dto.CreateSchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid school year payload"))
		return
	}
	year, err := h.service.CreateSchoolYear(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// List returns all school years.
func (h *CalendarHandler) List(c *gin.Context) {
	years, err := h.service.ListSchoolYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Get returns one school year with its overrides.
func (h *CalendarHandler) Get(c *gin.Context) {
	year, overrides, err := h.service.GetSchoolYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"year": year, "overrides": overrides}, nil)
}

// SetWeekdays replaces a year's default school weekdays.
func (h *CalendarHandler) SetWeekdays(c *gin.Context) {
	var req dto.UpdateWeekdaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weekdays payload"))
		return
	}
	if err := h.service.SetWeekdays(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpsertOverride forces a date in or out of the school calendar.
func (h *CalendarHandler) UpsertOverride(c *gin.Context) {
	var req dto.UpsertOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	override, err := h.service.UpsertOverride(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// DeleteOverride removes the override for a date.
func (h *CalendarHandler) DeleteOverride(c *gin.Context) {
	if err := h.service.DeleteOverride(c.Request.Context(), c.Param("id"), c.Param("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
