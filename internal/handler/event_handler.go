package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fernwood-app/homeschool-api/internal/dto"
	"github.com/fernwood-app/homeschool-api/internal/models"
	"github.com/fernwood-app/homeschool-api/internal/service"
	"github.com/fernwood-app/homeschool-api/pkg/dateutil"
	appErrors "github.com/fernwood-app/homeschool-api/pkg/errors"
	"github.com/fernwood-app/homeschool-api/pkg/response"
)

type eventManager interface {
	Create(ctx context.Context, req dto.CreateEventRequest) (*models.RecurringEvent, error)
	List(ctx context.Context, learnerID string) ([]models.RecurringEvent, error)
	Get(ctx context.Context, id string) (*models.RecurringEvent, []models.EventException, error)
	Update(ctx context.Context, id string, req dto.UpdateEventRequest) (*models.RecurringEvent, error)
	Delete(ctx context.Context, id string) error
	AddException(ctx context.Context, eventID string, req dto.AddExceptionRequest) (*models.EventException, error)
	RemoveException(ctx context.Context, eventID, dateKey string) error
	ListOccurrences(ctx context.Context, query dto.OccurrenceQuery) ([]models.Occurrence, error)
}

type recurrenceInferrer interface {
	Infer(lines []string) (*service.InferredRecurrence, error)
}

// EventHandler exposes recurring event, exception and occurrence endpoints.
type EventHandler struct {
	events     eventManager
	recurrence recurrenceInferrer
}

// NewEventHandler constructs the handler.
func NewEventHandler(events *service.EventService, recurrence *service.RecurrenceService) *EventHandler {
	return &EventHandler{events: events, recurrence: recurrence}
}

// Create stores a new recurring event.
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// List returns all events, optionally scoped to one learner.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.events.List(c.Request.Context(), c.Query("learnerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Get returns one event with its exceptions.
func (h *EventHandler) Get(c *gin.Context) {
	event, exceptions, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"event": event, "exceptions": exceptions}, nil)
}

// Update replaces an event's fields.
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete removes an event and its exceptions.
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddException skips one date of a series.
func (h *EventHandler) AddException(c *gin.Context) {
	var req dto.AddExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exception payload"))
		return
	}
	exception, err := h.events.AddException(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exception)
}

// RemoveException restores one skipped date.
func (h *EventHandler) RemoveException(c *gin.Context) {
	if err := h.events.RemoveException(c.Request.Context(), c.Param("id"), c.Param("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListOccurrences expands events intersecting a date window.
func (h *EventHandler) ListOccurrences(c *gin.Context) {
	var query dto.OccurrenceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid occurrence query"))
		return
	}
	occurrences, err := h.events.ListOccurrences(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences, nil)
}

// ImportPreview infers a recurrence rule from pasted dates without persisting
// anything.
func (h *EventHandler) ImportPreview(c *gin.Context) {
	var req dto.ImportPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	inferred, err := h.recurrence.Infer(strings.Split(req.RawText, "\n"))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ImportPreviewResponse{
		Recurrence:        string(inferred.Rule.Type),
		AnchorWeekday:     inferred.Rule.AnchorWeekday,
		StartDate:         dateutil.FormatDateKey(inferred.Rule.StartDate),
		ImpliedExceptions: make([]string, 0, len(inferred.ImpliedExceptions)),
	}
	if inferred.Rule.EndDate != nil {
		resp.EndDate = dateutil.FormatDateKey(*inferred.Rule.EndDate)
	}
	for _, d := range inferred.ImpliedExceptions {
		resp.ImpliedExceptions = append(resp.ImpliedExceptions, dateutil.FormatDateKey(d))
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
