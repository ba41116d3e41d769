package dto

// CreateEventRequest adds an external recurring or one-off event.
type CreateEventRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	LearnerID     *string `json:"learnerId"`
	Location      *string `json:"location" validate:"omitempty,max=255"`
	Recurrence    string  `json:"recurrence" validate:"required,oneof=ONCE WEEKLY BIWEEKLY MONTHLY"`
	AnchorWeekday *int    `json:"anchorWeekday" validate:"omitempty,min=0,max=6"`
	StartDate     string  `json:"startDate" validate:"required"`
	EndDate       *string `json:"endDate"`
	StartTime     *string `json:"startTime" validate:"omitempty,len=5"`
	EndTime       *string `json:"endTime" validate:"omitempty,len=5"`
}

// UpdateEventRequest mirrors CreateEventRequest for edits.
type UpdateEventRequest CreateEventRequest

// AddExceptionRequest skips one date of a series.
type AddExceptionRequest struct {
	Date   string  `json:"date" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=255"`
}

// ImportPreviewRequest carries pasted calendar dates, one per line.
type ImportPreviewRequest struct {
	RawText string `json:"rawText" validate:"required"`
}

// ImportPreviewResponse is the inferred recurrence for an imported date list.
type ImportPreviewResponse struct {
	Recurrence        string   `json:"recurrence"`
	AnchorWeekday     *int     `json:"anchorWeekday,omitempty"`
	StartDate         string   `json:"startDate"`
	EndDate           string   `json:"endDate"`
	ImpliedExceptions []string `json:"impliedExceptions"`
}

// OccurrenceQuery bounds an occurrence expansion request.
type OccurrenceQuery struct {
	Start     string `form:"start" validate:"required"`
	End       string `form:"end" validate:"required"`
	LearnerID string `form:"learnerId"`
}
