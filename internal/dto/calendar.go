package dto

// CreateSchoolYearRequest opens a new school year with weekday defaults.
type CreateSchoolYearRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Weekdays  []int  `json:"weekdays" validate:"omitempty,dive,min=0,max=6"`
}

// UpdateWeekdaysRequest replaces a year's default school weekdays.
type UpdateWeekdaysRequest struct {
	Weekdays []int `json:"weekdays" validate:"required,dive,min=0,max=6"`
}

// UpsertOverrideRequest forces a date in or out of the school calendar.
type UpsertOverrideRequest struct {
	Date   string  `json:"date" validate:"required"`
	Kind   string  `json:"kind" validate:"required,oneof=EXCLUDE INCLUDE"`
	Reason *string `json:"reason" validate:"omitempty,max=255"`
}
