package dto

// AutoScheduleRequest asks the scheduler to plan a curriculum for a learner.
type AutoScheduleRequest struct {
	LearnerID string `json:"learnerId" validate:"required"`
}

// AutoScheduleResult reports how far a scheduling run got. RemainingCount > 0
// means the school year ran out before every lesson received a date; the
// assigned dates are still committed.
type AutoScheduleResult struct {
	ScheduledCount int `json:"scheduledCount"`
	RemainingCount int `json:"remainingCount"`
}

// ClearScheduleResult reports how many planned dates were removed.
type ClearScheduleResult struct {
	ClearedCount int `json:"clearedCount"`
}

// AssignmentWeekdaysRequest sets a custom weekday subset on one assignment.
// An empty list reverts the assignment to the year's defaults.
type AssignmentWeekdaysRequest struct {
	Weekdays []int `json:"weekdays" validate:"dive,min=0,max=6"`
}
