package dto

// HolidayRequest creates or replaces a holiday. An end date before the start is clamped to the start.
type HolidayRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}
