package dto

import (
	"github.com/shopspring/decimal"
)

// Dates travel as YYYY-MM-DD strings and are validated with the datetime tag.

// PatternSlot is one weekly rule as clients send it, e.g.
// {"day":"Monday","startTime":"10:00","endTime":"12:00"}.
type PatternSlot struct {
	Day       string `json:"day" validate:"required,weekday"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
}

// CreateCourseRequest is the payload for creating a course and generating its calendar.
type CreateCourseRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Level         string          `json:"level" validate:"required,max=50"`
	Description   *string         `json:"description" validate:"omitempty,max=2000"`
	TeacherID     *string         `json:"teacherId"`
	BranchID      *string         `json:"branchId"`
	Price         decimal.Decimal `json:"price"`
	WeeklyPattern []PatternSlot   `json:"weeklyPattern" validate:"required,min=1,dive"`
	StartDate     string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	TotalSessions int             `json:"totalSessions" validate:"required,min=1,max=1000"`
	EndDate       *string         `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateCourseRequest lists the only course attributes a client may change directly.
// Sessions, statistics and derived status are never accepted from clients.
type UpdateCourseRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Level       *string          `json:"level" validate:"omitempty,min=1,max=50"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	TeacherID   *string          `json:"teacherId"`
	BranchID    *string          `json:"branchId"`
	Price       *decimal.Decimal `json:"price"`
	EndDate     *string          `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	// ClearEndDate releases a pinned end date back to the last session date.
	ClearEndDate bool    `json:"clearEndDate"`
	Status       *string `json:"status" validate:"omitempty,oneof=Cancelled"`
}

// CreateKindergartenClassRequest is the payload for creating a kindergarten class.
type CreateKindergartenClassRequest struct {
	Name          string        `json:"name" validate:"required,max=200"`
	AgeGroup      string        `json:"ageGroup" validate:"required,max=50"`
	Description   *string       `json:"description" validate:"omitempty,max=2000"`
	TeacherID     *string       `json:"teacherId"`
	BranchID      *string       `json:"branchId"`
	Capacity      int           `json:"capacity" validate:"omitempty,min=0,max=500"`
	WeeklyPattern []PatternSlot `json:"weeklyPattern" validate:"required,min=1,dive"`
	StartDate     string        `json:"startDate" validate:"required,datetime=2006-01-02"`
	TotalSessions int           `json:"totalSessions" validate:"required,min=1,max=1000"`
	EndDate       *string       `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateKindergartenClassRequest lists the class attributes a client may change directly.
type UpdateKindergartenClassRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	AgeGroup     *string `json:"ageGroup" validate:"omitempty,min=1,max=50"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	TeacherID    *string `json:"teacherId"`
	BranchID     *string `json:"branchId"`
	Capacity     *int    `json:"capacity" validate:"omitempty,min=0,max=500"`
	EndDate      *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	ClearEndDate bool    `json:"clearEndDate"`
}

// UpdatePatternRequest replaces the weekly pattern and regenerates the calendar.
type UpdatePatternRequest struct {
	WeeklyPattern []PatternSlot `json:"weeklyPattern" validate:"required,min=1,dive"`
}

// UpdateCourseSessionRequest changes one course session's status.
type UpdateCourseSessionRequest struct {
	Status string  `json:"status" validate:"required,course_session_status"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
	// Compensate forces or suppresses the make-up session; nil lets the status decide.
	Compensate *bool `json:"compensate"`
}

// UpdateClassSessionRequest changes one class session's status. A make-up
// session is only appended when AddCompensatory is true.
type UpdateClassSessionRequest struct {
	Status          string  `json:"status" validate:"required,class_session_status"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
	AddCompensatory *bool   `json:"addCompensatory"`
}

// AddCustomSessionRequest records an off-pattern session.
type AddCustomSessionRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime   string `json:"endTime" validate:"omitempty,hhmm"`
	Notes     string `json:"notes" validate:"omitempty,max=1000"`
}
