package dto

import "github.com/shopspring/decimal"

// CreateEnrollmentRequest links a student to a course.
type CreateEnrollmentRequest struct {
	StudentID  string           `json:"studentId" validate:"required"`
	CourseID   string           `json:"courseId" validate:"required"`
	AmountDue  *decimal.Decimal `json:"amountDue"`
	AmountPaid *decimal.Decimal `json:"amountPaid"`
}

// UpdateEnrollmentRequest changes status or payment amounts.
type UpdateEnrollmentRequest struct {
	Status     *string          `json:"status" validate:"omitempty,oneof=ACTIVE COMPLETED DROPPED"`
	AmountDue  *decimal.Decimal `json:"amountDue"`
	AmountPaid *decimal.Decimal `json:"amountPaid"`
}

// MarkAttendanceRequest records attendance for one session date.
type MarkAttendanceRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Mark string `json:"mark" validate:"required,oneof=present absent excused"`
}
