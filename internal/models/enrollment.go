package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
)

// PaymentStatus tracks how much of the course fee has been paid.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusUnpaid  PaymentStatus = "Unpaid"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// DerivePaymentStatus compares the paid amount with the amount due.
func DerivePaymentStatus(due, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		if due.LessThanOrEqual(decimal.Zero) {
			return PaymentStatusPaid
		}
		return PaymentStatusUnpaid
	case paid.GreaterThanOrEqual(due):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}

// AttendanceMark is the attendance recorded for one session date.
type AttendanceMark string

// Attendance marks.
const (
	AttendancePresent AttendanceMark = "present"
	AttendanceAbsent  AttendanceMark = "absent"
	AttendanceExcused AttendanceMark = "excused"
)

// AttendanceMap is keyed by session date (YYYY-MM-DD). Stored as JSONB.
type AttendanceMap map[string]AttendanceMark

// Value marshals attendance to JSON.
func (m AttendanceMap) Value() (driver.Value, error) {
	if m == nil {
		m = AttendanceMap{}
	}
	data, err := json.Marshal(map[string]AttendanceMark(m))
	if err != nil {
		return nil, fmt.Errorf("marshal attendance: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON column into attendance.
func (m *AttendanceMap) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = AttendanceMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for attendance", value)
	}
	out := AttendanceMap{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal attendance: %w", err)
		}
	}
	*m = out
	return nil
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	CourseID      string           `db:"course_id" json:"course_id"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus PaymentStatus    `db:"payment_status" json:"payment_status"`
	AmountDue     decimal.Decimal  `db:"amount_due" json:"amount_due"`
	AmountPaid    decimal.Decimal  `db:"amount_paid" json:"amount_paid"`
	Attendance    AttendanceMap    `db:"attendance" json:"attendance"`
	EnrolledAt    time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and course names.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID     string
	CourseID      string
	Status        EnrollmentStatus
	PaymentStatus PaymentStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
