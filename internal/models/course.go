package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/langschool-api/internal/scheduling"
)

// Course is a language course whose sessions follow a weekly pattern.
type Course struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Level       string          `db:"level" json:"level"`
	Description *string         `db:"description" json:"description,omitempty"`
	TeacherID   *string         `db:"teacher_id" json:"teacher_id,omitempty"`
	BranchID    *string         `db:"branch_id" json:"branch_id,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	scheduling.Schedule
	// EnrollmentCount is computed by the read query, never stored.
	EnrollmentCount int       `db:"enrollment_count" json:"enrollment_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Ref identifies the course in lifecycle events.
func (c *Course) Ref() scheduling.EntityRef {
	return scheduling.EntityRef{ID: c.ID, Name: c.Name}
}

// CourseFilter captures list filters for courses.
type CourseFilter struct {
	Search    string
	Status    string
	TeacherID string
	BranchID  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
