package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Teacher is an instructor employed by a branch. Languages and Levels list
// what the teacher is cleared to teach; an empty Levels means every level.
type Teacher struct {
	ID                    string              `db:"id" json:"id"`
	Email                 string              `db:"email" json:"email"`
	FullName              string              `db:"full_name" json:"full_name"`
	Phone                 *string             `db:"phone" json:"phone,omitempty"`
	NativeLanguage        *string             `db:"native_language" json:"native_language,omitempty"`
	Languages             pq.StringArray      `db:"languages" json:"languages"`
	Levels                pq.StringArray      `db:"levels" json:"levels"`
	KindergartenQualified bool                `db:"kindergarten_qualified" json:"kindergarten_qualified"`
	HourlyRate            decimal.NullDecimal `db:"hourly_rate" json:"hourly_rate"`
	BranchID              *string             `db:"branch_id" json:"branch_id,omitempty"`
	Active                bool                `db:"active" json:"active"`
	CreatedAt             time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time           `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers. Language and
// Level match array entries case-insensitively.
type TeacherFilter struct {
	Search       string
	BranchID     string
	Language     string
	Level        string
	Kindergarten *bool
	Active       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
