package models

import (
	"time"

	"github.com/noah-isme/langschool-api/internal/scheduling"
)

// KindergartenClass is a recurring kindergarten group.
type KindergartenClass struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	AgeGroup    string  `db:"age_group" json:"age_group"`
	Description *string `db:"description" json:"description,omitempty"`
	TeacherID   *string `db:"teacher_id" json:"teacher_id,omitempty"`
	BranchID    *string `db:"branch_id" json:"branch_id,omitempty"`
	Capacity    int     `db:"capacity" json:"capacity"`
	scheduling.Schedule
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Ref identifies the class in lifecycle events.
func (k *KindergartenClass) Ref() scheduling.EntityRef {
	return scheduling.EntityRef{ID: k.ID, Name: k.Name}
}

// KindergartenClassFilter captures list filters for classes.
type KindergartenClassFilter struct {
	Search    string
	Status    string
	AgeGroup  string
	TeacherID string
	BranchID  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
