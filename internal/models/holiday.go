package models

import (
	"time"

	"github.com/noah-isme/langschool-api/internal/scheduling"
)

// Holiday is a named inclusive date range without sessions.
type Holiday struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Range converts the record into the overlay's representation.
func (h Holiday) Range() scheduling.Holiday {
	return scheduling.Holiday{Name: h.Name, StartDate: h.StartDate, EndDate: h.EndDate}
}

// HolidayRanges converts a list of records.
func HolidayRanges(holidays []Holiday) []scheduling.Holiday {
	out := make([]scheduling.Holiday, len(holidays))
	for i, h := range holidays {
		out[i] = h.Range()
	}
	return out
}

// HolidayFilter narrows holidays to those overlapping [From, To].
type HolidayFilter struct {
	From *time.Time
	To   *time.Time
}

// HolidaySweepResult summarises one pass of the holiday overlay over all entities.
type HolidaySweepResult struct {
	Scanned  int      `json:"scanned"`
	Updated  int      `json:"updated"`
	Marked   int      `json:"marked"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}
