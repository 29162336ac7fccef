package scheduling

import "strings"

// Course session statuses.
const (
	CourseSessionPending        = "Pending"
	CourseSessionTaught         = "Taught"
	CourseSessionAbsentPersonal = "Absent (Personal Reason)"
	CourseSessionAbsentHoliday  = "Absent (Holiday)"
	CourseSessionAbsentOther    = "Absent (Other Reason)"

	// absencePrefix marks every course absence subtype.
	absencePrefix = "Absent"
)

// Kindergarten class session statuses.
const (
	ClassSessionScheduled    = "Scheduled"
	ClassSessionCompleted    = "Completed"
	ClassSessionCanceled     = "Canceled"
	ClassSessionHolidayBreak = "Holiday Break"
	ClassSessionCompensatory = "Compensatory"
)

// Taxonomy describes the status vocabulary of one entity kind.
type Taxonomy struct {
	EntityType string
	Statuses   []string

	// Pending is assigned to projected sessions.
	Pending string
	// Done marks a session that took place.
	Done string
	// HolidayBreak is written by the holiday overlay.
	HolidayBreak string
	// Compensatory is assigned to appended make-up sessions.
	Compensatory string
	// Open lists statuses that still count as upcoming.
	Open []string

	// InfersCompensation enables compensation on an inferred absence transition
	// when the caller does not state its intent.
	InfersCompensation bool
	// TracksProgress enables progress and estimated end date statistics.
	TracksProgress bool
	// Cancellable allows the externally-set Cancelled aggregate status.
	Cancellable bool

	isCancellation func(status string) bool
}

// CourseTaxonomy is the status vocabulary of language courses.
var CourseTaxonomy = Taxonomy{
	EntityType: "course",
	Statuses: []string{
		CourseSessionPending,
		CourseSessionTaught,
		CourseSessionAbsentPersonal,
		CourseSessionAbsentHoliday,
		CourseSessionAbsentOther,
	},
	Pending:            CourseSessionPending,
	Done:               CourseSessionTaught,
	HolidayBreak:       CourseSessionAbsentHoliday,
	Compensatory:       CourseSessionPending,
	Open:               []string{CourseSessionPending},
	InfersCompensation: true,
	TracksProgress:     true,
	Cancellable:        true,
	isCancellation:     IsAbsence,
}

// ClassTaxonomy is the status vocabulary of kindergarten classes.
var ClassTaxonomy = Taxonomy{
	EntityType: "kindergarten_class",
	Statuses: []string{
		ClassSessionScheduled,
		ClassSessionCompleted,
		ClassSessionCanceled,
		ClassSessionHolidayBreak,
		ClassSessionCompensatory,
	},
	Pending:      ClassSessionScheduled,
	Done:         ClassSessionCompleted,
	HolidayBreak: ClassSessionHolidayBreak,
	Compensatory: ClassSessionCompensatory,
	Open:         []string{ClassSessionScheduled, ClassSessionCompensatory},
	isCancellation: func(status string) bool {
		return status == ClassSessionCanceled || status == ClassSessionHolidayBreak
	},
}

// IsAbsence reports whether a course status is any absence subtype.
func IsAbsence(status string) bool {
	return strings.HasPrefix(status, absencePrefix)
}

// Valid reports whether status belongs to the taxonomy.
func (t Taxonomy) Valid(status string) bool {
	for _, s := range t.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsOpen reports whether a session with this status is still upcoming.
func (t Taxonomy) IsOpen(status string) bool {
	for _, s := range t.Open {
		if s == status {
			return true
		}
	}
	return false
}

// IsCancellation reports whether status means the session did not take place.
func (t Taxonomy) IsCancellation(status string) bool {
	if t.isCancellation == nil {
		return false
	}
	return t.isCancellation(status)
}
