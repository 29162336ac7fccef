package scheduling

import (
	"fmt"
	"time"
)

// maxHolidaySpanDays caps how many dates a single holiday expands into.
const maxHolidaySpanDays = 366

// Holiday is an inclusive range of calendar dates without sessions.
type Holiday struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Normalize strips time-of-day and clamps EndDate to be no earlier than StartDate.
func (h Holiday) Normalize() Holiday {
	h.StartDate = DateOnly(h.StartDate)
	h.EndDate = DateOnly(h.EndDate)
	if h.EndDate.Before(h.StartDate) {
		h.EndDate = h.StartDate
	}
	return h
}

// Covers reports whether date falls within the holiday, comparing dates only.
func (h Holiday) Covers(date time.Time) bool {
	n := h.Normalize()
	day := DateOnly(date)
	return !day.Before(n.StartDate) && !day.After(n.EndDate)
}

// Dates expands the holiday into its individual calendar dates.
func (h Holiday) Dates() []time.Time {
	n := h.Normalize()
	dates := make([]time.Time, 0)
	for d := n.StartDate; !d.After(n.EndDate) && len(dates) < maxHolidaySpanDays; d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// HolidayDates expands a holiday set into projector exclusions.
func HolidayDates(holidays []Holiday) []time.Time {
	var dates []time.Time
	for _, h := range holidays {
		dates = append(dates, h.Dates()...)
	}
	return dates
}

// ApplyHolidays marks every session that has not happened and is not already
// cancelled as a holiday break when a holiday covers its date. The first
// matching holiday wins. It reports whether any session changed.
func ApplyHolidays(l *Ledger, holidays []Holiday) bool {
	return MarkHolidays(l, holidays) > 0
}

// MarkHolidays is ApplyHolidays returning the number of sessions flipped.
func MarkHolidays(l *Ledger, holidays []Holiday) int {
	if len(holidays) == 0 {
		return 0
	}
	normalized := make([]Holiday, len(holidays))
	for i, h := range holidays {
		normalized[i] = h.Normalize()
	}

	marked := 0
	for i := range l.Sessions {
		s := &l.Sessions[i]
		if s.Status == l.Taxonomy.Done || s.Status == l.Taxonomy.HolidayBreak || l.Taxonomy.IsCancellation(s.Status) {
			continue
		}
		for _, h := range normalized {
			if !h.Covers(s.Date) {
				continue
			}
			s.Status = l.Taxonomy.HolidayBreak
			s.Notes = fmt.Sprintf("Holiday: %s", h.Name)
			marked++
			break
		}
	}
	return marked
}
