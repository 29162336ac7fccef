// Package scheduling generates and maintains the session calendars of courses
// and kindergarten classes. It performs no I/O: callers load an entity, run one
// or more lifecycle operations against its Schedule, then persist the result.
package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

const timeOfDayLayout = "15:04"

// PatternSlot is one weekly recurrence rule.
type PatternSlot struct {
	DayOfWeek string `json:"day_of_week" validate:"required,weekday"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" validate:"required,hhmm"`
}

// WeeklyPattern is the set of weekday/time-range rules a schedule recurs on.
type WeeklyPattern []PatternSlot

var weekdayNames = map[string]time.Weekday{
	"SUNDAY": time.Sunday, "SUN": time.Sunday,
	"MONDAY": time.Monday, "MON": time.Monday,
	"TUESDAY": time.Tuesday, "TUE": time.Tuesday,
	"WEDNESDAY": time.Wednesday, "WED": time.Wednesday,
	"THURSDAY": time.Thursday, "THU": time.Thursday,
	"FRIDAY": time.Friday, "FRI": time.Friday,
	"SATURDAY": time.Saturday, "SAT": time.Saturday,
}

// ParseWeekday accepts full or three-letter English day names in any case.
func ParseWeekday(raw string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("unknown day of week %q", raw)
	}
	return day, nil
}

// ValidTimeOfDay reports whether raw is a HH:MM clock time.
func ValidTimeOfDay(raw string) bool {
	_, err := time.Parse(timeOfDayLayout, raw)
	return err == nil
}

// Validate checks the pattern is usable for projection. Days must be unique
// so that projection is deterministic.
func (p WeeklyPattern) Validate() error {
	if len(p) == 0 {
		return appErrors.Clone(appErrors.ErrInvalidPattern, "weekly pattern is empty")
	}
	seen := make(map[time.Weekday]struct{}, len(p))
	for _, slot := range p {
		day, err := ParseWeekday(slot.DayOfWeek)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInvalidPattern.Code, appErrors.ErrInvalidPattern.Status, "weekly pattern has an unknown day")
		}
		if _, dup := seen[day]; dup {
			return appErrors.Clone(appErrors.ErrInvalidPattern, fmt.Sprintf("weekly pattern repeats %s", day))
		}
		seen[day] = struct{}{}

		start, err := time.Parse(timeOfDayLayout, slot.StartTime)
		if err != nil {
			return appErrors.Clone(appErrors.ErrInvalidPattern, fmt.Sprintf("invalid start_time %q", slot.StartTime))
		}
		end, err := time.Parse(timeOfDayLayout, slot.EndTime)
		if err != nil {
			return appErrors.Clone(appErrors.ErrInvalidPattern, fmt.Sprintf("invalid end_time %q", slot.EndTime))
		}
		if !end.After(start) {
			return appErrors.Clone(appErrors.ErrInvalidPattern, fmt.Sprintf("%s ends before it starts", day))
		}
	}
	return nil
}

// Weekdays returns the set of days present in the pattern. Unparseable days are skipped.
func (p WeeklyPattern) Weekdays() map[time.Weekday]struct{} {
	days := make(map[time.Weekday]struct{}, len(p))
	for _, slot := range p {
		if day, err := ParseWeekday(slot.DayOfWeek); err == nil {
			days[day] = struct{}{}
		}
	}
	return days
}

// SlotFor returns the rule governing the given weekday.
func (p WeeklyPattern) SlotFor(day time.Weekday) (PatternSlot, bool) {
	for _, slot := range p {
		if d, err := ParseWeekday(slot.DayOfWeek); err == nil && d == day {
			return slot, true
		}
	}
	return PatternSlot{}, false
}

// Normalized upper-cases day names so stored patterns read consistently.
func (p WeeklyPattern) Normalized() WeeklyPattern {
	out := make(WeeklyPattern, len(p))
	for i, slot := range p {
		out[i] = slot
		if day, err := ParseWeekday(slot.DayOfWeek); err == nil {
			out[i].DayOfWeek = strings.ToUpper(day.String())
		}
	}
	return out
}

// Value marshals the pattern to JSON for persistence.
func (p WeeklyPattern) Value() (driver.Value, error) {
	if p == nil {
		p = WeeklyPattern{}
	}
	data, err := json.Marshal([]PatternSlot(p))
	if err != nil {
		return nil, fmt.Errorf("marshal weekly pattern: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON column into the pattern.
func (p *WeeklyPattern) Scan(value interface{}) error {
	return scanJSON(value, p, "weekly pattern")
}

// DateOnly truncates t to its calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats the calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func scanJSON(value interface{}, dest interface{}, label string) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, label)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", label, err)
	}
	return nil
}
