package scheduling

import (
	"time"

	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

// maxProjectionDays bounds the day walk so a pattern whose days are all
// excluded fails instead of spinning.
const maxProjectionDays = 366 * 20

// Project walks calendar days forward from start (inclusive) and returns the
// first count dates whose weekday is in the pattern and which are not excluded.
func Project(start time.Time, pattern WeeklyPattern, count int, excluded []time.Time) ([]time.Time, error) {
	days := pattern.Weekdays()
	if len(days) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidPattern, "weekly pattern has no usable days")
	}
	if count <= 0 {
		return []time.Time{}, nil
	}

	skip := make(map[string]struct{}, len(excluded))
	for _, d := range excluded {
		skip[DateKey(DateOnly(d))] = struct{}{}
	}

	dates := make([]time.Time, 0, count)
	day := DateOnly(start)
	for walked := 0; len(dates) < count; walked++ {
		if walked > maxProjectionDays {
			return nil, appErrors.Clone(appErrors.ErrInvalidPattern, "weekly pattern cannot be satisfied")
		}
		if _, ok := days[day.Weekday()]; ok {
			if _, blocked := skip[DateKey(day)]; !blocked {
				dates = append(dates, day)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return dates, nil
}

// NextPatternDate returns the first day strictly after anchor whose weekday is in the pattern.
func NextPatternDate(anchor time.Time, pattern WeeklyPattern) (time.Time, error) {
	days := pattern.Weekdays()
	if len(days) == 0 {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidPattern, "weekly pattern has no usable days")
	}
	day := DateOnly(anchor)
	for i := 0; i < 7; i++ {
		day = day.AddDate(0, 0, 1)
		if _, ok := days[day.Weekday()]; ok {
			return day, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrInvalidPattern, "weekly pattern has no usable days")
}
