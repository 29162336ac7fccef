package scheduling

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

// Session is one occurrence in a course or class calendar.
type Session struct {
	Date           time.Time  `json:"date"`
	StartTime      string     `json:"start_time,omitempty"`
	EndTime        string     `json:"end_time,omitempty"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	IsCompensatory bool       `json:"is_compensatory"`
	IsCustom       bool       `json:"is_custom"`
	OriginalDate   *time.Time `json:"original_date,omitempty"`
}

// SessionList is the persisted form of a ledger.
type SessionList []Session

// Value marshals the sessions to JSON for persistence.
func (l SessionList) Value() (driver.Value, error) {
	if l == nil {
		l = SessionList{}
	}
	data, err := json.Marshal([]Session(l))
	if err != nil {
		return nil, fmt.Errorf("marshal sessions: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON column into the sessions.
func (l *SessionList) Scan(value interface{}) error {
	return scanJSON(value, l, "sessions")
}

// Statistics are per-status session counts derived from a ledger.
type Statistics struct {
	Total        int            `json:"total"`
	Open         int            `json:"open"`
	Compensatory int            `json:"compensatory"`
	Custom       int            `json:"custom"`
	ByStatus     map[string]int `json:"by_status"`
}

// Ledger owns the ordered session records of one entity. Order is insertion
// order, not necessarily chronological.
type Ledger struct {
	Taxonomy Taxonomy
	Sessions SessionList
}

// NewLedger wraps sessions with the entity's status vocabulary.
func NewLedger(taxonomy Taxonomy, sessions SessionList) *Ledger {
	return &Ledger{Taxonomy: taxonomy, Sessions: sessions}
}

// Initialize fills an empty ledger with one pending session per date. A ledger
// that already holds sessions is left untouched and false is returned.
func (l *Ledger) Initialize(dates []time.Time, pattern WeeklyPattern) bool {
	if len(l.Sessions) > 0 {
		return false
	}
	sessions := make(SessionList, 0, len(dates))
	for _, date := range dates {
		sessions = append(sessions, l.pendingSession(date, pattern))
	}
	l.Sessions = sessions
	return true
}

// SetStatus updates one session and returns its previous status.
func (l *Ledger) SetStatus(index int, status string, notes *string) (string, error) {
	if err := l.checkIndex(index); err != nil {
		return "", err
	}
	if !l.Taxonomy.Valid(status) {
		return "", appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("%q is not a %s session status", status, l.Taxonomy.EntityType))
	}
	previous := l.Sessions[index].Status
	l.Sessions[index].Status = status
	if notes != nil {
		l.Sessions[index].Notes = *notes
	}
	return previous, nil
}

// AppendCompensatory adds a make-up session replacing the session held on original.
func (l *Ledger) AppendCompensatory(date, original time.Time, note string, pattern WeeklyPattern) Session {
	session := l.pendingSession(date, pattern)
	session.Status = l.Taxonomy.Compensatory
	session.IsCompensatory = true
	orig := DateOnly(original)
	session.OriginalDate = &orig
	session.Notes = note
	l.Sessions = append(l.Sessions, session)
	return session
}

// AppendCustom records an unscheduled session that already took place.
func (l *Ledger) AppendCustom(date time.Time, startTime, endTime, notes string) Session {
	session := Session{
		Date:      DateOnly(date),
		StartTime: startTime,
		EndTime:   endTime,
		Status:    l.Taxonomy.Done,
		Notes:     notes,
		IsCustom:  true,
	}
	l.Sessions = append(l.Sessions, session)
	return session
}

// DeleteAt removes a session outright.
func (l *Ledger) DeleteAt(index int) (Session, error) {
	if err := l.checkIndex(index); err != nil {
		return Session{}, err
	}
	removed := l.Sessions[index]
	l.Sessions = append(l.Sessions[:index:index], l.Sessions[index+1:]...)
	return removed, nil
}

// LatestCompensatory returns the index of the most recently dated
// auto-generated compensatory session, whatever its status, or -1.
func (l *Ledger) LatestCompensatory() int {
	found := -1
	for i, s := range l.Sessions {
		if !s.IsCompensatory || s.IsCustom {
			continue
		}
		if found == -1 || s.Date.After(l.Sessions[found].Date) {
			found = i
		}
	}
	return found
}

// LastDate returns the chronologically latest session date.
func (l *Ledger) LastDate() (time.Time, bool) {
	var last time.Time
	for i, s := range l.Sessions {
		if i == 0 || s.Date.After(last) {
			last = s.Date
		}
	}
	return last, len(l.Sessions) > 0
}

// Statistics recounts every status category. All taxonomy statuses are present.
func (l *Ledger) Statistics() Statistics {
	stats := Statistics{ByStatus: make(map[string]int, len(l.Taxonomy.Statuses))}
	for _, status := range l.Taxonomy.Statuses {
		stats.ByStatus[status] = 0
	}
	for _, s := range l.Sessions {
		stats.Total++
		stats.ByStatus[s.Status]++
		if l.Taxonomy.IsOpen(s.Status) {
			stats.Open++
		}
		if s.IsCompensatory {
			stats.Compensatory++
		}
		if s.IsCustom {
			stats.Custom++
		}
	}
	return stats
}

// Progress is the taught share of the planned session count, as a rounded percentage.
func (l *Ledger) Progress(totalSessions int) int {
	if totalSessions <= 0 {
		return 0
	}
	done := 0
	for _, s := range l.Sessions {
		if s.Status == l.Taxonomy.Done {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(totalSessions) * 100))
}

// EstimatedEndDate is the latest still-open session date, or fallback when none are open.
func (l *Ledger) EstimatedEndDate(fallback *time.Time) *time.Time {
	var latest *time.Time
	for i := range l.Sessions {
		s := l.Sessions[i]
		if !l.Taxonomy.IsOpen(s.Status) {
			continue
		}
		if latest == nil || s.Date.After(*latest) {
			d := s.Date
			latest = &d
		}
	}
	if latest == nil {
		return fallback
	}
	return latest
}

func (l *Ledger) pendingSession(date time.Time, pattern WeeklyPattern) Session {
	day := DateOnly(date)
	session := Session{Date: day, Status: l.Taxonomy.Pending}
	if slot, ok := pattern.SlotFor(day.Weekday()); ok {
		session.StartTime = slot.StartTime
		session.EndTime = slot.EndTime
	}
	return session
}

func (l *Ledger) checkIndex(index int) error {
	if index < 0 || index >= len(l.Sessions) {
		return appErrors.Clone(appErrors.ErrIndexOutOfRange, fmt.Sprintf("session index %d out of range (%d sessions)", index, len(l.Sessions)))
	}
	return nil
}
