package scheduling

import (
	"time"

	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

// AggregateStatus is the derived lifecycle state of a course or class.
type AggregateStatus string

// Aggregate statuses. Cancelled is set externally and never derived.
const (
	StatusUpcoming  AggregateStatus = "Upcoming"
	StatusActive    AggregateStatus = "Active"
	StatusFinished  AggregateStatus = "Finished"
	StatusCancelled AggregateStatus = "Cancelled"
)

// Schedule is the scheduling state shared by courses and classes. Statistics,
// Progress and EstimatedEndDate are derived and recomputed by Refresh.
type Schedule struct {
	WeeklyPattern   WeeklyPattern   `db:"weekly_pattern" json:"weekly_pattern"`
	StartDate       time.Time       `db:"start_date" json:"start_date"`
	EndDate         *time.Time      `db:"end_date" json:"end_date,omitempty"`
	EndDateOverride bool            `db:"end_date_override" json:"end_date_override"`
	TotalSessions   int             `db:"total_sessions" json:"total_sessions"`
	Sessions        SessionList     `db:"sessions" json:"sessions"`
	Status          AggregateStatus `db:"status" json:"status"`

	Statistics       Statistics `db:"-" json:"statistics"`
	Progress         *int       `db:"-" json:"progress,omitempty"`
	EstimatedEndDate *time.Time `db:"-" json:"estimated_end_date,omitempty"`
}

// Clone returns a deep copy so lifecycle operations can fail without side effects.
func (s *Schedule) Clone() *Schedule {
	out := *s
	out.WeeklyPattern = append(WeeklyPattern(nil), s.WeeklyPattern...)
	if s.EndDate != nil {
		d := *s.EndDate
		out.EndDate = &d
	}
	if s.EstimatedEndDate != nil {
		d := *s.EstimatedEndDate
		out.EstimatedEndDate = &d
	}
	if s.Progress != nil {
		p := *s.Progress
		out.Progress = &p
	}
	if s.Sessions != nil {
		out.Sessions = make(SessionList, len(s.Sessions))
		for i, session := range s.Sessions {
			if session.OriginalDate != nil {
				d := *session.OriginalDate
				session.OriginalDate = &d
			}
			out.Sessions[i] = session
		}
	}
	if s.Statistics.ByStatus != nil {
		out.Statistics.ByStatus = make(map[string]int, len(s.Statistics.ByStatus))
		for k, v := range s.Statistics.ByStatus {
			out.Statistics.ByStatus[k] = v
		}
	}
	return &out
}

// CreateInput carries the attributes needed to generate a new schedule.
type CreateInput struct {
	WeeklyPattern WeeklyPattern
	StartDate     time.Time
	TotalSessions int
	// EndDate pins the end date instead of deriving it from the last session.
	EndDate *time.Time
	// Holidays are skipped by projection.
	Holidays []Holiday
}

// StatusChange is a session status update request.
type StatusChange struct {
	Status string
	Notes  *string
	// Compensate overrides the inferred compensation decision when set.
	Compensate *bool
}

// CustomSession describes a session that took place outside the pattern.
type CustomSession struct {
	Date      time.Time
	StartTime string
	EndTime   string
	Notes     string
}

// Result is the outcome of one committed lifecycle operation.
type Result struct {
	Schedule *Schedule
	Events   []Event
	// Changed is false when the operation left the schedule as it was.
	Changed bool
	// Generated counts projected sessions.
	Generated int
	// Compensation is the make-up session appended by the operation, if any.
	Compensation *Session
	// HolidayMarks counts sessions flipped to a holiday break.
	HolidayMarks int
	// Removed is the session deleted by the operation, if any.
	Removed *Session
}

// Lifecycle orchestrates projection, the ledger, compensation and the holiday
// overlay for one entity kind. Every operation works on a copy of the schedule
// and returns the new state only when all steps succeed.
type Lifecycle struct {
	Taxonomy Taxonomy
	Policy   CompensationPolicy
	// TrackTotalSessions keeps TotalSessions equal to the ledger length after
	// appends and deletes instead of treating it as a fixed planning target.
	TrackTotalSessions bool
}

// NewLifecycle builds a lifecycle for the given taxonomy.
func NewLifecycle(taxonomy Taxonomy, trackTotalSessions bool) *Lifecycle {
	return &Lifecycle{
		Taxonomy:           taxonomy,
		Policy:             CompensationPolicy{Taxonomy: taxonomy},
		TrackTotalSessions: trackTotalSessions,
	}
}

// NewCourseLifecycle builds the lifecycle used by courses.
func NewCourseLifecycle(trackTotalSessions bool) *Lifecycle {
	return NewLifecycle(CourseTaxonomy, trackTotalSessions)
}

// NewClassLifecycle builds the lifecycle used by kindergarten classes.
func NewClassLifecycle(trackTotalSessions bool) *Lifecycle {
	return NewLifecycle(ClassTaxonomy, trackTotalSessions)
}

// Create validates the input, projects the calendar and derives status.
func (lc *Lifecycle) Create(ref EntityRef, in CreateInput, now time.Time) (*Result, error) {
	if err := in.WeeklyPattern.Validate(); err != nil {
		return nil, err
	}
	if in.TotalSessions < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "total_sessions must be at least 1")
	}
	if in.StartDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date is required")
	}

	pattern := in.WeeklyPattern.Normalized()
	dates, err := Project(in.StartDate, pattern, in.TotalSessions, HolidayDates(in.Holidays))
	if err != nil {
		return nil, err
	}

	s := &Schedule{
		WeeklyPattern: pattern,
		StartDate:     DateOnly(in.StartDate),
		TotalSessions: in.TotalSessions,
	}
	if in.EndDate != nil {
		end := DateOnly(*in.EndDate)
		s.EndDate = &end
		s.EndDateOverride = true
	}
	ledger := lc.ledger(s)
	ledger.Initialize(dates, pattern)
	s.Sessions = ledger.Sessions
	lc.Refresh(s, now)

	return &Result{
		Schedule:  s,
		Events:    []Event{NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionCreate, now)},
		Changed:   true,
		Generated: len(dates),
	}, nil
}

// RegenerateSchedule re-projects the calendar from a new pattern. Sessions on
// a date that is still projected keep their status, notes and flags; the rest
// are dropped and new dates start pending.
func (lc *Lifecycle) RegenerateSchedule(ref EntityRef, current *Schedule, pattern WeeklyPattern, holidays []Holiday, now time.Time) (*Result, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	s := current.Clone()
	pattern = pattern.Normalized()

	count := s.TotalSessions
	if count < 1 {
		count = len(s.Sessions)
	}
	dates, err := Project(s.StartDate, pattern, count, HolidayDates(holidays))
	if err != nil {
		return nil, err
	}

	existing := make(map[string]Session, len(s.Sessions))
	for _, session := range s.Sessions {
		key := DateKey(session.Date)
		if _, ok := existing[key]; !ok {
			existing[key] = session
		}
	}

	fresh := NewLedger(lc.Taxonomy, nil)
	fresh.Initialize(dates, pattern)
	for i, session := range fresh.Sessions {
		prior, ok := existing[DateKey(session.Date)]
		if !ok {
			continue
		}
		prior.StartTime = session.StartTime
		prior.EndTime = session.EndTime
		fresh.Sessions[i] = prior
	}

	s.WeeklyPattern = pattern
	s.Sessions = fresh.Sessions
	if lc.TrackTotalSessions {
		s.TotalSessions = len(s.Sessions)
	}
	lc.Refresh(s, now)

	return &Result{
		Schedule:  s,
		Events:    []Event{NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionUpdate, now)},
		Changed:   true,
		Generated: len(dates),
	}, nil
}

// UpdateSessionStatus sets one session's status, appends a compensatory
// session when the policy calls for it, and rederives the aggregate. A move
// into a cancelled state also yields a session-level cancel event.
func (lc *Lifecycle) UpdateSessionStatus(ref EntityRef, current *Schedule, index int, change StatusChange, now time.Time) (*Result, error) {
	s := current.Clone()
	ledger := lc.ledger(s)

	previous, err := ledger.SetStatus(index, change.Status, change.Notes)
	if err != nil {
		return nil, err
	}
	compensation, err := lc.Policy.MaybeCompensate(ledger, index, previous, change.Status, change.Compensate, s.WeeklyPattern)
	if err != nil {
		return nil, err
	}

	s.Sessions = ledger.Sessions
	if compensation != nil {
		lc.extendEndDate(s, compensation.Date)
		if lc.TrackTotalSessions {
			s.TotalSessions = len(s.Sessions)
		}
	}
	lc.Refresh(s, now)

	events := make([]Event, 0, 2)
	if !lc.Taxonomy.IsCancellation(previous) && lc.Taxonomy.IsCancellation(change.Status) {
		events = append(events, NewSessionEvent(lc.Taxonomy.EntityType, ref, index, s.Sessions[index], ActionCancel, now))
	}
	events = append(events, NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionUpdate, now))

	return &Result{
		Schedule:     s,
		Events:       events,
		Changed:      true,
		Compensation: compensation,
	}, nil
}

// AddCustomSession records an off-pattern session that already took place
// and drops the most recently dated auto-generated compensatory session,
// which the custom session stands in for.
func (lc *Lifecycle) AddCustomSession(ref EntityRef, current *Schedule, custom CustomSession, now time.Time) (*Result, error) {
	if custom.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	s := current.Clone()
	ledger := lc.ledger(s)

	var removed *Session
	if idx := ledger.LatestCompensatory(); idx >= 0 {
		session, err := ledger.DeleteAt(idx)
		if err != nil {
			return nil, err
		}
		removed = &session
	}
	added := ledger.AppendCustom(custom.Date, custom.StartTime, custom.EndTime, custom.Notes)

	s.Sessions = ledger.Sessions
	lc.extendEndDate(s, added.Date)
	if lc.TrackTotalSessions {
		s.TotalSessions = len(s.Sessions)
	}
	lc.Refresh(s, now)

	return &Result{
		Schedule: s,
		Events:   []Event{NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionUpdate, now)},
		Changed:  true,
		Removed:  removed,
	}, nil
}

// ApplyHolidaySet runs the holiday overlay. Result.Changed tells the caller
// whether persisting is needed; no event is produced when nothing changed.
func (lc *Lifecycle) ApplyHolidaySet(ref EntityRef, current *Schedule, holidays []Holiday, now time.Time) (*Result, error) {
	s := current.Clone()
	ledger := lc.ledger(s)

	marked := MarkHolidays(ledger, holidays)
	if marked == 0 {
		return &Result{Schedule: current}, nil
	}
	s.Sessions = ledger.Sessions
	lc.Refresh(s, now)

	return &Result{
		Schedule:     s,
		Events:       []Event{NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionUpdate, now)},
		Changed:      true,
		HolidayMarks: marked,
	}, nil
}

// DeleteSessionAt hard-deletes one session. TotalSessions is left alone
// unless the lifecycle tracks the ledger length.
func (lc *Lifecycle) DeleteSessionAt(ref EntityRef, current *Schedule, index int, now time.Time) (*Result, error) {
	s := current.Clone()
	ledger := lc.ledger(s)

	removed, err := ledger.DeleteAt(index)
	if err != nil {
		return nil, err
	}
	s.Sessions = ledger.Sessions
	if lc.TrackTotalSessions {
		s.TotalSessions = len(s.Sessions)
	}
	lc.Refresh(s, now)

	return &Result{
		Schedule: s,
		Events:   []Event{NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionUpdate, now)},
		Changed:  true,
		Removed:  &removed,
	}, nil
}

// Cancel sets the terminal Cancelled status on entities that support it.
func (lc *Lifecycle) Cancel(ref EntityRef, current *Schedule, now time.Time) (*Result, error) {
	if !lc.Taxonomy.Cancellable {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, lc.Taxonomy.EntityType+" cannot be cancelled")
	}
	if current.Status == StatusCancelled {
		return &Result{Schedule: current}, nil
	}
	s := current.Clone()
	s.Status = StatusCancelled
	lc.Refresh(s, now)

	return &Result{
		Schedule: s,
		Events: []Event{
			NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionCancel, now),
			NewEntityEvent(lc.Taxonomy.EntityType, ref, ActionUpdate, now),
		},
		Changed: true,
	}, nil
}

// SetEndDate pins the end date, or releases it back to the last session date when end is nil.
func (lc *Lifecycle) SetEndDate(current *Schedule, end *time.Time, now time.Time) *Schedule {
	s := current.Clone()
	if end == nil {
		s.EndDateOverride = false
		s.EndDate = nil
	} else {
		d := DateOnly(*end)
		s.EndDate = &d
		s.EndDateOverride = true
	}
	lc.Refresh(s, now)
	return s
}

// DeriveStatus computes the aggregate status from the ledger.
func (lc *Lifecycle) DeriveStatus(s *Schedule, now time.Time) AggregateStatus {
	if lc.Taxonomy.Cancellable && s.Status == StatusCancelled {
		return StatusCancelled
	}
	if len(s.Sessions) == 0 {
		return StatusUpcoming
	}
	open := 0
	for _, session := range s.Sessions {
		if lc.Taxonomy.IsOpen(session.Status) {
			open++
		}
	}
	if open == 0 {
		return StatusFinished
	}
	if !DateOnly(s.StartDate).After(DateOnly(now)) {
		return StatusActive
	}
	return StatusUpcoming
}

// Refresh recomputes every derived field in place. It is a pure function of
// the ledger, pattern, dates and now.
func (lc *Lifecycle) Refresh(s *Schedule, now time.Time) {
	ledger := lc.ledger(s)
	if !s.EndDateOverride {
		if last, ok := ledger.LastDate(); ok {
			s.EndDate = &last
		} else {
			s.EndDate = nil
		}
	}
	s.Statistics = ledger.Statistics()
	if lc.Taxonomy.TracksProgress {
		progress := ledger.Progress(s.TotalSessions)
		s.Progress = &progress
		s.EstimatedEndDate = ledger.EstimatedEndDate(s.EndDate)
	} else {
		s.Progress = nil
		s.EstimatedEndDate = nil
	}
	s.Status = lc.DeriveStatus(s, now)
}

// EndsWithin reports whether a running schedule ends between now and now+window.
func (lc *Lifecycle) EndsWithin(s *Schedule, now time.Time, window time.Duration) bool {
	if s.EndDate == nil || s.Status == StatusFinished || s.Status == StatusCancelled {
		return false
	}
	today := DateOnly(now)
	end := DateOnly(*s.EndDate)
	return !end.Before(today) && !end.After(today.Add(window))
}

func (lc *Lifecycle) ledger(s *Schedule) *Ledger {
	return NewLedger(lc.Taxonomy, s.Sessions)
}

// extendEndDate moves a pinned end date forward when a new session lands past it.
func (lc *Lifecycle) extendEndDate(s *Schedule, date time.Time) {
	if !s.EndDateOverride || s.EndDate == nil {
		return
	}
	if date.After(*s.EndDate) {
		d := DateOnly(date)
		s.EndDate = &d
	}
}
