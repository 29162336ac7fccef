package scheduling

import (
	"fmt"
)

// CompensationPolicy decides whether a status change earns a make-up session
// and where that session lands.
type CompensationPolicy struct {
	Taxonomy Taxonomy
}

// ShouldCompensate applies the caller's explicit intent when given, and the
// taxonomy's inferred rule otherwise. Courses infer compensation when a session
// moves from a non-absence into an absence; classes only compensate on request.
func (p CompensationPolicy) ShouldCompensate(previous, next string, requested *bool) bool {
	if requested != nil {
		return *requested
	}
	if !p.Taxonomy.InfersCompensation {
		return false
	}
	return !p.Taxonomy.IsCancellation(previous) && p.Taxonomy.IsCancellation(next)
}

// MaybeCompensate appends one compensatory session for the session at
// changedIndex when the policy triggers. The new session is dated on the first
// pattern day after the chronologically latest session in the ledger.
func (p CompensationPolicy) MaybeCompensate(l *Ledger, changedIndex int, previous, next string, requested *bool, pattern WeeklyPattern) (*Session, error) {
	if !p.ShouldCompensate(previous, next, requested) {
		return nil, nil
	}
	if err := l.checkIndex(changedIndex); err != nil {
		return nil, err
	}
	anchor, _ := l.LastDate()
	date, err := NextPatternDate(anchor, pattern)
	if err != nil {
		return nil, err
	}
	original := l.Sessions[changedIndex].Date
	note := fmt.Sprintf("Compensation for %s session on %s", next, DateKey(original))
	session := l.AppendCompensatory(date, original, note, pattern)
	return &session, nil
}
