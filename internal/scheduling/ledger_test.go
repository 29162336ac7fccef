package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

func newCourseLedger(t *testing.T, count int) *Ledger {
	t.Helper()
	dates, err := Project(monday, monWedPattern(), count, nil)
	require.NoError(t, err)
	l := NewLedger(CourseTaxonomy, nil)
	require.True(t, l.Initialize(dates, monWedPattern()))
	return l
}

func TestLedgerInitialize(t *testing.T) {
	l := newCourseLedger(t, 4)
	require.Len(t, l.Sessions, 4)
	for _, s := range l.Sessions {
		assert.Equal(t, CourseSessionPending, s.Status)
		assert.Equal(t, "10:00", s.StartTime)
		assert.Equal(t, "12:00", s.EndTime)
		assert.False(t, s.IsCompensatory)
	}
}

func TestLedgerInitializeIsNoopWhenPopulated(t *testing.T) {
	l := newCourseLedger(t, 4)
	_, err := l.SetStatus(0, CourseSessionTaught, nil)
	require.NoError(t, err)
	before := append(SessionList(nil), l.Sessions...)

	assert.False(t, l.Initialize([]time.Time{day(21)}, monWedPattern()))
	assert.Equal(t, before, l.Sessions)
}

func TestLedgerSetStatus(t *testing.T) {
	l := newCourseLedger(t, 2)
	note := "covered chapter 3"

	prev, err := l.SetStatus(1, CourseSessionTaught, &note)
	require.NoError(t, err)
	assert.Equal(t, CourseSessionPending, prev)
	assert.Equal(t, CourseSessionTaught, l.Sessions[1].Status)
	assert.Equal(t, note, l.Sessions[1].Notes)

	_, err = l.SetStatus(2, CourseSessionTaught, nil)
	assert.Equal(t, appErrors.ErrIndexOutOfRange.Code, appErrors.FromError(err).Code)

	_, err = l.SetStatus(-1, CourseSessionTaught, nil)
	assert.Equal(t, appErrors.ErrIndexOutOfRange.Code, appErrors.FromError(err).Code)

	_, err = l.SetStatus(0, ClassSessionCompleted, nil)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestLedgerDeleteAt(t *testing.T) {
	l := newCourseLedger(t, 3)
	removed, err := l.DeleteAt(1)
	require.NoError(t, err)
	assert.Equal(t, day(2), removed.Date)
	require.Len(t, l.Sessions, 2)
	assert.Equal(t, day(7), l.Sessions[1].Date)

	_, err = l.DeleteAt(5)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIndexOutOfRange.Code))
}

func TestLedgerStatisticsAndProgress(t *testing.T) {
	l := newCourseLedger(t, 4)
	_, _ = l.SetStatus(0, CourseSessionTaught, nil)
	_, _ = l.SetStatus(1, CourseSessionAbsentOther, nil)
	l.AppendCompensatory(day(14), day(2), "make-up", monWedPattern())

	stats := l.Statistics()
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Open)
	assert.Equal(t, 1, stats.Compensatory)
	assert.Equal(t, 1, stats.ByStatus[CourseSessionTaught])
	assert.Equal(t, 1, stats.ByStatus[CourseSessionAbsentOther])
	assert.Equal(t, 0, stats.ByStatus[CourseSessionAbsentHoliday])
	assert.Equal(t, 3, stats.ByStatus[CourseSessionPending])

	assert.Equal(t, 25, l.Progress(4))
	assert.Equal(t, 0, l.Progress(0))

	end := l.EstimatedEndDate(nil)
	require.NotNil(t, end)
	assert.Equal(t, day(14), *end)
}

func TestLedgerEstimatedEndDateFallsBack(t *testing.T) {
	l := newCourseLedger(t, 1)
	_, _ = l.SetStatus(0, CourseSessionTaught, nil)
	fallback := day(30)
	assert.Equal(t, &fallback, l.EstimatedEndDate(&fallback))
}

func TestLedgerStatisticsSurviveRoundTrip(t *testing.T) {
	l := newCourseLedger(t, 4)
	_, _ = l.SetStatus(0, CourseSessionAbsentPersonal, nil)
	l.AppendCompensatory(day(14), day(0), "make-up", monWedPattern())
	l.AppendCustom(day(5), "09:00", "10:00", "extra")
	want := l.Statistics()

	raw, err := l.Sessions.Value()
	require.NoError(t, err)

	var reloaded SessionList
	require.NoError(t, reloaded.Scan(raw))
	assert.Equal(t, want, NewLedger(CourseTaxonomy, reloaded).Statistics())

	var asJSON []Session
	require.NoError(t, json.Unmarshal(raw.([]byte), &asJSON))
	require.NotNil(t, asJSON[4].OriginalDate)
	assert.Equal(t, day(0), asJSON[4].OriginalDate.UTC())
}

func TestLedgerLatestCompensatory(t *testing.T) {
	l := newCourseLedger(t, 2)
	assert.Equal(t, -1, l.LatestCompensatory())

	l.AppendCompensatory(day(14), day(0), "a", monWedPattern())
	l.AppendCompensatory(day(9), day(2), "b", monWedPattern())
	assert.Equal(t, 2, l.LatestCompensatory())

	// status does not matter, only the date
	_, _ = l.SetStatus(2, CourseSessionTaught, nil)
	assert.Equal(t, 2, l.LatestCompensatory())

	l.AppendCustom(day(21), "10:00", "12:00", "")
	assert.Equal(t, 2, l.LatestCompensatory())
}
