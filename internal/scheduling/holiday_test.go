package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassLedger(t *testing.T, count int) *Ledger {
	t.Helper()
	dates, err := Project(monday, monWedPattern(), count, nil)
	require.NoError(t, err)
	l := NewLedger(ClassTaxonomy, nil)
	require.True(t, l.Initialize(dates, monWedPattern()))
	return l
}

func TestHolidayNormalizeClampsEnd(t *testing.T) {
	h := Holiday{Name: "Typo", StartDate: day(5).Add(13 * time.Hour), EndDate: day(3)}.Normalize()
	assert.Equal(t, day(5), h.StartDate)
	assert.Equal(t, day(5), h.EndDate)
	assert.Len(t, h.Dates(), 1)
}

func TestHolidayCoversInclusiveRange(t *testing.T) {
	h := Holiday{Name: "Break", StartDate: day(2), EndDate: day(4)}
	assert.False(t, h.Covers(day(1)))
	assert.True(t, h.Covers(day(2)))
	assert.True(t, h.Covers(day(4).Add(23*time.Hour)))
	assert.False(t, h.Covers(day(5)))
}

func TestApplyHolidaysSecondMondayOnly(t *testing.T) {
	l := newClassLedger(t, 4)
	holidays := []Holiday{{Name: "Founders Day", StartDate: day(7), EndDate: day(7)}}

	assert.True(t, ApplyHolidays(l, holidays))
	for i, s := range l.Sessions {
		if i == 2 {
			assert.Equal(t, ClassSessionHolidayBreak, s.Status)
			assert.Equal(t, "Holiday: Founders Day", s.Notes)
			continue
		}
		assert.Equal(t, ClassSessionScheduled, s.Status)
		assert.Empty(t, s.Notes)
	}

	before := append(SessionList(nil), l.Sessions...)
	assert.False(t, ApplyHolidays(l, holidays))
	assert.Equal(t, before, l.Sessions)
}

func TestApplyHolidaysSkipsDoneAndCancelled(t *testing.T) {
	l := newCourseLedger(t, 4)
	_, _ = l.SetStatus(0, CourseSessionTaught, nil)
	_, _ = l.SetStatus(1, CourseSessionAbsentPersonal, nil)
	holidays := []Holiday{{Name: "Winter", StartDate: day(0), EndDate: day(20)}}

	assert.Equal(t, 2, MarkHolidays(l, holidays))
	assert.Equal(t, CourseSessionTaught, l.Sessions[0].Status)
	assert.Equal(t, CourseSessionAbsentPersonal, l.Sessions[1].Status)
	assert.Equal(t, CourseSessionAbsentHoliday, l.Sessions[2].Status)
	assert.Equal(t, CourseSessionAbsentHoliday, l.Sessions[3].Status)
}

func TestApplyHolidaysFirstMatchWins(t *testing.T) {
	l := newClassLedger(t, 1)
	holidays := []Holiday{
		{Name: "First", StartDate: day(0), EndDate: day(1)},
		{Name: "Second", StartDate: day(0), EndDate: day(0)},
	}
	require.True(t, ApplyHolidays(l, holidays))
	assert.Equal(t, "Holiday: First", l.Sessions[0].Notes)
}

func TestApplyHolidaysEmptySet(t *testing.T) {
	l := newClassLedger(t, 2)
	assert.False(t, ApplyHolidays(l, nil))
}

func TestHolidayDates(t *testing.T) {
	dates := HolidayDates([]Holiday{
		{Name: "a", StartDate: day(0), EndDate: day(1)},
		{Name: "b", StartDate: day(7), EndDate: day(7)},
	})
	assert.Equal(t, []time.Time{day(0), day(1), day(7)}, dates)
}
