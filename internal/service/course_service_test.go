package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

var firstMonday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func onDay(offset int) time.Time {
	return firstMonday.AddDate(0, 0, offset)
}

func fixedClock() time.Time { return firstMonday }

func monWedSlots() []dto.PatternSlot {
	return []dto.PatternSlot{
		{Day: "Monday", StartTime: "10:00", EndTime: "12:00"},
		{Day: "Wednesday", StartTime: "10:00", EndTime: "12:00"},
	}
}

type mockCourseRepo struct {
	items     map[string]*models.Course
	updates   int
	updateErr error
	failIDs   map[string]bool
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		cp.Schedule = *c.Schedule.Clone()
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListSchedulable(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.items {
		if c.Status != scheduling.StatusCancelled && c.Status != scheduling.StatusFinished {
			cp := *c
			cp.Schedule = *c.Schedule.Clone()
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.items == nil {
		m.items = make(map[string]*models.Course)
	}
	cp := *course
	m.items[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.failIDs[course.ID] {
		return errors.New("write conflict")
	}
	m.updates++
	cp := *course
	m.items[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type stubHolidayLister struct {
	holidays []models.Holiday
}

func (s *stubHolidayLister) List(ctx context.Context, filter models.HolidayFilter) ([]models.Holiday, error) {
	return s.holidays, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []scheduling.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...scheduling.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) actions() []scheduling.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]scheduling.Action, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

func newCourseServiceForTest(repo *mockCourseRepo, holidays []models.Holiday) (*CourseService, *recordingPublisher) {
	events := &recordingPublisher{}
	svc := NewCourseService(repo, scheduling.NewCourseLifecycle(false), ScheduleDeps{
		Holidays: &stubHolidayLister{holidays: holidays},
		Events:   events,
		Clock:    fixedClock,
	}, nil, zap.NewNop())
	return svc, events
}

func createTestCourse(t *testing.T, svc *CourseService, total int) *models.Course {
	t.Helper()
	course, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Name:          "English A1",
		Level:         "A1",
		Price:         decimal.NewFromInt(200),
		WeeklyPattern: monWedSlots(),
		StartDate:     "2024-01-01",
		TotalSessions: total,
	})
	require.NoError(t, err)
	return course
}

func TestCourseServiceCreateSkipsHolidays(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, []models.Holiday{{Name: "Off", StartDate: onDay(2), EndDate: onDay(2)}})

	course := createTestCourse(t, svc, 4)
	require.Len(t, course.Sessions, 4)
	assert.Equal(t, onDay(0), course.Sessions[0].Date)
	assert.Equal(t, onDay(7), course.Sessions[1].Date)
	assert.Equal(t, onDay(9), course.Sessions[2].Date)
	assert.Equal(t, onDay(14), *course.EndDate)
	assert.NotEmpty(t, course.ID)
	assert.Contains(t, repo.items, course.ID)
	assert.Equal(t, []scheduling.Action{scheduling.ActionCreate}, events.actions())
}

func TestCourseServiceCreateRejectsBadPattern(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, nil)

	_, err := svc.Create(context.Background(), dto.CreateCourseRequest{
		Name:          "English A1",
		Level:         "A1",
		WeeklyPattern: []dto.PatternSlot{{Day: "Funday", StartTime: "10:00", EndTime: "12:00"}},
		StartDate:     "2024-01-01",
		TotalSessions: 4,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPattern.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.items)
	assert.Empty(t, events.actions())
}

func TestCourseServiceAbsenceAddsCompensation(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 4)

	updated, compensation, err := svc.UpdateSessionStatus(context.Background(), course.ID, 0, dto.UpdateCourseSessionRequest{
		Status: scheduling.CourseSessionAbsentPersonal,
	})
	require.NoError(t, err)
	require.NotNil(t, compensation)
	assert.True(t, compensation.IsCompensatory)
	assert.Equal(t, onDay(14), compensation.Date)
	require.Len(t, updated.Sessions, 5)
	assert.Equal(t, onDay(14), *updated.EndDate)

	stored := repo.items[course.ID]
	assert.Len(t, stored.Sessions, 5)
	assert.Equal(t, 1, repo.updates)
	assert.Equal(t, []scheduling.Action{scheduling.ActionCreate, scheduling.ActionCancel, scheduling.ActionUpdate}, events.actions())
}

func TestCourseServiceAbsenceWithoutCompensation(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, _ := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 4)
	no := false

	updated, compensation, err := svc.UpdateSessionStatus(context.Background(), course.ID, 1, dto.UpdateCourseSessionRequest{
		Status:     scheduling.CourseSessionAbsentOther,
		Compensate: &no,
	})
	require.NoError(t, err)
	assert.Nil(t, compensation)
	assert.Len(t, updated.Sessions, 4)
}

func TestCourseServiceUpdateSessionStatusErrors(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, _ := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 2)

	_, _, err := svc.UpdateSessionStatus(context.Background(), course.ID, 0, dto.UpdateCourseSessionRequest{Status: "Skipped"})
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)

	_, _, err = svc.UpdateSessionStatus(context.Background(), course.ID, 7, dto.UpdateCourseSessionRequest{Status: scheduling.CourseSessionTaught})
	assert.Equal(t, appErrors.ErrIndexOutOfRange.Code, appErrors.FromError(err).Code)

	_, _, err = svc.UpdateSessionStatus(context.Background(), "missing", 0, dto.UpdateCourseSessionRequest{Status: scheduling.CourseSessionTaught})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.updates)
}

func TestCourseServicePersistenceFailureSuppressesEvents(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 2)
	repo.updateErr = errors.New("connection reset")

	_, _, err := svc.UpdateSessionStatus(context.Background(), course.ID, 0, dto.UpdateCourseSessionRequest{Status: scheduling.CourseSessionTaught})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []scheduling.Action{scheduling.ActionCreate}, events.actions())
	assert.Equal(t, scheduling.CourseSessionPending, repo.items[course.ID].Sessions[0].Status)
}

func TestCourseServiceCancel(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 2)

	cancelled, err := svc.Cancel(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, cancelled.Status)
	assert.Contains(t, events.actions(), scheduling.ActionCancel)

	updates := repo.updates
	again, err := svc.Cancel(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduling.StatusCancelled, again.Status)
	assert.Equal(t, updates, repo.updates)
}

func TestCourseServiceUpdateAllowListedFields(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, _ := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 4)
	name := "  English A2 "
	end := "2024-02-01"

	updated, err := svc.Update(context.Background(), course.ID, dto.UpdateCourseRequest{Name: &name, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, "English A2", updated.Name)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), *updated.EndDate)
	assert.True(t, updated.EndDateOverride)
	assert.Len(t, updated.Sessions, 4)
}

func TestCourseServiceAddCustomSession(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, _ := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 2)

	updated, err := svc.AddCustomSession(context.Background(), course.ID, dto.AddCustomSessionRequest{
		Date:      "2024-01-20",
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	require.Len(t, updated.Sessions, 3)
	assert.True(t, updated.Sessions[2].IsCustom)
	assert.Equal(t, onDay(19), *updated.EndDate)
}

func TestCourseServiceSweepHolidaysContinuesPastFailures(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, _ := newCourseServiceForTest(repo, nil)
	first := createTestCourse(t, svc, 4)
	second := createTestCourse(t, svc, 4)
	repo.failIDs = map[string]bool{first.ID: true}

	result := &models.HolidaySweepResult{}
	err := svc.SweepHolidays(context.Background(), []scheduling.Holiday{{Name: "Off", StartDate: onDay(7), EndDate: onDay(7)}}, result)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Marked)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], first.ID)
	assert.Equal(t, scheduling.CourseSessionAbsentHoliday, repo.items[second.ID].Sessions[2].Status)
	assert.Equal(t, scheduling.CourseSessionPending, repo.items[first.ID].Sessions[2].Status)
}

func TestCourseServiceDeletePublishesEvent(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 2)

	require.NoError(t, svc.Delete(context.Background(), course.ID))
	assert.NotContains(t, repo.items, course.ID)
	assert.Equal(t, []scheduling.Action{scheduling.ActionCreate, scheduling.ActionDelete}, events.actions())

	err := svc.Delete(context.Background(), course.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseServiceApplyHolidaysTwiceIsNoop(t *testing.T) {
	repo := &mockCourseRepo{}
	holidays := &stubHolidayLister{}
	events := &recordingPublisher{}
	svc := NewCourseService(repo, scheduling.NewCourseLifecycle(false), ScheduleDeps{
		Holidays: holidays,
		Events:   events,
		Clock:    fixedClock,
	}, nil, zap.NewNop())
	course := createTestCourse(t, svc, 4)

	holidays.holidays = []models.Holiday{{Name: "Teacher Day", StartDate: onDay(7), EndDate: onDay(9)}}
	updated, marked, err := svc.ApplyHolidays(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)
	assert.Equal(t, scheduling.CourseSessionAbsentHoliday, updated.Sessions[2].Status)
	assert.Equal(t, 1, repo.updates)
	published := len(events.actions())

	again, marked, err := svc.ApplyHolidays(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.Equal(t, updated.Sessions, again.Sessions)
	assert.Equal(t, 1, repo.updates)
	assert.Len(t, events.actions(), published)
}

func TestCourseServiceSweepHolidaysTwiceIsNoop(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 4)
	holidays := []scheduling.Holiday{{Name: "Off", StartDate: onDay(7), EndDate: onDay(7)}}

	first := &models.HolidaySweepResult{}
	require.NoError(t, svc.SweepHolidays(context.Background(), holidays, first))
	assert.Equal(t, 1, first.Updated)
	assert.Equal(t, 1, first.Marked)
	published := len(events.actions())

	second := &models.HolidaySweepResult{}
	require.NoError(t, svc.SweepHolidays(context.Background(), holidays, second))
	assert.Equal(t, 1, second.Scanned)
	assert.Zero(t, second.Updated)
	assert.Zero(t, second.Marked)
	assert.Zero(t, second.Failed)
	assert.Equal(t, 1, repo.updates)
	assert.Len(t, events.actions(), published)
	assert.Equal(t, scheduling.CourseSessionAbsentHoliday, repo.items[course.ID].Sessions[2].Status)
}

func TestCourseServiceTypedPersistenceErrorPassesThrough(t *testing.T) {
	repo := &mockCourseRepo{}
	svc, events := newCourseServiceForTest(repo, nil)
	course := createTestCourse(t, svc, 2)
	storageErr := appErrors.Persistence(errors.New("deadlock detected"), "course write rejected")
	repo.updateErr = storageErr

	_, _, err := svc.UpdateSessionStatus(context.Background(), course.ID, 0, dto.UpdateCourseSessionRequest{
		Status: scheduling.CourseSessionAbsentPersonal,
	})
	require.Error(t, err)
	assert.Same(t, storageErr, appErrors.FromError(err))
	assert.Equal(t, "course write rejected", appErrors.FromError(err).Message)
	assert.Equal(t, []scheduling.Action{scheduling.ActionCreate}, events.actions())
	assert.Len(t, repo.items[course.ID].Sessions, 2)
}
