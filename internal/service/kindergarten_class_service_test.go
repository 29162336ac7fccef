package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type mockClassRepo struct {
	items   map[string]*models.KindergartenClass
	updates int
}

func (m *mockClassRepo) List(ctx context.Context, filter models.KindergartenClassFilter) ([]models.KindergartenClass, int, error) {
	out := make([]models.KindergartenClass, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.KindergartenClass, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		cp.Schedule = *c.Schedule.Clone()
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ListSchedulable(ctx context.Context) ([]models.KindergartenClass, error) {
	var out []models.KindergartenClass
	for _, c := range m.items {
		cp := *c
		cp.Schedule = *c.Schedule.Clone()
		out = append(out, cp)
	}
	return out, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.KindergartenClass) error {
	if m.items == nil {
		m.items = make(map[string]*models.KindergartenClass)
	}
	cp := *class
	m.items[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.KindergartenClass) error {
	m.updates++
	cp := *class
	m.items[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func newClassServiceForTest(repo *mockClassRepo) (*KindergartenClassService, *recordingPublisher) {
	events := &recordingPublisher{}
	svc := NewKindergartenClassService(repo, scheduling.NewClassLifecycle(false), ScheduleDeps{
		Events: events,
		Clock:  fixedClock,
	}, nil, zap.NewNop())
	return svc, events
}

func createTestClass(t *testing.T, svc *KindergartenClassService) *models.KindergartenClass {
	t.Helper()
	class, err := svc.Create(context.Background(), dto.CreateKindergartenClassRequest{
		Name:          "Sunflowers",
		AgeGroup:      "4-5",
		Capacity:      12,
		WeeklyPattern: monWedSlots(),
		StartDate:     "2024-01-01",
		TotalSessions: 4,
	})
	require.NoError(t, err)
	return class
}

func TestKindergartenClassServiceCreate(t *testing.T) {
	repo := &mockClassRepo{}
	svc, events := newClassServiceForTest(repo)

	class := createTestClass(t, svc)
	require.Len(t, class.Sessions, 4)
	assert.Equal(t, scheduling.ClassSessionScheduled, class.Sessions[0].Status)
	assert.Nil(t, class.Progress)
	require.Len(t, events.events, 1)
	assert.Equal(t, "kindergarten_class", events.events[0].EntityType)
}

func TestKindergartenClassServiceCompensatesOnlyWhenAsked(t *testing.T) {
	repo := &mockClassRepo{}
	svc, _ := newClassServiceForTest(repo)
	class := createTestClass(t, svc)

	updated, compensation, err := svc.UpdateSessionStatus(context.Background(), class.ID, 1, dto.UpdateClassSessionRequest{
		Status: scheduling.ClassSessionCanceled,
	})
	require.NoError(t, err)
	assert.Nil(t, compensation)
	assert.Len(t, updated.Sessions, 4)

	yes := true
	updated, compensation, err = svc.UpdateSessionStatus(context.Background(), class.ID, 2, dto.UpdateClassSessionRequest{
		Status:          scheduling.ClassSessionCanceled,
		AddCompensatory: &yes,
	})
	require.NoError(t, err)
	require.NotNil(t, compensation)
	assert.Equal(t, scheduling.ClassSessionCompensatory, compensation.Status)
	assert.Len(t, updated.Sessions, 5)
	assert.Equal(t, 2, repo.updates)
}

func TestKindergartenClassServiceRejectsCourseStatus(t *testing.T) {
	repo := &mockClassRepo{}
	svc, _ := newClassServiceForTest(repo)
	class := createTestClass(t, svc)

	_, _, err := svc.UpdateSessionStatus(context.Background(), class.ID, 0, dto.UpdateClassSessionRequest{
		Status: scheduling.CourseSessionTaught,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.updates)
}

func TestKindergartenClassServiceApplyHolidays(t *testing.T) {
	repo := &mockClassRepo{}
	svc, _ := newClassServiceForTest(repo)
	class := createTestClass(t, svc)
	svc.support.deps.Holidays = &stubHolidayLister{holidays: []models.Holiday{{Name: "Teacher Day", StartDate: onDay(7), EndDate: onDay(7)}}}

	updated, marked, err := svc.ApplyHolidays(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	assert.Equal(t, scheduling.ClassSessionHolidayBreak, updated.Sessions[2].Status)

	_, marked, err = svc.ApplyHolidays(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.Equal(t, 1, repo.updates)
}
