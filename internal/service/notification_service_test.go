package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/scheduling"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type mockNotificationRepo struct {
	mu        sync.Mutex
	items     []*models.Notification
	createErr error
	last      map[string]time.Time
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.items = append(m.items, n)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, 0, len(m.items))
	for _, n := range m.items {
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			n.Read = true
			n.ReadAt = &at
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, n := range m.items {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	return sql.ErrNoRows
}

func (m *mockNotificationRepo) LastCreatedAt(ctx context.Context, entityType, entityID, action string) (*time.Time, error) {
	if ts, ok := m.last[entityID]; ok {
		return &ts, nil
	}
	return nil, nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type flakySink struct {
	mu        sync.Mutex
	failures  int
	delivered []*models.Notification
	attempts  int
}

func (s *flakySink) Name() string { return "test" }

func (s *flakySink) Deliver(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.delivered = append(s.delivered, n)
	return nil
}

func (s *flakySink) deliveredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

type stubEndingSource struct {
	entities []models.EndingEntity
	from, to time.Time
}

func (s *stubEndingSource) FindEndingBetween(ctx context.Context, from, to time.Time) ([]models.EndingEntity, error) {
	s.from, s.to = from, to
	return s.entities, nil
}

func counterValue(reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func sessionCancelEvent() scheduling.Event {
	session := scheduling.Session{Date: onDay(2), Status: scheduling.CourseSessionAbsentPersonal}
	return scheduling.NewSessionEvent("course", scheduling.EntityRef{ID: "c1", Name: "English A1"}, 1, session, scheduling.ActionCancel, firstMonday)
}

func TestNotificationServicePublishDeliversInlineWithoutWorkers(t *testing.T) {
	repo := &mockNotificationRepo{}
	sink := &flakySink{}
	svc := NewNotificationService(repo, NotificationConfig{}, nil, zap.NewNop(), sink)

	svc.Publish(context.Background(), sessionCancelEvent())

	require.Equal(t, 1, repo.count())
	stored := repo.items[0]
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, scheduling.EntityTypeSession, stored.EntityType)
	assert.Equal(t, "c1#1", stored.EntityID)
	require.NotNil(t, stored.Context)
	assert.Equal(t, "English A1", stored.Context.ParentEntityName)
	assert.Equal(t, 1, sink.deliveredCount())
}

func TestNotificationServiceRetriesFailedDelivery(t *testing.T) {
	repo := &mockNotificationRepo{}
	sink := &flakySink{failures: 2}
	metrics := NewMetricsService()
	svc := NewNotificationService(repo, NotificationConfig{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}, metrics, zap.NewNop(), sink)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Publish(context.Background(), sessionCancelEvent())

	success := map[string]string{"channel": "test", "result": "success"}
	require.Eventually(t, func() bool {
		return counterValue(metrics.Registry(), "notifications_dispatched_total", success) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sink.deliveredCount())
	assert.Equal(t, float64(2), counterValue(metrics.Registry(), "notifications_dispatched_total", map[string]string{"channel": "test", "result": "error"}))
}

func TestNotificationServicePersistFailureSkipsDelivery(t *testing.T) {
	repo := &mockNotificationRepo{createErr: errors.New("db down")}
	sink := &flakySink{}
	svc := NewNotificationService(repo, NotificationConfig{}, nil, zap.NewNop(), sink)

	svc.Publish(context.Background(), sessionCancelEvent())
	assert.Zero(t, sink.attempts)
}

func TestNotificationServiceSweepEndingSoonHonoursCooldown(t *testing.T) {
	now := onDay(10)
	repo := &mockNotificationRepo{last: map[string]time.Time{
		"recent": now.Add(-48 * time.Hour),
		"stale":  now.Add(-8 * 24 * time.Hour),
	}}
	source := &stubEndingSource{entities: []models.EndingEntity{
		{EntityType: "course", ID: "fresh", Name: "English A1", EndDate: onDay(12)},
		{EntityType: "course", ID: "recent", Name: "English B1", EndDate: onDay(13)},
		{EntityType: "kindergarten_class", ID: "stale", Name: "Sunflowers", EndDate: onDay(14)},
	}}
	svc := NewNotificationService(repo, NotificationConfig{}, nil, zap.NewNop()).WithEndingSoonSources(source)

	result, err := svc.SweepEndingSoon(context.Background(), now.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 2, result.Raised)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, now, source.from)
	assert.Equal(t, onDay(17), source.to)

	require.Equal(t, 2, repo.count())
	for _, n := range repo.items {
		assert.Equal(t, string(scheduling.ActionEndingSoon), n.Action)
		require.NotNil(t, n.Context)
		require.NotNil(t, n.Context.Date)
	}
}

func TestNotificationServiceSweepEndingSoonCountsUnsavedAsFailed(t *testing.T) {
	now := onDay(10)
	repo := &mockNotificationRepo{createErr: errors.New("db down")}
	sink := &flakySink{}
	source := &stubEndingSource{entities: []models.EndingEntity{
		{EntityType: "course", ID: "c1", Name: "English A1", EndDate: onDay(12)},
	}}
	svc := NewNotificationService(repo, NotificationConfig{}, nil, zap.NewNop(), sink).WithEndingSoonSources(source)

	result, err := svc.SweepEndingSoon(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Zero(t, result.Raised)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, sink.attempts)
}

func TestNotificationServiceReadState(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, NotificationConfig{}, nil, zap.NewNop())
	svc.Publish(context.Background(), sessionCancelEvent(), sessionCancelEvent())

	count, err := svc.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, svc.MarkRead(context.Background(), repo.items[0].ID))
	err = svc.MarkRead(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	changed, err := svc.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	items, page, err := svc.List(context.Background(), models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, page.TotalCount)
}
