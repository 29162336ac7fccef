package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
)

type notificationServiceMock struct {
	lastFilter models.NotificationFilter
	unread     int
	marked     []string
	ending     []models.EndingEntity
	endingAt   time.Time
	err        error
}

func (m *notificationServiceMock) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Notification{}, &models.Pagination{Page: 1, PageSize: 20}, m.err
}

func (m *notificationServiceMock) UnreadCount(ctx context.Context) (int, error) {
	return m.unread, m.err
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.marked = append(m.marked, id)
	return nil
}

func (m *notificationServiceMock) MarkAllRead(ctx context.Context) (int64, error) {
	return 3, m.err
}

func (m *notificationServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func (m *notificationServiceMock) EndingWithin(ctx context.Context, now time.Time) ([]models.EndingEntity, error) {
	m.endingAt = now
	return m.ending, m.err
}

func TestNotificationHandlerListUnreadFilter(t *testing.T) {
	mockSvc := &notificationServiceMock{}
	h := NewNotificationHandler(mockSvc, nil)

	c, w := newTestContext(http.MethodGet, "/notifications?unread=true&entityType=course&action=cancelled", "")
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.Unread)
	assert.True(t, *mockSvc.lastFilter.Unread)
	assert.Equal(t, "course", mockSvc.lastFilter.EntityType)
	assert.Equal(t, "cancelled", mockSvc.lastFilter.Action)

	c, _ = newTestContext(http.MethodGet, "/notifications?unread=maybe", "")
	h.List(c)
	assert.Nil(t, mockSvc.lastFilter.Unread)
}

func TestNotificationHandlerCounts(t *testing.T) {
	mockSvc := &notificationServiceMock{unread: 4}
	h := NewNotificationHandler(mockSvc, nil)

	c, w := newTestContext(http.MethodGet, "/notifications/unread-count", "")
	h.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread":4}`, string(decodeEnvelope(t, w).Data))

	c, w = newTestContext(http.MethodPost, "/notifications/read-all", "")
	h.MarkAllRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":3}`, string(decodeEnvelope(t, w).Data))
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	mockSvc := &notificationServiceMock{}
	h := NewNotificationHandler(mockSvc, nil)

	c, w := newTestContext(http.MethodPost, "/notifications/n1/read", "")
	c.Params = gin.Params{{Key: "id", Value: "n1"}}
	h.MarkRead(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"n1"}, mockSvc.marked)

	mockSvc.err = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	c, w = newTestContext(http.MethodPost, "/notifications/n2/read", "")
	c.Params = gin.Params{{Key: "id", Value: "n2"}}
	h.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandlerEndingSoonUsesClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mockSvc := &notificationServiceMock{ending: []models.EndingEntity{{EntityType: "course", ID: "c1", Name: "English A1", EndDate: now.AddDate(0, 0, 3)}}}
	h := NewNotificationHandler(mockSvc, nil)
	h.clock = func() time.Time { return now }

	c, w := newTestContext(http.MethodGet, "/notifications/ending-soon", "")
	h.EndingSoon(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, now, mockSvc.endingAt)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"id":"c1"`)
}

func TestNotificationHandlerInternalErrorsAreWrapped(t *testing.T) {
	mockSvc := &notificationServiceMock{err: errors.New("boom")}
	h := NewNotificationHandler(mockSvc, nil)

	c, w := newTestContext(http.MethodGet, "/notifications/unread-count", "")
	h.UnreadCount(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, appErrors.ErrInternal.Code, decodeEnvelope(t, w).Error.Code)

	mockSvc.err = appErrors.Persistence(sql.ErrConnDone, "failed to count notifications")
	c, w = newTestContext(http.MethodGet, "/notifications/unread-count", "")
	h.UnreadCount(c)
	assert.Equal(t, "PERSISTENCE_ERROR", decodeEnvelope(t, w).Error.Code)
}

func TestNotificationHandlerStreamDisabled(t *testing.T) {
	h := NewNotificationHandler(&notificationServiceMock{}, nil)

	c, w := newTestContext(http.MethodGet, "/notifications/ws", "")
	h.Stream(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
