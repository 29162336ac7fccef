package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/langschool-api/internal/models"
	appErrors "github.com/noah-isme/langschool-api/pkg/errors"
	"github.com/noah-isme/langschool-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
	EndingWithin(ctx context.Context, now time.Time) ([]models.EndingEntity, error)
}

type notificationStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

// NotificationHandler exposes the notification feed and its websocket stream.
type NotificationHandler struct {
	notifications notificationService
	stream        notificationStream
	clock         func() time.Time
}

// NewNotificationHandler constructs the handler. stream may be nil when
// websocket push is disabled.
func NewNotificationHandler(notifications notificationService, stream notificationStream) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		stream:        stream,
		clock:         func() time.Time { return time.Now().UTC() },
	}
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param entityType query string false "course or kindergarten_class"
// @Param action query string false "created, updated, deleted, cancelled, ending_soon"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	filter := models.NotificationFilter{
		Unread:     boolQuery(c, "unread"),
		EntityType: c.Query("entityType"),
		Action:     c.Query("action"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.notifications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}

// EndingSoon godoc
// @Summary Courses and classes ending within the configured window
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/ending-soon [get]
func (h *NotificationHandler) EndingSoon(c *gin.Context) {
	items, err := h.notifications.EndingWithin(c.Request.Context(), h.clock())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// MarkRead godoc
// @Summary Mark notification read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": n}, nil)
}

// Delete godoc
// @Summary Delete notification
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Live notification stream (websocket)
// @Tags Notifications
// @Success 101
// @Router /notifications/ws [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.stream == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "notification stream disabled"))
		return
	}
	// The upgrader has already written a response when ServeWS fails.
	_ = h.stream.ServeWS(c.Writer, c.Request)
}
