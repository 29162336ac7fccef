package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/langschool-api/internal/models"
)

const notificationColumns = "id, entity_type, entity_id, action, entity_name, context, read, read_at, created_at"

// NotificationRepository stores lifecycle notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, entity_type, entity_id, action, entity_name, context, read, read_at, created_at)
		VALUES (:id, :entity_type, :entity_id, :action, :entity_name, :context, :read, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns notifications newest first along with total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	base := "FROM notifications WHERE 1=1"
	var where whereBuilder
	if filter.Unread != nil {
		where.add("read = $%d", !*filter.Unread)
	}
	if filter.EntityType != "" {
		where.add("entity_type = $%d", filter.EntityType)
	}
	if filter.Action != "" {
		where.add("action = $%d", filter.Action)
	}
	base += where.clause()

	query := "SELECT " + notificationColumns + " " + base +
		orderAndPage("", "DESC", nil, "created_at", filter.Page, filter.PageSize)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns the number of unread notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications WHERE read = FALSE"); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

// MarkRead flags one notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE, read_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res)
}

// MarkAllRead flags every unread notification and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE, read_at = $1 WHERE read = FALSE`, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes a notification.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return requireAffected(res)
}

// LastCreatedAt returns when the entity last received the given action, or nil.
func (r *NotificationRepository) LastCreatedAt(ctx context.Context, entityType, entityID, action string) (*time.Time, error) {
	const query = `SELECT created_at FROM notifications WHERE entity_type = $1 AND entity_id = $2 AND action = $3
		ORDER BY created_at DESC LIMIT 1`
	var ts time.Time
	if err := r.db.GetContext(ctx, &ts, query, entityType, entityID, action); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last notification: %w", err)
	}
	return &ts, nil
}
