package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/langschool-api/internal/scheduling"
)

// Notification is a persisted lifecycle event.
type Notification struct {
	ID         string               `db:"id" json:"id"`
	EntityType string               `db:"entity_type" json:"entity_type"`
	EntityID   string               `db:"entity_id" json:"entity_id"`
	Action     string               `db:"action" json:"action"`
	EntityName string               `db:"entity_name" json:"entity_name"`
	Context    *NotificationContext `db:"context" json:"context,omitempty"`
	Read       bool                 `db:"read" json:"read"`
	ReadAt     *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedAt  time.Time            `db:"created_at" json:"created_at"`
}

// NotificationContext links a session event to its parent entity. Stored as JSONB.
type NotificationContext struct {
	ParentEntityType string     `json:"parent_entity_type"`
	ParentEntityID   string     `json:"parent_entity_id"`
	ParentEntityName string     `json:"parent_entity_name"`
	Date             *time.Time `json:"date,omitempty"`
}

// Value marshals the context to JSON.
func (c NotificationContext) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal notification context: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON column into the context.
func (c *NotificationContext) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*c = NotificationContext{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for notification context", value)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal notification context: %w", err)
	}
	return nil
}

// NotificationFromEvent maps a lifecycle event onto a record.
func NotificationFromEvent(evt scheduling.Event) *Notification {
	n := &Notification{
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Action:     string(evt.Action),
		EntityName: evt.EntityName,
		CreatedAt:  evt.OccurredAt,
	}
	if evt.Context != nil {
		n.Context = &NotificationContext{
			ParentEntityType: evt.Context.ParentEntityType,
			ParentEntityID:   evt.Context.ParentEntityID,
			ParentEntityName: evt.Context.ParentEntityName,
			Date:             evt.Context.Date,
		}
	}
	return n
}

// NotificationFilter captures list filters for notifications.
type NotificationFilter struct {
	Unread     *bool
	EntityType string
	Action     string
	Page       int
	PageSize   int
}

// EndingEntity is a course or class whose end date falls inside a sweep window.
type EndingEntity struct {
	EntityType string    `db:"entity_type" json:"entity_type"`
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
}
