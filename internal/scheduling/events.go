package scheduling

import (
	"fmt"
	"time"
)

// Action names what happened to an entity.
type Action string

// Event actions consumed by the notification pipeline.
const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionCancel     Action = "cancel"
	ActionEndingSoon Action = "ending_soon"
)

// EntityTypeSession identifies session-level events.
const EntityTypeSession = "session"

// EntityRef identifies the entity a lifecycle operation runs against.
type EntityRef struct {
	ID   string
	Name string
}

// EventContext links a child event to its parent entity.
type EventContext struct {
	ParentEntityType string     `json:"parent_entity_type"`
	ParentEntityID   string     `json:"parent_entity_id"`
	ParentEntityName string     `json:"parent_entity_name"`
	Date             *time.Time `json:"date,omitempty"`
}

// Event is a logical change notification. Delivery is the caller's concern.
type Event struct {
	EntityType string        `json:"entity_type"`
	EntityID   string        `json:"entity_id"`
	Action     Action        `json:"action"`
	EntityName string        `json:"entity_name"`
	Context    *EventContext `json:"context,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEntityEvent builds an entity-level event.
func NewEntityEvent(entityType string, ref EntityRef, action Action, at time.Time) Event {
	return Event{
		EntityType: entityType,
		EntityID:   ref.ID,
		Action:     action,
		EntityName: ref.Name,
		OccurredAt: at.UTC(),
	}
}

// NewSessionEvent builds a session-level event carrying its parent entity.
func NewSessionEvent(parentType string, parent EntityRef, index int, session Session, action Action, at time.Time) Event {
	date := session.Date
	return Event{
		EntityType: EntityTypeSession,
		EntityID:   fmt.Sprintf("%s#%d", parent.ID, index),
		Action:     action,
		EntityName: fmt.Sprintf("%s session on %s", parent.Name, DateKey(date)),
		Context: &EventContext{
			ParentEntityType: parentType,
			ParentEntityID:   parent.ID,
			ParentEntityName: parent.Name,
			Date:             &date,
		},
		OccurredAt: at.UTC(),
	}
}
