package sync

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncEvent
// ---------------------------------------------------------------------------

// EventKind identifies a lifecycle event emitted during a reconciliation pass
type EventKind string

const (
	// EventStarted marks the start of a reconciliation pass
	EventStarted EventKind = "STARTED"
	// EventItemUpdated marks a successfully applied action
	EventItemUpdated EventKind = "ITEM_UPDATED"
	// EventConflict marks ambiguous drift surfaced for manual review
	EventConflict EventKind = "CONFLICT"
	// EventActionFailed marks a permanently failed action
	EventActionFailed EventKind = "ACTION_FAILED"
	// EventCompleted marks the end of a reconciliation pass
	EventCompleted EventKind = "COMPLETED"
)

// IsValid returns true if the event kind is valid
func (k EventKind) IsValid() bool {
	switch k {
	case EventStarted, EventItemUpdated, EventConflict, EventActionFailed, EventCompleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of EventKind
func (k EventKind) String() string {
	return string(k)
}

// SyncEvent is an ephemeral status event published to the in-process bus.
// Events are retained only in a bounded in-memory ring buffer for late
// subscribers; they are never persisted to durable storage by the core.
type SyncEvent struct {
	// ID is a unique event identifier
	ID uuid.UUID `json:"id"`
	// Kind is the event kind
	Kind EventKind `json:"kind"`
	// Timestamp is when the event was produced
	Timestamp time.Time `json:"timestamp"`
	// Platform is the platform the event concerns, if any
	Platform PlatformCode `json:"platform,omitempty"`
	// SKU is the sku the event concerns, if any
	SKU string `json:"sku,omitempty"`
	// OrderID is the external order ID the event concerns, if any
	OrderID string `json:"order_id,omitempty"`
	// Action is the action kind the event concerns, if any
	Action ActionKind `json:"action,omitempty"`
	// Detail is a human-readable description
	Detail string `json:"detail,omitempty"`
}

// NewSyncEvent creates an event of the given kind with detail text
func NewSyncEvent(kind EventKind, detail string) SyncEvent {
	return SyncEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Timestamp: time.Now(),
		Detail:    detail,
	}
}

// EventPublisher is the port the engine publishes lifecycle events through
type EventPublisher interface {
	Publish(event SyncEvent)
}
