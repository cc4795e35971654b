// Package event defines the immutable journal entries a tab's history is
// made of. The ordered event sequence for a tab id is the tab's durable
// representation; events are appended, never rewritten.
package event

import (
	"strings"
	"time"
)

// Type identifies the type of a tab event.
type Type string

const (
	// TypeTabOpened records the opening of a tab on a table.
	TypeTabOpened Type = "tab.opened"
	// TypeItemsOrdered records menu items ordered against an open tab.
	TypeItemsOrdered Type = "tab.items_ordered"
	// TypeItemsServed records outstanding items handed to the table.
	TypeItemsServed Type = "tab.items_served"
	// TypeItemsCancelled records outstanding items removed from the order.
	TypeItemsCancelled Type = "tab.items_cancelled"
	// TypeTabClosed records the settling and closing of a tab.
	TypeTabClosed Type = "tab.closed"
)

// Event represents an immutable entry in a tab's journal.
type Event struct {
	// TabID is the tab this event belongs to.
	TabID string
	// Seq is the event sequence number within the tab (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// Timestamp is when the event occurred, UTC with millisecond precision.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// ActorID is the waiter that triggered the event, if any.
	ActorID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	switch t {
	case TypeTabOpened, TypeItemsOrdered, TypeItemsServed, TypeItemsCancelled, TypeTabClosed:
		return true
	}
	return false
}

// Types returns all journal event types, used by registries and tests.
func Types() []Type {
	return []Type{
		TypeTabOpened,
		TypeItemsOrdered,
		TypeItemsServed,
		TypeItemsCancelled,
		TypeTabClosed,
	}
}

// NormalizeTimestamp truncates to the persisted millisecond precision in UTC,
// defaulting to now for events that do not set time.
func NormalizeTimestamp(ts time.Time) time.Time {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Truncate(time.Millisecond)
}

// ParseType converts a stored string into a Type.
func ParseType(value string) (Type, bool) {
	t := Type(strings.TrimSpace(value))
	return t, t.IsValid()
}
