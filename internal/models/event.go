package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the approval lifecycle state of an event.
type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventPublished EventStatus = "published"
	EventRejected  EventStatus = "rejected"
)

// Event is a capacity-bounded activity owned by an organizer.
// RegisteredCount is a materialized view over active registrations and is
// mutated only by the registration lifecycle, never set by clients.
type Event struct {
	ID              uuid.UUID   `json:"id"`
	OrganizerID     uuid.UUID   `json:"organizer_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	StartAt         time.Time   `json:"start_at"`
	EndAt           time.Time   `json:"end_at"`
	Location        string      `json:"location"`
	Capacity        int         `json:"capacity"`
	RegisteredCount int         `json:"registered_count"`
	Status          EventStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// IsFull reports whether the event is at capacity.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// AvailableSlots returns the number of open slots.
func (e *Event) AvailableSlots() int {
	if n := e.Capacity - e.RegisteredCount; n > 0 {
		return n
	}
	return 0
}
