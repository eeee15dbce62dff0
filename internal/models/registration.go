package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus represents the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCheckedIn  RegistrationStatus = "checked_in"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Active reports whether the registration counts against event capacity.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationRegistered || s == RegistrationCheckedIn
}

// Registration binds a user to an event. EventTitle and EventStartAt are
// immutable snapshots captured at creation time. TicketToken is the sole
// lookup key for door verification.
type Registration struct {
	ID           uuid.UUID          `json:"id"`
	EventID      uuid.UUID          `json:"event_id"`
	UserID       uuid.UUID          `json:"user_id"`
	EventTitle   string             `json:"event_title"`
	EventStartAt time.Time          `json:"event_start_at"`
	Status       RegistrationStatus `json:"status"`
	TicketToken  string             `json:"ticket_token"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Attendee is a registration joined with user info for organizer views.
type Attendee struct {
	Registration
	UserDisplayName string `json:"user_display_name"`
	UserEmail       string `json:"user_email"`
}
