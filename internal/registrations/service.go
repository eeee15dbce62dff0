// Package registrations owns the registration lifecycle: self-registration,
// cancellation, reactivation, and attendee listings. Check-in and walk-in
// live in the checkin package but share this package's store.
package registrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/authz"
	"github.com/eventmaster/backend/internal/models"
	"github.com/eventmaster/backend/pkg/utils"
)

// NewTicketToken builds an opaque ticket token embedding the event and user
// identifiers plus random entropy. Tokens are generated once, when a
// registration first becomes active, and survive reactivation unchanged.
func NewTicketToken(eventID, userID uuid.UUID) string {
	return fmt.Sprintf("TKT-%s-%s-%s", eventID, userID, utils.RandomSecret(4))
}

// EventStore is the event lookup surface the lifecycle needs.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Store is the registration persistence surface. *Repository implements
// it; tests use an in-memory fake that honors the same capacity guard.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error)
	ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.Attendee, error)
	CreateActive(ctx context.Context, reg *models.Registration) error
	Reactivate(ctx context.Context, id uuid.UUID, to models.RegistrationStatus, refreshCreatedAt bool) (*models.Registration, error)
	CancelActive(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// Service implements the registration lifecycle operations.
type Service struct {
	store  Store
	events EventStore
	logger *zap.Logger
}

// NewService creates a registration service.
func NewService(store Store, events EventStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, logger: logger}
}

// Register signs the actor up for a published event. A cancelled
// registration for the pair is reactivated with a refreshed timestamp
// instead of duplicated; an active one is a conflict.
func (s *Service) Register(ctx context.Context, actor *models.User, eventID uuid.UUID) (*models.Registration, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventPublished {
		return nil, apperr.InvalidState("event is not published")
	}

	existing, err := s.store.GetByEventAndUser(ctx, eventID, actor.ID)
	switch {
	case err == nil:
		if existing.Status.Active() {
			return nil, apperr.Conflict("already registered for this event")
		}
		return s.store.Reactivate(ctx, existing.ID, models.RegistrationRegistered, true)
	case apperr.KindOf(err) != apperr.KindNotFound:
		return nil, err
	}

	reg := &models.Registration{
		EventID:     eventID,
		UserID:      actor.ID,
		Status:      models.RegistrationRegistered,
		TicketToken: NewTicketToken(eventID, actor.ID),
	}
	if err := s.store.CreateActive(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Cancel cancels the actor's own registration. A checked-in ticket cannot
// be cancelled; cancelling an already-cancelled one is an idempotent no-op.
func (s *Service) Cancel(ctx context.Context, actor *models.User, regID uuid.UUID) error {
	if err := authz.Authenticated(actor); err != nil {
		return err
	}

	reg, err := s.store.GetByID(ctx, regID)
	if err != nil {
		return err
	}
	if reg.UserID != actor.ID {
		return apperr.Forbidden("you can only cancel your own registrations")
	}
	switch reg.Status {
	case models.RegistrationCheckedIn:
		return apperr.InvalidState("cannot cancel a ticket that has already been checked in")
	case models.RegistrationCancelled:
		return nil
	}

	_, err = s.store.CancelActive(ctx, regID)
	return err
}

// ListMine returns the actor's registrations, newest first.
func (s *Service) ListMine(ctx context.Context, actor *models.User) ([]models.Registration, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, actor.ID)
}

// Attendees returns the attendee list for an event. The event's organizer
// or an admin only.
func (s *Service) Attendees(ctx context.Context, actor *models.User, eventID uuid.UUID) ([]models.Attendee, error) {
	if err := authz.RequireRole(actor, authz.OrganizerOrAdmin...); err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := authz.OwnerOrAdmin(actor, event.OrganizerID); err != nil {
		return nil, err
	}
	return s.store.ListAttendees(ctx, eventID)
}
