// Package checkin implements on-site ticket verification and walk-in
// registration. Business-outcome negatives (already checked in, ticket
// cancelled) are successful calls carrying a negative Result, safe to show
// door staff; authorization and state errors stay in the error taxonomy.
package checkin

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/authz"
	"github.com/eventmaster/backend/internal/models"
	"github.com/eventmaster/backend/internal/registrations"
	"github.com/eventmaster/backend/pkg/utils"
)

// Result is the door-staff-facing outcome of a verification or walk-in.
type Result struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Registration *models.Registration `json:"registration,omitempty"`
}

// EventStore is the event lookup surface check-in needs.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// RegistrationStore is the registration transition surface check-in needs.
// *registrations.Repository implements it.
type RegistrationStore interface {
	GetByTicket(ctx context.Context, token string) (*models.Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error)
	CreateActive(ctx context.Context, reg *models.Registration) error
	Reactivate(ctx context.Context, id uuid.UUID, to models.RegistrationStatus, refreshCreatedAt bool) (*models.Registration, error)
	CheckIn(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// UserStore looks up and provisions walk-in attendees. *auth.Repository
// implements it.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, displayName string, role models.Role) (*models.User, error)
}

// Service implements verification and walk-in registration.
type Service struct {
	regs   RegistrationStore
	events EventStore
	users  UserStore
	logger *zap.Logger
}

// NewService creates a check-in service.
func NewService(regs RegistrationStore, events EventStore, users UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{regs: regs, events: events, users: users, logger: logger}
}

// Verify looks up a ticket and checks the attendee in. Only the event's
// organizer or an admin may verify, and only for published events.
func (s *Service) Verify(ctx context.Context, actor *models.User, ticket string) (*Result, error) {
	if err := authz.RequireRole(actor, authz.OrganizerOrAdmin...); err != nil {
		return nil, err
	}

	reg, err := s.regs.GetByTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if err := authz.OwnerOrAdmin(actor, event.OrganizerID); err != nil {
		return nil, err
	}
	if event.Status != models.EventPublished {
		return nil, apperr.InvalidState("event is not published")
	}

	switch reg.Status {
	case models.RegistrationCheckedIn:
		return &Result{Success: false, Message: "already checked in", Registration: reg}, nil
	case models.RegistrationCancelled:
		return &Result{Success: false, Message: "ticket was cancelled", Registration: reg}, nil
	}

	updated, err := s.regs.CheckIn(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket verified",
		zap.String("registration_id", updated.ID.String()),
		zap.String("event_id", event.ID.String()),
		zap.String("verifier_id", actor.ID.String()))
	return &Result{Success: true, Message: "check-in successful", Registration: updated}, nil
}

// WalkIn registers an attendee at the door and checks them in immediately.
// The attendee is looked up by email and provisioned as a member with an
// unusable random secret when absent.
func (s *Service) WalkIn(ctx context.Context, actor *models.User, eventID uuid.UUID, email, displayName string) (*Result, error) {
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
	if event.Status != models.EventPublished {
		return nil, apperr.InvalidState("event is not published")
	}

	user, err := s.ensureAttendee(ctx, email, displayName)
	if err != nil {
		return nil, err
	}

	reg, err := s.regs.GetByEventAndUser(ctx, eventID, user.ID)
	switch {
	case err == nil:
		switch reg.Status {
		case models.RegistrationCheckedIn:
			return &Result{Success: false, Message: "already checked in", Registration: reg}, nil
		case models.RegistrationCancelled:
			updated, err := s.regs.Reactivate(ctx, reg.ID, models.RegistrationCheckedIn, false)
			if err != nil {
				return nil, err
			}
			return &Result{Success: true, Message: "existing registration checked in", Registration: updated}, nil
		default: // registered
			updated, err := s.regs.CheckIn(ctx, reg.ID)
			if err != nil {
				return nil, err
			}
			return &Result{Success: true, Message: "existing registration checked in", Registration: updated}, nil
		}
	case apperr.KindOf(err) != apperr.KindNotFound:
		return nil, err
	}

	newReg := &models.Registration{
		EventID:     eventID,
		UserID:      user.ID,
		Status:      models.RegistrationCheckedIn,
		TicketToken: registrations.NewTicketToken(eventID, user.ID),
	}
	if err := s.regs.CreateActive(ctx, newReg); err != nil {
		return nil, err
	}
	s.logger.Info("walk-in registered",
		zap.String("registration_id", newReg.ID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("staff_id", actor.ID.String()))
	return &Result{Success: true, Message: "walk-in registered and checked in", Registration: newReg}, nil
}

func (s *Service) ensureAttendee(ctx context.Context, email, displayName string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	if displayName == "" {
		displayName = email
		if at := strings.Index(email, "@"); at > 0 {
			displayName = email[:at]
		}
	}
	hash, err := utils.HashPassword(utils.RandomSecret(16))
	if err != nil {
		return nil, apperr.Storage("hash walk-in secret", err)
	}
	created, err := s.users.Create(ctx, email, hash, displayName, models.RoleMember)
	if err != nil {
		return nil, err
	}
	s.logger.Info("walk-in attendee provisioned", zap.String("user_id", created.ID.String()))
	return created, nil
}
