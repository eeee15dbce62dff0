// Package events owns the event entity: creation, updates, the approval
// workflow, and role-scoped visibility.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/authz"
	"github.com/eventmaster/backend/internal/models"
)

// Store is the persistence surface the service needs. *Repository
// implements it; tests use an in-memory fake.
type Store interface {
	Insert(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]models.Event, int, error)
	Decide(ctx context.Context, eventID, adminID uuid.UUID, action models.ApprovalAction, to models.EventStatus) (*models.Event, error)
}

// ApprovalLimiter throttles approve/reject actions per admin key.
type ApprovalLimiter interface {
	Enforce(key string) error
}

// CreateInput carries the client-settable fields for a new event.
type CreateInput struct {
	Title       string
	Description string
	StartAt     time.Time
	EndAt       time.Time
	Location    string
	Capacity    int
}

// UpdateInput carries a partial patch; nil fields are left unchanged.
// Capacity and registered_count are never client-patchable.
type UpdateInput struct {
	Title       *string
	Description *string
	StartAt     *time.Time
	EndAt       *time.Time
	Location    *string
}

// Service implements the event registry operations.
type Service struct {
	store   Store
	limiter ApprovalLimiter
	logger  *zap.Logger
}

// NewService creates an event service.
func NewService(store Store, limiter ApprovalLimiter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, limiter: limiter, logger: logger}
}

// Create makes a new event. Organizer-created events await approval; an
// admin creator auto-approves to published.
func (s *Service) Create(ctx context.Context, actor *models.User, in CreateInput) (*models.Event, error) {
	if err := authz.RequireRole(actor, authz.OrganizerOrAdmin...); err != nil {
		return nil, err
	}
	if !in.EndAt.After(in.StartAt) {
		return nil, apperr.InvalidInput("event end time must be after start time")
	}
	if in.Capacity < 1 {
		return nil, apperr.InvalidInput("capacity must be at least 1")
	}

	status := models.EventPending
	if actor.Role == models.RoleAdmin {
		status = models.EventPublished
	}

	e := &models.Event{
		OrganizerID: actor.ID,
		Title:       in.Title,
		Description: in.Description,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
		Location:    in.Location,
		Capacity:    in.Capacity,
		Status:      status,
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Info("event created",
		zap.String("event_id", e.ID.String()),
		zap.String("organizer_id", actor.ID.String()),
		zap.String("status", string(e.Status)))
	return e, nil
}

// Get returns an event by ID. Published events are visible to anyone; a
// pending or rejected event is visible only to its owner or an admin and
// reads as not found to everyone else.
func (s *Service) Get(ctx context.Context, viewer *models.User, id uuid.UUID) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != models.EventPublished {
		if err := authz.OwnerOrAdmin(viewer, e.OrganizerID); err != nil {
			return nil, apperr.NotFound("event not found")
		}
	}
	return e, nil
}

// Update patches an event. Owner or admin only; the merged start/end pair
// is re-validated.
func (s *Service) Update(ctx context.Context, actor *models.User, id uuid.UUID, in UpdateInput) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.OwnerOrAdmin(actor, e.OrganizerID); err != nil {
		return nil, err
	}

	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.StartAt != nil {
		e.StartAt = *in.StartAt
	}
	if in.EndAt != nil {
		e.EndAt = *in.EndAt
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if !e.EndAt.After(e.StartAt) {
		return nil, apperr.InvalidInput("event end time must be after start time")
	}

	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an event and cascades to its registrations.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.OwnerOrAdmin(actor, e.OrganizerID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("event deleted",
		zap.String("event_id", id.String()),
		zap.String("actor_id", actor.ID.String()))
	return nil
}

// List returns events visible to the viewer. A nil viewer is anonymous.
func (s *Service) List(ctx context.Context, viewer *models.User, limit, offset int) ([]models.Event, int, error) {
	f := ListFilter{Visibility: VisibilityPublished, Limit: limit, Offset: offset}
	if viewer != nil {
		switch viewer.Role {
		case models.RoleAdmin:
			f.Visibility = VisibilityAll
		case models.RoleOrganizer:
			f.Visibility = VisibilityPublishedOrOwned
			f.OwnerID = viewer.ID
		}
	}
	return s.store.List(ctx, f)
}

// Managed returns the events an organizer owns, or everything for admin.
func (s *Service) Managed(ctx context.Context, actor *models.User, limit, offset int) ([]models.Event, int, error) {
	if err := authz.RequireRole(actor, authz.OrganizerOrAdmin...); err != nil {
		return nil, 0, err
	}
	f := ListFilter{Limit: limit, Offset: offset}
	if actor.Role == models.RoleAdmin {
		f.Visibility = VisibilityAll
	} else {
		f.OwnedOnly = true
		f.OwnerID = actor.ID
	}
	return s.store.List(ctx, f)
}

// Pending returns the admin review queue.
func (s *Service) Pending(ctx context.Context, actor *models.User, limit, offset int) ([]models.Event, int, error) {
	if err := authz.RequireRole(actor, authz.AdminOnly...); err != nil {
		return nil, 0, err
	}
	return s.store.List(ctx, ListFilter{
		Visibility: VisibilityAll,
		Status:     models.EventPending,
		Limit:      limit,
		Offset:     offset,
	})
}

// Approve publishes a pending event.
func (s *Service) Approve(ctx context.Context, actor *models.User, eventID uuid.UUID) (*models.Event, error) {
	return s.decide(ctx, actor, eventID, models.ApprovalApprove, models.EventPublished)
}

// Reject declines a pending event.
func (s *Service) Reject(ctx context.Context, actor *models.User, eventID uuid.UUID) (*models.Event, error) {
	return s.decide(ctx, actor, eventID, models.ApprovalReject, models.EventRejected)
}

func (s *Service) decide(ctx context.Context, actor *models.User, eventID uuid.UUID, action models.ApprovalAction, to models.EventStatus) (*models.Event, error) {
	if err := authz.RequireRole(actor, authz.AdminOnly...); err != nil {
		return nil, err
	}
	if s.limiter != nil {
		if err := s.limiter.Enforce(actor.ID.String()); err != nil {
			return nil, err
		}
	}

	e, err := s.store.Decide(ctx, eventID, actor.ID, action, to)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event approval action",
		zap.String("event_id", eventID.String()),
		zap.String("admin_id", actor.ID.String()),
		zap.String("action", string(action)))
	return e, nil
}
