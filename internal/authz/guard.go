// Package authz implements the pure role authorization guard. It performs no
// I/O: callers resolve the principal and the resource owner first.
package authz

import (
	"github.com/google/uuid"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
)

// OrganizerOrAdmin is the role set for event management operations.
var OrganizerOrAdmin = []models.Role{models.RoleOrganizer, models.RoleAdmin}

// AdminOnly is the role set for administrative operations.
var AdminOnly = []models.Role{models.RoleAdmin}

// Authenticated allows any resolved principal.
func Authenticated(u *models.User) error {
	if u == nil {
		return apperr.InvalidCredential("authentication required")
	}
	return nil
}

// RequireRole allows principals whose role is in the given set.
func RequireRole(u *models.User, roles ...models.Role) error {
	if err := Authenticated(u); err != nil {
		return err
	}
	for _, r := range roles {
		if u.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("insufficient permissions")
}

// OwnerOrAdmin allows the owner of a resource or any admin. Admin always
// short-circuits the ownership check.
func OwnerOrAdmin(u *models.User, ownerID uuid.UUID) error {
	if err := Authenticated(u); err != nil {
		return err
	}
	if u.Role == models.RoleAdmin || u.ID == ownerID {
		return nil
	}
	return apperr.Forbidden("not the resource owner")
}
