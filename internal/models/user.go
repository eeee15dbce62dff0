package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user role on the platform.
type Role string

const (
	RoleMember    Role = "member"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// Precedence returns the total order of roles: admin > organizer > member.
// Unknown roles rank below member.
func (r Role) Precedence() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleOrganizer:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// ParseRole returns the Role for s, or false if s is not a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// RoleFromGroups derives a role from identity-provider group memberships.
// The highest-precedence recognized group wins; unrecognized groups are
// ignored; no recognized group defaults to member.
func RoleFromGroups(groups []string) Role {
	role := RoleMember
	for _, g := range groups {
		if r, ok := ParseRole(g); ok && r.Precedence() > role.Precedence() {
			role = r
		}
	}
	return role
}

// User represents a platform user.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"-"` // bcrypt hash; empty for externally provisioned identities
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}
