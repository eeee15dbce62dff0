package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
)

// UserStore is the persistence surface the resolver needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateProvisioned(ctx context.Context, id uuid.UUID, email, displayName string, role models.Role) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
}

// Resolver turns a bearer credential into a stored user. Externally issued
// tokens are tried first when an external issuer is configured; locally
// issued HS256 tokens are the fallback.
type Resolver struct {
	users    UserStore
	local    *JWTService
	external *ExternalVerifier
	logger   *zap.Logger
}

// NewResolver creates a Resolver. external may be nil when no external
// issuer is configured.
func NewResolver(users UserStore, local *JWTService, external *ExternalVerifier, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{users: users, local: local, external: external, logger: logger}
}

// Resolve verifies the credential and returns the matching user.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if r.external != nil {
		if claims, err := r.external.Verify(ctx, token); err == nil {
			return r.EnsureUser(ctx, claims)
		}
	}

	claims, err := r.local.Validate(token)
	if err != nil {
		return nil, err
	}
	user, err := r.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidCredential("user not found")
		}
		return nil, err
	}
	return user, nil
}

// EnsureUser maps verified external claims to a stored user. Unknown
// subjects carrying group claims are provisioned on the fly; a stored role
// that disagrees with the claim-derived role is overwritten, because the
// external identity provider is authoritative.
func (r *Resolver) EnsureUser(ctx context.Context, claims *ExternalClaims) (*models.User, error) {
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.InvalidCredential("malformed token subject")
	}

	user, err := r.users.GetByID(ctx, subject)
	switch {
	case err == nil:
		if claims.Groups == nil {
			return user, nil
		}
		derived := models.RoleFromGroups(claims.Groups)
		if derived == user.Role {
			return user, nil
		}
		updated, err := r.users.UpdateRole(ctx, subject, derived)
		if err != nil {
			return nil, err
		}
		r.logger.Info("synced user role from external claim",
			zap.String("user_id", subject.String()),
			zap.String("from", string(user.Role)),
			zap.String("to", string(derived)))
		return updated, nil

	case apperr.KindOf(err) == apperr.KindNotFound:
		if claims.Groups == nil {
			return nil, apperr.InvalidCredential("user not found")
		}
		return r.provision(ctx, subject, claims)

	default:
		return nil, err
	}
}

func (r *Resolver) provision(ctx context.Context, subject uuid.UUID, claims *ExternalClaims) (*models.User, error) {
	email := claims.Email
	if email == "" {
		email = subject.String() + "@users.external"
	}
	displayName := email
	if at := strings.Index(email, "@"); at > 0 {
		displayName = email[:at]
	}
	role := models.RoleFromGroups(claims.Groups)

	user, err := r.users.CreateProvisioned(ctx, subject, email, displayName, role)
	if err != nil {
		return nil, err
	}
	r.logger.Info("provisioned user from external token",
		zap.String("user_id", subject.String()),
		zap.String("role", string(role)))
	return user, nil
}
