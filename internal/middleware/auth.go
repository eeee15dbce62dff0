package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventmaster/backend/internal/auth"
	"github.com/eventmaster/backend/internal/authz"
	"github.com/eventmaster/backend/internal/models"
	"github.com/eventmaster/backend/pkg/response"
)

// Authenticate resolves the bearer credential and stores the principal in
// the request context. Requests without a valid credential are rejected.
func Authenticate(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}
		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		auth.SetCurrentUser(c, user)
		c.Next()
	}
}

// OptionalAuthenticate resolves a credential when one is present and lets
// the request through either way. Public listings use it to apply per-role
// visibility filters.
func OptionalAuthenticate(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, err := resolver.Resolve(c.Request.Context(), token); err == nil {
				auth.SetCurrentUser(c, user)
			}
		}
		c.Next()
	}
}

// RequireRole allows only principals whose role is in the given set. Must
// run after Authenticate.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.RequireRole(auth.CurrentUser(c), roles...); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
