package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/eventmaster/backend/internal/models"
)

// contextUserKey is the gin context key for the resolved principal.
const contextUserKey = "currentUser"

// SetCurrentUser stores the resolved principal in the request context.
func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(contextUserKey, u)
}

// CurrentUser returns the resolved principal, or nil for unauthenticated
// requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
