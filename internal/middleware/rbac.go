package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/models"
	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes that sit behind
// the Session middleware.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		sessionValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		session, ok := sessionValue.(*models.Session)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[session.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
