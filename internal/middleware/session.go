package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/service"
	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/response"
)

// ContextUserKey is the gin context key storing the resolved session.
const ContextUserKey = "currentUser"

// Session protects routes by requiring a live login session behind the
// cookie. The token alone is not enough: the server-side record must still
// exist, so logout revokes access immediately.
func Session(authService *service.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		session, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, session)
		c.Next()
	}
}
