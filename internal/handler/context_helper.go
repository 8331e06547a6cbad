package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/middleware"
	"github.com/automark/automark-api/internal/models"
)

// currentSession returns the session placed in context by the Session
// middleware.
func currentSession(c *gin.Context) (*models.Session, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*models.Session)
	return session, ok
}
