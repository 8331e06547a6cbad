package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the server-side login record. The cookie only carries a signed
// reference to it, so deleting the record revokes the login immediately.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionClaims is the JWT payload stored in the session cookie. The token ID
// (jti) points at the Redis session record.
type SessionClaims struct {
	UserID   string   `json:"uid"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
