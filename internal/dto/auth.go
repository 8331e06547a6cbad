package dto

import "github.com/automark/automark-api/internal/models"

// LoginRequest carries username/password credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// RegisterRequest creates a new account with an explicit role.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"required,oneof=teacher student"`
}

// UserInfo is the public shape of an account.
type UserInfo struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
}

// SessionCheck reports whether the caller has a live session and who it
// belongs to.
type SessionCheck struct {
	Authenticated bool      `json:"authenticated"`
	User          *UserInfo `json:"user,omitempty"`
}

// NewUserInfo maps a user model to its public shape.
func NewUserInfo(u *models.User) *UserInfo {
	if u == nil {
		return nil
	}
	return &UserInfo{ID: u.ID, Username: u.Username, Role: u.Role}
}
