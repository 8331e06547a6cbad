package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/automark/automark-api/internal/dto"
	"github.com/automark/automark-api/internal/service"
	appErrors "github.com/automark/automark-api/pkg/errors"
	"github.com/automark/automark-api/pkg/response"
)

// CookieSettings describes the session cookie the handler issues and clears.
type CookieSettings struct {
	Name     string
	MaxAge   int
	Secure   bool
	Domain   string
	SameSite http.SameSite
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
	cookie  CookieSettings
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, cookie CookieSettings) *AuthHandler {
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return &AuthHandler{service: svc, cookie: cookie}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by username and password, setting the session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, token, h.cookie.MaxAge)
	response.JSON(c, http.StatusOK, user, "Login successful")
}

// Register godoc
// @Summary Register account
// @Description Create a teacher or student account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, user, "Registration successful")
}

// CheckSession godoc
// @Summary Check login state
// @Description Report whether the caller holds a live session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /check-session [get]
func (h *AuthHandler) CheckSession(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)

	check, err := h.service.CheckSession(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, check)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the server-side session and clear the cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	response.JSON(c, http.StatusOK, nil, "Logged out")
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}
