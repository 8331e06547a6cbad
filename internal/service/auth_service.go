package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/automark/automark-api/internal/dto"
	"github.com/automark/automark-api/internal/models"
	appErrors "github.com/automark/automark-api/pkg/errors"
)

type authUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type authSessionRepository interface {
	Save(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type authAuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuthConfig defines configuration for login sessions.
type AuthConfig struct {
	TokenSecret string
	SessionTTL  time.Duration
	Issuer      string
}

// AuthService provides registration and session use cases. The browser
// cookie carries a signed token whose ID points at the server-side session
// record, so logout revokes access immediately.
type AuthService struct {
	users     authUserRepository
	sessions  authSessionRepository
	audits    authAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions authSessionRepository, audits authAuditRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 7 * 24 * time.Hour
	}
	return &AuthService{users: users, sessions: sessions, audits: audits, validator: validate, logger: logger, config: config}
}

// Register creates a new account. Username uniqueness is enforced by the
// database, so concurrent registrations cannot race past the check.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	role := models.UserRole(req.Role)
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be teacher or student")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, appErrors.ErrDuplicateUsername
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, user.ID, models.AuditActionRegister, "account created")

	return dto.NewUserInfo(user), nil
}

// Login verifies credentials and issues a session token for the cookie.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (string, *dto.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, appErrors.ErrInvalidCredentials
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, appErrors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	token, err := s.signSessionToken(session)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}

	s.audit(ctx, user.ID, models.AuditActionLogin, "login")

	return token, dto.NewUserInfo(user), nil
}

// CheckSession resolves a cookie token to its live session, if any. An
// absent, expired or revoked session is not an error: the caller just sees
// authenticated false.
func (s *AuthService) CheckSession(ctx context.Context, token string) (*dto.SessionCheck, error) {
	if token == "" {
		return &dto.SessionCheck{Authenticated: false}, nil
	}

	session, err := s.resolveSession(ctx, token)
	if err != nil {
		return &dto.SessionCheck{Authenticated: false}, nil
	}

	return &dto.SessionCheck{
		Authenticated: true,
		User: &dto.UserInfo{
			ID:       session.UserID,
			Username: session.Username,
			Role:     session.Role,
		},
	}, nil
}

// Authenticate resolves a cookie token to its session for request guarding.
// Unlike CheckSession it fails closed.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, appErrors.ErrUnauthorized
	}
	session, err := s.resolveSession(ctx, token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired or revoked")
	}
	return session, nil
}

// Logout revokes the session behind the token. Revoking an already dead
// session succeeds silently.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parseSessionToken(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke session")
	}

	s.audit(ctx, claims.UserID, models.AuditActionLogout, "logout")

	return nil
}

func (s *AuthService) resolveSession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parseSessionToken(token)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Find(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return nil, appErrors.ErrSessionMiss
	}
	return session, nil
}

func (s *AuthService) signSessionToken(session *models.Session) (string, error) {
	claims := &models.SessionClaims{
		UserID:   session.UserID,
		Username: session.Username,
		Role:     session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    s.config.Issuer,
			Subject:   session.UserID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}

func (s *AuthService) parseSessionToken(token string) (*models.SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &models.SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*models.SessionClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}
	return claims, nil
}

func (s *AuthService) audit(ctx context.Context, userID, action, detail string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Create(ctx, &models.AuditLog{UserID: userID, Action: action, Detail: detail}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
