package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/automark/automark-api/internal/dto"
	"github.com/automark/automark-api/internal/models"
	"github.com/automark/automark-api/internal/repository"
	appErrors "github.com/automark/automark-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	createErr error
	created   []*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}}
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == "" {
		user.ID = "usr-" + user.Username
	}
	m.users[user.Username] = user
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockSessionRepo struct {
	sessions map[string]*models.Session
	saveErr  error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*models.Session{}}
}

func (m *mockSessionRepo) Save(_ context.Context, session *models.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) Find(_ context.Context, id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, appErrors.ErrSessionMiss
	}
	return session, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type mockAuditRepo struct {
	entries []*models.AuditLog
}

func (m *mockAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func newAuthService(users *mockUserRepo, sessions *mockSessionRepo, audits *mockAuditRepo) *AuthService {
	return NewAuthService(users, sessions, audits, nil, nil, AuthConfig{
		TokenSecret: "test-secret",
		SessionTTL:  time.Hour,
		Issuer:      "automark-test",
	})
}

func seedUser(t *testing.T, repo *mockUserRepo, username, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "usr-" + username, Username: username, PasswordHash: string(hash), Role: role}
	repo.users[username] = user
	return user
}

func TestAuthServiceRegister(t *testing.T) {
	users := newMockUserRepo()
	audits := &mockAuditRepo{}
	svc := newAuthService(users, newMockSessionRepo(), audits)

	info, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Password: "correct-horse",
		Role:     "student",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, models.RoleStudent, info.Role)
	require.Len(t, users.created, 1)
	assert.NotEqual(t, "correct-horse", users.created[0].PasswordHash)
	require.Len(t, audits.entries, 1)
	assert.Equal(t, models.AuditActionRegister, audits.entries[0].Action)
}

func TestAuthServiceRegisterDuplicateUsername(t *testing.T) {
	users := newMockUserRepo()
	users.createErr = repository.ErrDuplicate
	svc := newAuthService(users, newMockSessionRepo(), &mockAuditRepo{})

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Password: "correct-horse",
		Role:     "student",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateUsername.Code, appErr.Code)
}

func TestAuthServiceRegisterRejectsBadRole(t *testing.T) {
	svc := newAuthService(newMockUserRepo(), newMockSessionRepo(), &mockAuditRepo{})

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Password: "correct-horse",
		Role:     "admin",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceLoginAndCheckSession(t *testing.T) {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	svc := newAuthService(users, sessions, &mockAuditRepo{})
	seedUser(t, users, "alice", "correct-horse", models.RoleTeacher)

	token, info, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, models.RoleTeacher, info.Role)
	require.Len(t, sessions.sessions, 1)

	check, err := svc.CheckSession(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, check.Authenticated)
	require.NotNil(t, check.User)
	assert.Equal(t, "alice", check.User.Username)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(users, newMockSessionRepo(), &mockAuditRepo{})
	seedUser(t, users, "alice", "correct-horse", models.RoleStudent)

	_, _, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "wrong-password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownUserSameError(t *testing.T) {
	svc := newAuthService(newMockUserRepo(), newMockSessionRepo(), &mockAuditRepo{})

	_, _, err := svc.Login(context.Background(), dto.LoginRequest{Username: "ghost", Password: "whatever-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLogoutRevokesSession(t *testing.T) {
	users := newMockUserRepo()
	sessions := newMockSessionRepo()
	svc := newAuthService(users, sessions, &mockAuditRepo{})
	seedUser(t, users, "alice", "correct-horse", models.RoleStudent)

	token, _, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))
	assert.Empty(t, sessions.sessions)

	check, err := svc.CheckSession(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, check.Authenticated)
}

func TestAuthServiceCheckSessionGarbageToken(t *testing.T) {
	svc := newAuthService(newMockUserRepo(), newMockSessionRepo(), &mockAuditRepo{})

	check, err := svc.CheckSession(context.Background(), "not-a-token")
	require.NoError(t, err)
	assert.False(t, check.Authenticated)
	assert.Nil(t, check.User)
}

func TestAuthServiceAuthenticateFailsClosed(t *testing.T) {
	svc := newAuthService(newMockUserRepo(), newMockSessionRepo(), &mockAuditRepo{})

	_, err := svc.Authenticate(context.Background(), "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
