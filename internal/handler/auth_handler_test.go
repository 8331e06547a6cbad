package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAccount(t *testing.T, env *testEnv, username, password, role string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password, "role": role})
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := env.do(req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func loginAccount(t *testing.T, env *testEnv, username, password string) *http.Cookie {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := env.do(req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	return cookie
}

func TestRegisterLoginCheckSessionLogout(t *testing.T) {
	env := newTestEnv(t.TempDir())

	registerAccount(t, env, "alice", "correct-horse", "teacher")
	cookie := loginAccount(t, env, "alice", "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/api/check-session", nil)
	req.AddCookie(cookie)
	resp := env.do(req)
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"authenticated":true`)
	assert.Contains(t, body, `"alice"`)
	assert.Contains(t, body, `"teacher"`)

	req = httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	resp = env.do(req)
	require.Equal(t, http.StatusOK, resp.Code)
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// the session is revoked server-side; the old token no longer works
	req = httptest.NewRequest(http.MethodGet, "/api/check-session", nil)
	req.AddCookie(cookie)
	resp = env.do(req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"authenticated":false`)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t.TempDir())

	registerAccount(t, env, "alice", "correct-horse", "student")

	payload, _ := json.Marshal(map[string]string{"username": "alice", "password": "other-password", "role": "teacher"})
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := env.do(req)
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "DUPLICATE_USERNAME")
	assert.Contains(t, resp.Body.String(), `"success":false`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t.TempDir())
	registerAccount(t, env, "alice", "correct-horse", "student")

	payload, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong-password"})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := env.do(req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_CREDENTIALS")
}

func TestCheckSessionWithoutCookie(t *testing.T) {
	env := newTestEnv(t.TempDir())

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/check-session", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"authenticated":false`)
}

func TestLogoutWithoutCookieSucceeds(t *testing.T) {
	env := newTestEnv(t.TempDir())

	resp := env.do(httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	env := newTestEnv(t.TempDir())

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/exams", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRoleGuardBlocksWrongRole(t *testing.T) {
	env := newTestEnv(t.TempDir())
	registerAccount(t, env, "bob", "correct-horse", "student")
	cookie := loginAccount(t, env, "bob", "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/api/exams", nil)
	req.AddCookie(cookie)
	resp := env.do(req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}
