package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-checkout-api/config"
	"seo-checkout-api/services/auth"
)

func signAccessToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := auth.Claims{
		Username:  "jane",
		Email:     "jane@example.com",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func newTestStore() *sessions.CookieStore {
	return NewSessionStore(config.SessionConfig{
		Secret: "0123456789abcdef0123456789abcdef",
		MaxAge: 3600,
	})
}

func withCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewSessionStore_Options(t *testing.T) {
	store := NewSessionStore(config.SessionConfig{Domain: "example.com", MaxAge: 60, Secure: true})
	assert.Equal(t, "/", store.Options.Path)
	assert.Equal(t, "example.com", store.Options.Domain)
	assert.Equal(t, 60, store.Options.MaxAge)
	assert.True(t, store.Options.Secure)
	assert.True(t, store.Options.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, store.Options.SameSite)
}

func TestSessionLifecycle(t *testing.T) {
	h := NewSessionHandler(newTestStore())
	token := signAccessToken(t, time.Now().Add(time.Hour))

	created := httptest.NewRecorder()
	body := `{"token":"` + token + `"}`
	h.CreateSession(created, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, created.Code, created.Body.String())
	require.NotEmpty(t, created.Result().Cookies())

	var info struct {
		LoggedIn bool   `json:"logged_in"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, created).Data, &info))
	assert.True(t, info.LoggedIn)
	assert.Equal(t, "jane", info.Username)
	assert.Equal(t, "jane@example.com", info.Email)

	got := httptest.NewRecorder()
	h.GetSession(got, withCookies(httptest.NewRequest(http.MethodGet, "/api/session", nil), created))
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), `"logged_in":true`)

	deleted := httptest.NewRecorder()
	h.DeleteSession(deleted, withCookies(httptest.NewRequest(http.MethodDelete, "/api/session", nil), created))
	require.Equal(t, http.StatusOK, deleted.Code)

	cookies := deleted.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, auth.SessionName, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestCreateSession_FromAuthorizationHeader(t *testing.T) {
	h := NewSessionHandler(newTestStore())
	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+signAccessToken(t, time.Now().Add(time.Hour)))

	rec := httptest.NewRecorder()
	h.CreateSession(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSession_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing token", `{}`, http.StatusBadRequest},
		{"garbage token", `{"token":"not-a-jwt"}`, http.StatusUnauthorized},
		{"expired token", `{"token":"` + signAccessToken(t, time.Now().Add(-time.Hour)) + `"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewSessionHandler(newTestStore()).CreateSession(rec,
				httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestGetSession_Anonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSessionHandler(newTestStore()).GetSession(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"logged_in":false`)
}
