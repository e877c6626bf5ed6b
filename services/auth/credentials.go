package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
)

const (
	SessionName     = "checkout-session"
	SessionTokenKey = "token"
)

// StaticSource always yields the same token. Empty means no credential.
type StaticSource string

func (s StaticSource) Token(ctx context.Context) (string, bool) {
	return string(s), s != ""
}

// HeaderSource reads a bearer token from the inbound request.
type HeaderSource struct {
	r   *http.Request
	now func() time.Time
}

func NewHeaderSource(r *http.Request) *HeaderSource {
	return &HeaderSource{r: r, now: time.Now}
}

func (s *HeaderSource) Token(ctx context.Context) (string, bool) {
	token, ok := BearerToken(s.r.Header.Get("Authorization"))
	if !ok {
		return "", false
	}
	return usable(token, s.now())
}

// SessionSource reads the token stored in the checkout session cookie.
type SessionSource struct {
	store sessions.Store
	r     *http.Request
	now   func() time.Time
}

func NewSessionSource(store sessions.Store, r *http.Request) *SessionSource {
	return &SessionSource{store: store, r: r, now: time.Now}
}

func (s *SessionSource) Token(ctx context.Context) (string, bool) {
	session, err := s.store.Get(s.r, SessionName)
	if err != nil {
		slog.Warn("failed to read checkout session", "error", err)
		return "", false
	}
	token, _ := session.Values[SessionTokenKey].(string)
	if token == "" {
		return "", false
	}
	return usable(token, s.now())
}

// TokenSource is satisfied by every source in this package.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// ChainSource returns the first token any of its sources yields.
type ChainSource []TokenSource

func (c ChainSource) Token(ctx context.Context) (string, bool) {
	for _, src := range c {
		if token, ok := src.Token(ctx); ok {
			return token, true
		}
	}
	return "", false
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func usable(token string, now time.Time) (string, bool) {
	if _, err := Inspect(token, now); err != nil {
		slog.Debug("ignoring unusable credential", "error", err)
		return "", false
	}
	return token, true
}
