package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"seo-checkout-api/config"
	"seo-checkout-api/models"
	"seo-checkout-api/services/auth"
	"seo-checkout-api/utils"
)

// NewSessionStore builds the cookie store that holds the user's access token.
// Without a secret a random key is used, so sessions end on restart.
func NewSessionStore(cfg config.SessionConfig) *sessions.CookieStore {
	key := []byte(cfg.Secret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

type SessionHandler struct {
	store sessions.Store
	now   func() time.Time
}

func NewSessionHandler(store sessions.Store) *SessionHandler {
	return &SessionHandler{store: store, now: time.Now}
}

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionInfo struct {
	LoggedIn  bool       `json:"logged_in"`
	Username  string     `json:"username,omitempty"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func toSessionInfo(info *auth.TokenInfo) sessionInfo {
	out := sessionInfo{LoggedIn: true, Username: info.Username, Email: info.Email}
	if !info.ExpiresAt.IsZero() {
		exp := info.ExpiresAt
		out.ExpiresAt = &exp
	}
	return out
}

// CreateSession stores an access token issued by the backend so the payment
// result page can verify without an Authorization header.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token := req.Token
	if token == "" {
		if bearer, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
			token = bearer
		}
	}

	info, err := auth.Inspect(token, h.now())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			utils.SendErrorResponse(w, http.StatusBadRequest, "Token is required")
		case errors.Is(err, auth.ErrTokenExpired):
			utils.SendErrorResponse(w, http.StatusUnauthorized, "Token has expired")
		default:
			utils.SendErrorResponse(w, http.StatusUnauthorized, "Invalid token")
		}
		return
	}

	session, err := h.store.Get(r, auth.SessionName)
	if err != nil {
		// A cookie signed with an old key still yields a fresh session.
		slog.Warn("discarding unreadable session", "error", err)
	}
	if session == nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to read session")
		return
	}
	session.Values[auth.SessionTokenKey] = token
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to save session", "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Session created",
		Data:    toSessionInfo(info),
	})
}

// GetSession reports whether the session cookie holds a usable token.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	out := sessionInfo{}
	if session, err := h.store.Get(r, auth.SessionName); err == nil {
		token, _ := session.Values[auth.SessionTokenKey].(string)
		if info, err := auth.Inspect(token, h.now()); err == nil {
			out = toSessionInfo(info)
		}
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Session retrieved",
		Data:    out,
	})
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(r, auth.SessionName)
	if err != nil {
		slog.Warn("discarding unreadable session", "error", err)
	}
	if session == nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to read session")
		return
	}
	delete(session.Values, auth.SessionTokenKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Error("failed to clear session", "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Failed to clear session")
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Session cleared",
	})
}
