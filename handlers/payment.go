package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/sessions"

	"seo-checkout-api/middleware"
	"seo-checkout-api/models"
	"seo-checkout-api/services/auth"
	"seo-checkout-api/services/verify"
	"seo-checkout-api/utils"
)

// verifierIdleTTL is how long an idle verifier is kept for its order.
const verifierIdleTTL = 10 * time.Minute

type PaymentHandler struct {
	verifyConfig verify.Config
	store        sessions.Store
	verifiers    *verifierRegistry
}

// NewPaymentHandler shares cfg.HTTPClient across requests. One Verifier is
// kept per (credential, order), so the result page and its retry button drive
// the same verifier.
func NewPaymentHandler(cfg verify.Config, store sessions.Store) *PaymentHandler {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = verify.NewHTTPClient(cfg.Timeout)
	}
	return &PaymentHandler{
		verifyConfig: cfg,
		store:        store,
		verifiers:    newVerifierRegistry(verifierIdleTTL),
	}
}

type retryRequest struct {
	OrderID string `json:"order_id"`
}

// GetPaymentResult verifies ?order_id= and returns the result page state.
func (h *PaymentHandler) GetPaymentResult(w http.ResponseWriter, r *http.Request) {
	h.verifyOrder(w, r, r.URL.Query().Get("order_id"))
}

// RetryPaymentResult is the manual retry button for the order in the body.
func (h *PaymentHandler) RetryPaymentResult(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.verifyOrder(w, r, req.OrderID)
}

func (h *PaymentHandler) verifyOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	requestID := middleware.GetRequestID(r.Context())
	orderID = strings.TrimSpace(orderID)

	creds := auth.ChainSource{
		auth.NewHeaderSource(r),
		auth.NewSessionSource(h.store, r),
	}
	// The token is read once per request and pinned to the verifier.
	token, _ := creds.Token(r.Context())

	var v *verify.Verifier
	if orderID == "" {
		v = verify.NewVerifier(h.verifyConfig, auth.StaticSource(token))
	} else {
		v = h.verifiers.get(verifierKey(token, orderID), func() *verify.Verifier {
			return verify.NewVerifier(h.verifyConfig, auth.StaticSource(token))
		})
	}

	snap, err := v.Start(r.Context(), orderID)
	if errors.Is(err, verify.ErrAlreadyStarted) {
		snap, err = v.Retry(r.Context())
	}

	switch {
	case errors.Is(err, verify.ErrVerificationInProgress):
		slog.Info("payment verification already in flight", "request_id", requestID, "order_id", orderID)
		utils.SendErrorResponseWithData(w, http.StatusConflict, "Payment verification already in progress", snap)
		return
	case err != nil:
		slog.Error("payment verification did not run", "request_id", requestID, "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := "success"
	message := snap.Message
	if snap.State == verify.StateError {
		status = "error"
	}
	if message == "" && snap.Result != nil {
		message = snap.Result.Message
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  status,
		Message: message,
		Data:    snap,
	})
}

func verifierKey(token, orderID string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:]) + ":" + orderID
}

type verifierEntry struct {
	verifier *verify.Verifier
	lastUsed time.Time
}

// verifierRegistry holds live verifiers by key and drops idle ones on access.
type verifierRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*verifierEntry
}

func newVerifierRegistry(ttl time.Duration) *verifierRegistry {
	return &verifierRegistry{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*verifierEntry),
	}
}

func (reg *verifierRegistry) get(key string, create func() *verify.Verifier) *verify.Verifier {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	now := reg.now()
	for k, e := range reg.entries {
		if k != key && now.Sub(e.lastUsed) > reg.ttl && e.verifier.Snapshot().State != verify.StateVerifying {
			delete(reg.entries, k)
		}
	}

	e, ok := reg.entries[key]
	if !ok {
		e = &verifierEntry{verifier: create()}
		reg.entries[key] = e
	}
	e.lastUsed = now
	return e.verifier
}

func (reg *verifierRegistry) size() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.entries)
}
