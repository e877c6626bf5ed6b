package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	VerifyPath     = "/api/payments/verify"
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 1 << 20
)

// User-facing messages for the error state.
const (
	MsgNoOrderID     = "No order ID found."
	MsgLoginRequired = "You are not logged in. Please log in to verify your payment."
	MsgNetworkError  = "Unable to verify your payment due to a network error. Please try again."
)

var (
	ErrVerificationInProgress = errors.New("payment verification already in progress")
	ErrAlreadyStarted         = errors.New("payment verification already started")
	ErrNotStarted             = errors.New("payment verification not started")
)

// CredentialSource yields the bearer token for the backend, if the user has one.
type CredentialSource interface {
	Token(ctx context.Context) (string, bool)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewHTTPClient builds the pooled client shared by verifiers.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Verifier confirms one order's payment with the backend. It performs a
// single request per trigger and never polls; at most one request is in
// flight at a time.
type Verifier struct {
	baseURL string
	client  *http.Client
	creds   CredentialSource
	logger  *slog.Logger

	mu        sync.Mutex
	started   bool
	verifying bool
	orderID   string
	snap      Snapshot
}

func NewVerifier(cfg Config, creds CredentialSource) *Verifier {
	client := cfg.HTTPClient
	if client == nil {
		client = NewHTTPClient(cfg.Timeout)
	}
	return &Verifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		creds:   creds,
		logger:  slog.Default().With("component", "payment-verifier"),
		snap:    Snapshot{State: StateIdle},
	}
}

// Start runs the initial verification for orderID. It may be called once.
func (v *Verifier) Start(ctx context.Context, orderID string) (Snapshot, error) {
	v.mu.Lock()
	if v.started {
		snap := v.snap.clone()
		v.mu.Unlock()
		return snap, ErrAlreadyStarted
	}
	v.started = true
	v.orderID = strings.TrimSpace(orderID)
	return v.runLocked(ctx)
}

// Retry re-runs the verification for the order given to Start.
func (v *Verifier) Retry(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	if !v.started {
		snap := v.snap.clone()
		v.mu.Unlock()
		return snap, ErrNotStarted
	}
	return v.runLocked(ctx)
}

func (v *Verifier) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap.clone()
}

// runLocked must be called with v.mu held; it releases the lock. Claiming the
// verifying flag under the same lock as the trigger check leaves no window for
// a second dispatch.
func (v *Verifier) runLocked(ctx context.Context) (Snapshot, error) {
	if v.verifying {
		snap := v.snap.clone()
		v.mu.Unlock()
		return snap, ErrVerificationInProgress
	}
	orderID := v.orderID
	if orderID == "" {
		v.snap = failed(orderID, MsgNoOrderID)
		snap := v.snap.clone()
		v.mu.Unlock()
		return snap, nil
	}
	v.verifying = true
	v.snap = Snapshot{State: StateVerifying, OrderID: orderID}
	v.mu.Unlock()

	snap := v.verify(ctx, orderID)

	v.mu.Lock()
	v.verifying = false
	v.snap = snap
	out := v.snap.clone()
	v.mu.Unlock()

	return out, nil
}

func (v *Verifier) verify(ctx context.Context, orderID string) Snapshot {
	token, ok := v.creds.Token(ctx)
	if !ok {
		v.logger.Info("no credential for payment verification", "order_id", orderID)
		return failed(orderID, MsgLoginRequired)
	}

	result, err := v.call(ctx, orderID, token)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Message != "" {
			v.logger.Warn("payment verification rejected", "order_id", orderID, "status", se.StatusCode, "error", err)
			return failed(orderID, se.Message)
		}
		v.logger.Warn("payment verification failed", "order_id", orderID, "error", err)
		return failed(orderID, MsgNetworkError)
	}

	v.logger.Info("payment verified",
		"order_id", orderID,
		"success", result.Success,
		"order_status", result.OrderStatus,
	)

	return Snapshot{
		State:    StateVerified,
		Outcome:  result.Outcome(),
		OrderID:  orderID,
		Message:  result.Message,
		Amount:   result.DisplayAmount(),
		CanRetry: !result.Success,
		Result:   result,
	}
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

func (v *Verifier) call(ctx context.Context, orderID, token string) (*PaymentResult, error) {
	payload, err := json.Marshal(verifyRequest{OrderID: orderID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+VerifyPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read verify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: eb.Message}
	}

	var result PaymentResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return &result, nil
}

func failed(orderID, message string) Snapshot {
	return Snapshot{
		State:    StateError,
		OrderID:  orderID,
		Message:  message,
		CanRetry: true,
	}
}
