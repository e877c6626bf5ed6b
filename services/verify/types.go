package verify

import (
	"encoding/json"
	"strings"
)

type State string

const (
	StateIdle      State = "idle"
	StateVerifying State = "verifying"
	StateVerified  State = "verified"
	StateError     State = "error"
)

// Outcome selects the visual branch for a verified payment.
type Outcome string

const (
	OutcomeNone       Outcome = ""
	OutcomeCompleted  Outcome = "completed"
	OutcomeProcessing Outcome = "processing"
	OutcomePending    Outcome = "pending"
)

// OrderStatusActive means the gateway accepted the order but has not settled it.
const OrderStatusActive = "ACTIVE"

// PaymentResult is the backend's answer to a verify call.
type PaymentResult struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message"`
	OrderStatus   string      `json:"orderStatus,omitempty"`
	OrderAmount   Amount      `json:"orderAmount,omitempty"`
	OrderCurrency string      `json:"orderCurrency,omitempty"`
	PlanID        string      `json:"planId,omitempty"`
	PlanName      string      `json:"planName,omitempty"`
	BillingCycle  string      `json:"billingCycle,omitempty"`
}

// Outcome maps a result to the branch the result page renders.
func (r *PaymentResult) Outcome() Outcome {
	switch {
	case r == nil:
		return OutcomeNone
	case r.Success:
		return OutcomeCompleted
	case r.OrderStatus == OrderStatusActive:
		return OutcomeProcessing
	default:
		return OutcomePending
	}
}

// DisplayAmount formats the amount as "<amount> <currency>", e.g. "1900 USD".
func (r *PaymentResult) DisplayAmount() string {
	if r == nil {
		return ""
	}
	amount := r.OrderAmount.String()
	if amount == "" {
		return ""
	}
	return strings.TrimSpace(amount + " " + r.OrderCurrency)
}

func (r *PaymentResult) clone() *PaymentResult {
	if r == nil {
		return nil
	}
	c := *r
	c.OrderAmount = append(Amount(nil), r.OrderAmount...)
	return &c
}

// Amount holds orderAmount exactly as the backend sent it, number or string.
type Amount json.RawMessage

func (a Amount) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("null"), nil
	}
	return a, nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = append((*a)[:0], b...)
	return nil
}

// String renders the amount for display: string values are unquoted, null is empty.
func (a Amount) String() string {
	s := strings.TrimSpace(string(a))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal([]byte(s), &str); err == nil {
			return str
		}
	}
	return s
}

// Snapshot is a copy of the verifier state. Result is cloned per snapshot, so
// callers may modify it freely.
type Snapshot struct {
	State    State          `json:"state"`
	Outcome  Outcome        `json:"outcome,omitempty"`
	OrderID  string         `json:"order_id,omitempty"`
	Message  string         `json:"message,omitempty"`
	Amount   string         `json:"amount,omitempty"`
	CanRetry bool           `json:"can_retry"`
	Result   *PaymentResult `json:"result,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	s.Result = s.Result.clone()
	return s
}

func (s Snapshot) Terminal() bool {
	return s.State == StateVerified || s.State == StateError
}

type verifyRequest struct {
	OrderID string `json:"orderId"`
}

type errorBody struct {
	Message string `json:"message"`
}
