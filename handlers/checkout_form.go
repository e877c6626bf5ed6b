package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"seo-checkout-api/middleware"
	"seo-checkout-api/models"
	"seo-checkout-api/queue"
	"seo-checkout-api/services/email"
	"seo-checkout-api/services/plans"
	"seo-checkout-api/utils"
	"seo-checkout-api/worker"
)

type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, data map[string]interface{}) (*queue.Job, error)
}

type CheckoutHandler struct {
	queue          JobEnqueuer
	paymentPageURL string
}

func NewCheckoutHandler(q JobEnqueuer, paymentPageURL string) *CheckoutHandler {
	return &CheckoutHandler{queue: q, paymentPageURL: paymentPageURL}
}

// SubmitCheckout validates the checkout form. Enterprise requests are handed
// to sales; everything else is sent on to the external payment page. Card
// details are validated and then dropped.
func (h *CheckoutHandler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var form models.CheckoutForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		slog.Info("invalid checkout body", "request_id", requestID, "error", err)
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	planID := plans.ParsePlanID(form.Plan)
	cycle, currency, ok := parseCycleAndCurrency(w, form.Billing, form.Currency)
	if !ok {
		return
	}

	details, err := plans.Resolve(planID, cycle, currency)
	if err != nil {
		writePlanError(w, err)
		return
	}

	if details.IsCustom {
		form.ActiveTab = ""
		form.ScrubPaymentFields()
	}

	err = models.ValidateCheckoutForm(&form)
	form.ScrubPaymentFields()
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			utils.SendErrorResponseWithData(w, http.StatusBadRequest, "Validation failed", verr.Fields)
			return
		}
		slog.Error("checkout validation error", "request_id", requestID, "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	referenceID := uuid.New().String()

	if details.IsCustom {
		h.contactSales(w, r, &form, details, referenceID)
		return
	}

	if h.paymentPageURL == "" {
		slog.Error("payment page url is not configured", "request_id", requestID)
		utils.SendErrorResponse(w, http.StatusServiceUnavailable, "Online checkout is temporarily unavailable")
		return
	}

	redirect, err := buildPaymentURL(h.paymentPageURL, details, referenceID)
	if err != nil {
		slog.Error("invalid payment page url", "request_id", requestID, "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("checkout accepted",
		"request_id", requestID,
		"reference_id", referenceID,
		"plan", details.ID,
		"billing", details.BillingCycle,
		"currency", details.Currency,
	)

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Redirecting to payment",
		Data: models.CheckoutResponse{
			RedirectURL: redirect,
			ReferenceID: referenceID,
		},
	})
}

func (h *CheckoutHandler) contactSales(w http.ResponseWriter, r *http.Request, form *models.CheckoutForm, details plans.PlanDetails, referenceID string) {
	lead := email.SalesLead{
		ReferenceID:     referenceID,
		Name:            form.FullName(),
		Email:           form.Email,
		Company:         form.Company,
		Phone:           form.Phone,
		Country:         form.Country,
		Message:         form.Message,
		PlanName:        details.Name,
		BillingCycle:    string(details.BillingCycle),
		Currency:        string(details.Currency),
		AcceptMarketing: form.AcceptMarketing,
	}

	job, err := h.queue.Enqueue(r.Context(), queue.JobTypeContactSales, worker.LeadToJobData(lead))
	if err != nil {
		slog.Error("failed to queue sales request", "reference_id", referenceID, "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "We could not submit your request. Please try again.")
		return
	}

	slog.Info("sales request queued", "reference_id", referenceID, "job_id", job.ID)

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Thanks! Our sales team will contact you shortly.",
		Data: models.CheckoutResponse{
			ContactSales: true,
			ReferenceID:  referenceID,
		},
	})
}

func buildPaymentURL(base string, details plans.PlanDetails, referenceID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("plan", string(details.ID))
	q.Set("billing", string(details.BillingCycle))
	q.Set("currency", string(details.Currency))
	q.Set("ref", referenceID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
