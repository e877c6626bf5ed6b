package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"seo-checkout-api/models"
	"seo-checkout-api/services/plans"
	"seo-checkout-api/utils"
)

type PlanHandler struct{}

func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

// GetCheckoutPlan resolves ?plan=&billing=&currency= for the checkout page.
func (h *PlanHandler) GetCheckoutPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	planID := plans.ParsePlanID(q.Get("plan"))

	cycle, currency, ok := parseCycleAndCurrency(w, q.Get("billing"), q.Get("currency"))
	if !ok {
		return
	}

	details, err := plans.Resolve(planID, cycle, currency)
	if err != nil {
		writePlanError(w, err)
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Plan resolved",
		Data: models.PlanResponse{
			Plan:     details,
			Benefits: plans.BenefitsFor(planID),
		},
	})
}

// ListPlans returns every plan for the pricing table.
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cycle, currency, ok := parseCycleAndCurrency(w, q.Get("billing"), q.Get("currency"))
	if !ok {
		return
	}

	list, err := plans.All(cycle, currency)
	if err != nil {
		slog.Error("failed to list plans", "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Plans retrieved",
		Data:    list,
	})
}

func parseCycleAndCurrency(w http.ResponseWriter, billing, currency string) (plans.BillingCycle, plans.Currency, bool) {
	cycle, err := plans.ParseBillingCycle(billing)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Billing cycle must be monthly or annual")
		return "", "", false
	}
	cur, err := plans.ParseCurrency(currency)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Currency must be USD or INR")
		return "", "", false
	}
	return cycle, cur, true
}

func writePlanError(w http.ResponseWriter, err error) {
	var upe *plans.UnknownPlanError
	switch {
	case errors.As(err, &upe):
		slog.Info("unknown plan requested", "plan", upe.PlanID)
		utils.SendErrorResponse(w, http.StatusNotFound, "Plan not found")
	case errors.Is(err, plans.ErrInvalidBillingCycle), errors.Is(err, plans.ErrInvalidCurrency):
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("failed to resolve plan", "error", err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}
