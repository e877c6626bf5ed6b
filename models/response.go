package models

type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PlanResponse is the checkout page payload: the resolved plan plus its benefits.
type PlanResponse struct {
	Plan     interface{} `json:"plan"`
	Benefits interface{} `json:"benefits"`
}

type CheckoutResponse struct {
	ContactSales bool   `json:"contact_sales"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	ReferenceID  string `json:"reference_id"`
}
