package models

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	PaymentTabCard = "card"
	PaymentTabUPI  = "upi"
)

// CheckoutForm is what the checkout page submits. Card fields are only
// validated when the card tab is active and are never stored.
type CheckoutForm struct {
	Plan     string `json:"plan"`
	Billing  string `json:"billing"`
	Currency string `json:"currency"`

	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Company   string `json:"company" validate:"max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	Country   string `json:"country" validate:"omitempty,max=56"`
	Message   string `json:"message" validate:"max=2000"`

	ActiveTab   string `json:"activeTab" validate:"omitempty,oneof=card upi"`
	CardName    string `json:"cardName" validate:"required_if=ActiveTab card,max=100"`
	CardNumber  string `json:"cardNumber" validate:"required_if=ActiveTab card,omitempty,numeric,min=12,max=19"`
	CardExpiry  string `json:"cardExpiry" validate:"required_if=ActiveTab card,omitempty,len=5"`
	CardCVC     string `json:"cardCvc" validate:"required_if=ActiveTab card,omitempty,numeric,min=3,max=4"`
	UPIID       string `json:"upiId" validate:"required_if=ActiveTab upi,max=100"`
	AcceptTerms bool   `json:"acceptTerms" validate:"required"`

	AcceptMarketing bool `json:"acceptMarketing"`
}

// ScrubPaymentFields clears everything a payment processor would need.
func (f *CheckoutForm) ScrubPaymentFields() {
	f.CardName = ""
	f.CardNumber = ""
	f.CardExpiry = ""
	f.CardCVC = ""
	f.UPIID = ""
}

func (f *CheckoutForm) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// ValidationError lists every failing field in one message.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Fields, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateCheckoutForm(f *CheckoutForm) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		if field == "acceptTerms" {
			return "you must accept the terms of service"
		}
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
