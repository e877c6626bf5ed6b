package plans

import (
	"errors"
	"fmt"
	"strings"
)

type PlanID string

const (
	PlanStarter      PlanID = "starter"
	PlanProfessional PlanID = "professional"
	PlanEnterprise   PlanID = "enterprise"
)

type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingAnnual  BillingCycle = "annual"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyINR Currency = "INR"
)

// Query parameter defaults applied when the checkout URL omits a value.
const (
	DefaultPlan         = PlanStarter
	DefaultBillingCycle = BillingAnnual
	DefaultCurrency     = CurrencyUSD
)

const CustomPrice = "Custom"

var (
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrInvalidBillingCycle = errors.New("invalid billing cycle")
	ErrInvalidCurrency     = errors.New("invalid currency")
)

// UnknownPlanError carries the rejected plan identifier.
type UnknownPlanError struct {
	PlanID string
}

func (e *UnknownPlanError) Error() string {
	return fmt.Sprintf("unknown plan %q", e.PlanID)
}

func (e *UnknownPlanError) Is(target error) bool {
	return target == ErrUnknownPlan
}

// PlanDetails is the checkout view model for one (plan, cycle, currency) triple.
type PlanDetails struct {
	ID           PlanID       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Price        string       `json:"price"`
	Features     []string     `json:"features"`
	BillingCycle BillingCycle `json:"billingCycle"`
	Currency     Currency     `json:"currency"`
	IsCustom     bool         `json:"isCustom"`
	Savings      string       `json:"savings,omitempty"`
}

type priceKey struct {
	plan     PlanID
	cycle    BillingCycle
	currency Currency
}

type planInfo struct {
	name        string
	description string
	features    []string
	custom      bool
}

// Ordered for the pricing page.
var planOrder = []PlanID{PlanStarter, PlanProfessional, PlanEnterprise}

var planCatalog = map[PlanID]planInfo{
	PlanStarter: {
		name:        "Starter",
		description: "Everything a single site needs to start ranking.",
		features: []string{
			"1 project",
			"500 tracked keywords",
			"Weekly site audit (up to 5,000 pages)",
			"Backlink monitoring",
			"Email support",
		},
	},
	PlanProfessional: {
		name:        "Professional",
		description: "For growing teams and agencies managing multiple sites.",
		features: []string{
			"10 projects",
			"5,000 tracked keywords",
			"Daily site audit (up to 100,000 pages)",
			"Competitor gap analysis",
			"Content optimization briefs",
			"White-label PDF reports",
			"Priority support",
		},
	},
	PlanEnterprise: {
		name:        "Enterprise",
		description: "Custom limits, dedicated support and SSO for large organizations.",
		features: []string{
			"Unlimited projects",
			"Custom keyword limits",
			"Unlimited site audits",
			"API access",
			"Single sign-on (SAML)",
			"Dedicated account manager",
			"Custom SLA",
		},
		custom: true,
	},
}

// Annual prices are quoted per month and are not derived from the monthly ones.
var priceTable = map[priceKey]string{
	{PlanStarter, BillingMonthly, CurrencyUSD}:      "$19",
	{PlanStarter, BillingAnnual, CurrencyUSD}:       "$15",
	{PlanStarter, BillingMonthly, CurrencyINR}:      "₹1,499",
	{PlanStarter, BillingAnnual, CurrencyINR}:       "₹1,199",
	{PlanProfessional, BillingMonthly, CurrencyUSD}: "$49",
	{PlanProfessional, BillingAnnual, CurrencyUSD}:  "$39",
	{PlanProfessional, BillingMonthly, CurrencyINR}: "₹3,999",
	{PlanProfessional, BillingAnnual, CurrencyINR}:  "₹3,199",
}

var savingsTable = map[priceKey]string{
	{PlanStarter, BillingAnnual, CurrencyUSD}:      "Save 20% ($48/year)",
	{PlanStarter, BillingAnnual, CurrencyINR}:      "Save 20% (₹3,600/year)",
	{PlanProfessional, BillingAnnual, CurrencyUSD}: "Save 20% ($120/year)",
	{PlanProfessional, BillingAnnual, CurrencyINR}: "Save 20% (₹9,600/year)",
}

var resolved = buildResolved()

func buildResolved() map[priceKey]PlanDetails {
	out := make(map[priceKey]PlanDetails, len(planOrder)*4)
	for _, id := range planOrder {
		info := planCatalog[id]
		for _, cycle := range []BillingCycle{BillingMonthly, BillingAnnual} {
			for _, cur := range []Currency{CurrencyUSD, CurrencyINR} {
				key := priceKey{id, cycle, cur}
				d := PlanDetails{
					ID:           id,
					Name:         info.name,
					Description:  info.description,
					Features:     info.features,
					BillingCycle: cycle,
					Currency:     cur,
					IsCustom:     info.custom,
				}
				if info.custom {
					d.Price = CustomPrice
				} else {
					d.Price = priceTable[key]
					if cycle == BillingAnnual {
						d.Savings = savingsTable[key]
					}
				}
				out[key] = d
			}
		}
	}
	return out
}

// Resolve returns the checkout details for a plan. Unlike BenefitsFor it does
// not fall back: an unrecognized plan is an *UnknownPlanError.
func Resolve(planID string, cycle BillingCycle, currency Currency) (PlanDetails, error) {
	if !cycle.Valid() {
		return PlanDetails{}, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, cycle)
	}
	if !currency.Valid() {
		return PlanDetails{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}

	d, ok := resolved[priceKey{PlanID(planID), cycle, currency}]
	if !ok {
		return PlanDetails{}, &UnknownPlanError{PlanID: planID}
	}

	d.Features = append([]string(nil), d.Features...)
	return d, nil
}

// All resolves every plan for the given cycle and currency, in display order.
func All(cycle BillingCycle, currency Currency) ([]PlanDetails, error) {
	out := make([]PlanDetails, 0, len(planOrder))
	for _, id := range planOrder {
		d, err := Resolve(string(id), cycle, currency)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (id PlanID) Valid() bool {
	_, ok := planCatalog[id]
	return ok
}

func (c BillingCycle) Valid() bool {
	return c == BillingMonthly || c == BillingAnnual
}

func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyINR
}

// ParsePlanID applies the URL default for an empty value. Unknown values are
// returned as-is so that Resolve reports them.
func ParsePlanID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return string(DefaultPlan)
	}
	return s
}

func ParseBillingCycle(s string) (BillingCycle, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultBillingCycle, nil
	}
	c := BillingCycle(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBillingCycle, s)
	}
	return c, nil
}

func ParseCurrency(s string) (Currency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultCurrency, nil
	}
	c := Currency(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}
