package plans

type BenefitIcon string

const (
	IconZap        BenefitIcon = "zap"
	IconShield     BenefitIcon = "shield"
	IconHeadphones BenefitIcon = "headphones"
	IconChart      BenefitIcon = "chart"
	IconUsers      BenefitIcon = "users"
	IconFile       BenefitIcon = "file"
	IconLock       BenefitIcon = "lock"
	IconServer     BenefitIcon = "server"
	IconAward      BenefitIcon = "award"
)

type PlanBenefit struct {
	Icon        BenefitIcon `json:"icon"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

var baseBenefits = []PlanBenefit{
	{IconZap, "Instant access", "Start tracking keywords and auditing your site right after checkout."},
	{IconShield, "Secure payments", "Payments are handled by our PCI-compliant payment partner."},
	{IconHeadphones, "Cancel anytime", "No long-term contracts. Cancel from your dashboard in one click."},
}

var professionalBenefits = []PlanBenefit{
	{IconChart, "Advanced analytics", "Competitor gap analysis and share-of-voice trends across projects."},
	{IconUsers, "Team seats", "Invite collaborators and assign projects per client."},
	{IconFile, "White-label reports", "Branded PDF reports scheduled straight to your clients."},
}

var enterpriseBenefits = []PlanBenefit{
	{IconLock, "Single sign-on", "SAML SSO and audit logs for your security team."},
	{IconServer, "Full API access", "Pull rankings, audits and backlinks into your own warehouse."},
	{IconAward, "Dedicated manager", "A named account manager and a custom SLA."},
}

// BenefitsFor returns the benefit list shown beside the checkout form.
// Unknown plans get the base set only; this is intentionally more lenient
// than Resolve.
func BenefitsFor(planID string) []PlanBenefit {
	out := append([]PlanBenefit(nil), baseBenefits...)
	switch PlanID(planID) {
	case PlanProfessional:
		out = append(out, professionalBenefits...)
	case PlanEnterprise:
		out = append(out, professionalBenefits...)
		out = append(out, enterpriseBenefits...)
	}
	return out
}
