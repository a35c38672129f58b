package dto

import "github.com/frogmembers/api/internal/app/models"

// RedirectResponse points the client at a hosted page
type RedirectResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId,omitempty"`
}

// BillingSummary is the member's subscription state
type BillingSummary struct {
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
	Plan               string                    `json:"plan"`
	HasCustomer        bool                      `json:"hasCustomer"`
}

// ToBillingSummary reads billing columns from a profile
func ToBillingSummary(p *models.Profile) BillingSummary {
	return BillingSummary{
		SubscriptionStatus: p.SubscriptionStatus,
		Plan:               p.Plan,
		HasCustomer:        p.StripeCustomerID != nil && *p.StripeCustomerID != "",
	}
}
