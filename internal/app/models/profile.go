package models

import "time"

// SubscriptionStatus mirrors the payment provider subscription status
type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionUnpaid   SubscriptionStatus = "unpaid"
)

// Membership plans
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// Profile is the member record keyed by the identity provider subject
type Profile struct {
	ID                   int64              `json:"id"`
	IdentityID           string             `json:"identityId"`
	Email                string             `json:"email"`
	DisplayName          string             `json:"displayName"`
	AvatarURL            *string            `json:"avatarUrl,omitempty"`
	Nationality          *string            `json:"nationality,omitempty"`
	ResidenceCountry     *string            `json:"residenceCountry,omitempty"`
	Occupation           *string            `json:"occupation,omitempty"`
	Bio                  *string            `json:"bio,omitempty"`
	DirectoryVisible     bool               `json:"directoryVisible"`
	OnboardingCompleted  bool               `json:"onboardingCompleted"`
	StripeCustomerID     *string            `json:"-"`
	StripeSubscriptionID *string            `json:"-"`
	SubscriptionStatus   SubscriptionStatus `json:"subscriptionStatus"`
	Plan                 string             `json:"plan"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`

	// Roles is filled on demand from admin_roles
	Roles []RoleType `json:"roles,omitempty"`
}

// HasRole reports whether the profile holds role, admins implicitly hold staff
func (p *Profile) HasRole(role RoleType) bool {
	for _, r := range p.Roles {
		if r == role || (r == RoleAdmin && role == RoleStaff) {
			return true
		}
	}
	return false
}

// IsSubscribed reports whether the subscription grants premium access
func (p *Profile) IsSubscribed() bool {
	return p.SubscriptionStatus == SubscriptionActive || p.SubscriptionStatus == SubscriptionTrialing
}

// BillingUpdate carries payment columns written back to a profile.
// Nil pointers leave the column untouched; ClearSubscription nulls the subscription id.
type BillingUpdate struct {
	CustomerID        *string
	SubscriptionID    *string
	ClearSubscription bool
	Status            *SubscriptionStatus
	Plan              *string
}
