// Package payments wraps the Stripe client API for subscription billing.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Errors returned by the gateway
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnhandledEvent   = errors.New("unhandled webhook event")
)

// Webhook event types the billing service reacts to
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Config holds Stripe credentials and redirect targets
type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	SuccessURL    string
	CancelURL     string
}

// Session is a hosted Stripe page the member is redirected to
type Session struct {
	ID  string
	URL string
}

// WebhookEvent is the subset of a Stripe event the billing service needs
type WebhookEvent struct {
	ID             string
	Type           string
	CustomerID     string
	SubscriptionID string
	Status         string
	ProfileID      int64
}

// Gateway is the billing surface used by services
type Gateway interface {
	CreateCustomer(ctx context.Context, email string, profileID int64) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID string, profileID int64) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (string, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// StripeGateway implements Gateway on stripe-go
type StripeGateway struct {
	api    *client.API
	config Config
}

// NewStripeGateway creates a gateway bound to one secret key
func NewStripeGateway(config Config) *StripeGateway {
	return &StripeGateway{
		api:    client.New(config.SecretKey, nil),
		config: config,
	}
}

// CreateCustomer registers a customer tagged with the profile id
func (g *StripeGateway) CreateCustomer(ctx context.Context, email string, profileID int64) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("profile_id", strconv.FormatInt(profileID, 10))

	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession starts a subscription checkout for an existing customer
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerID string, profileID int64) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(strconv.FormatInt(profileID, 10)),
		SuccessURL:        stripe.String(g.config.SuccessURL),
		CancelURL:         stripe.String(g.config.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(g.config.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// CreatePortalSession opens the self-service billing portal
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create portal session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// CancelSubscription cancels immediately and returns the resulting status
func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) (string, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return "", fmt.Errorf("cancel subscription: %w", err)
	}
	return string(sub.Status), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the events we handle
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (*WebhookEvent, error) {
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}

	switch out.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if s.Customer != nil {
			out.CustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			out.SubscriptionID = s.Subscription.ID
		}
		out.Status = string(stripe.SubscriptionStatusActive)
		if id, err := strconv.ParseInt(s.ClientReferenceID, 10, 64); err == nil {
			out.ProfileID = id
		}

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.SubscriptionID = sub.ID
		out.Status = string(sub.Status)
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}

	default:
		return out, ErrUnhandledEvent
	}

	return out, nil
}
