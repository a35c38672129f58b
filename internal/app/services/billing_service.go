package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/payments"
)

// BillingService defines membership subscription operations
type BillingService interface {
	Summary(actor *models.Profile) dto.BillingSummary
	Checkout(ctx context.Context, actor *models.Profile) (*dto.RedirectResponse, error)
	Portal(ctx context.Context, actor *models.Profile) (*dto.RedirectResponse, error)
	Cancel(ctx context.Context, actor *models.Profile) (*dto.BillingSummary, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// billingServiceImpl implements BillingService
type billingServiceImpl struct {
	profiles     ProfileStore
	gateway      payments.Gateway
	portalReturn string
	logger       zerolog.Logger
}

// NewBillingService creates a new BillingService. gateway may be nil when
// Stripe is not configured.
func NewBillingService(profiles ProfileStore, gateway payments.Gateway, portalReturn string, logger zerolog.Logger) BillingService {
	return &billingServiceImpl{
		profiles:     profiles,
		gateway:      gateway,
		portalReturn: portalReturn,
		logger:       logger,
	}
}

func (s *billingServiceImpl) Summary(actor *models.Profile) dto.BillingSummary {
	return dto.ToBillingSummary(actor)
}

// Checkout opens a subscription checkout, creating the Stripe customer on first use
func (s *billingServiceImpl) Checkout(ctx context.Context, actor *models.Profile) (*dto.RedirectResponse, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrBillingNotAvailable
	}
	if actor.IsSubscribed() {
		return nil, apperrors.NewConflictError("membership is already active")
	}

	customerID := ""
	if actor.StripeCustomerID != nil {
		customerID = *actor.StripeCustomerID
	}
	if customerID == "" {
		id, err := s.gateway.CreateCustomer(ctx, actor.Email, actor.ID)
		if err != nil {
			s.logger.Error().Err(err).Int64("profileID", actor.ID).Msg("Failed to create Stripe customer")
			return nil, apperrors.NewExternalServiceError("stripe", err)
		}
		if err := s.profiles.UpdateBilling(ctx, actor.ID, models.BillingUpdate{CustomerID: &id}); err != nil {
			return nil, err
		}
		customerID = id
		actor.StripeCustomerID = &id
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, customerID, actor.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("profileID", actor.ID).Msg("Failed to create checkout session")
		return nil, apperrors.NewExternalServiceError("stripe", err)
	}
	return &dto.RedirectResponse{URL: session.URL, SessionID: session.ID}, nil
}

func (s *billingServiceImpl) Portal(ctx context.Context, actor *models.Profile) (*dto.RedirectResponse, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrBillingNotAvailable
	}
	if actor.StripeCustomerID == nil || *actor.StripeCustomerID == "" {
		return nil, apperrors.ErrNoCustomer
	}

	session, err := s.gateway.CreatePortalSession(ctx, *actor.StripeCustomerID, s.portalReturn)
	if err != nil {
		s.logger.Error().Err(err).Int64("profileID", actor.ID).Msg("Failed to create portal session")
		return nil, apperrors.NewExternalServiceError("stripe", err)
	}
	return &dto.RedirectResponse{URL: session.URL, SessionID: session.ID}, nil
}

// Cancel ends the subscription immediately and clears the stored subscription id
func (s *billingServiceImpl) Cancel(ctx context.Context, actor *models.Profile) (*dto.BillingSummary, error) {
	if s.gateway == nil {
		return nil, apperrors.ErrBillingNotAvailable
	}
	if actor.StripeSubscriptionID == nil || *actor.StripeSubscriptionID == "" {
		return nil, apperrors.ErrNoSubscription
	}

	if _, err := s.gateway.CancelSubscription(ctx, *actor.StripeSubscriptionID); err != nil {
		s.logger.Error().Err(err).Int64("profileID", actor.ID).Msg("Failed to cancel subscription")
		return nil, apperrors.NewExternalServiceError("stripe", err)
	}

	status := models.SubscriptionCanceled
	plan := models.PlanFree
	update := models.BillingUpdate{ClearSubscription: true, Status: &status, Plan: &plan}
	if err := s.profiles.UpdateBilling(ctx, actor.ID, update); err != nil {
		return nil, err
	}

	actor.StripeSubscriptionID = nil
	actor.SubscriptionStatus = status
	actor.Plan = plan

	s.logger.Info().Int64("profileID", actor.ID).Msg("Subscription canceled")
	summary := dto.ToBillingSummary(actor)
	return &summary, nil
}

// HandleWebhook applies checkout and subscription events to the owning profile
func (s *billingServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return apperrors.ErrBillingNotAvailable
	}

	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrUnhandledEvent) {
			s.logger.Debug().Str("type", event.Type).Msg("Ignoring Stripe event")
			return nil
		}
		if errors.Is(err, payments.ErrInvalidSignature) {
			return apperrors.ErrWebhookSignature
		}
		return fmt.Errorf("%w: %v", apperrors.ErrBadRequest, err)
	}

	profile, err := s.profileFor(ctx, event)
	if err != nil {
		if errors.Is(err, apperrors.ErrProfileNotFound) {
			s.logger.Warn().Str("eventID", event.ID).Str("customerID", event.CustomerID).Msg("Stripe event for unknown member")
			return nil
		}
		return err
	}

	if staleSubscriptionEvent(profile, event) {
		s.logger.Warn().
			Str("eventID", event.ID).
			Str("type", event.Type).
			Str("subscriptionID", event.SubscriptionID).
			Int64("profileID", profile.ID).
			Msg("Ignoring Stripe event for a replaced subscription")
		return nil
	}

	status := subscriptionStatus(event.Status)
	if event.Type == payments.EventSubscriptionDeleted {
		status = models.SubscriptionCanceled
	}
	plan := planFor(status)
	update := models.BillingUpdate{Status: &status, Plan: &plan}

	switch {
	case status == models.SubscriptionCanceled:
		update.ClearSubscription = true
	case event.SubscriptionID != "":
		update.SubscriptionID = &event.SubscriptionID
	}
	if event.Type == payments.EventCheckoutCompleted && event.CustomerID != "" {
		update.CustomerID = &event.CustomerID
	}

	if err := s.profiles.UpdateBilling(ctx, profile.ID, update); err != nil {
		return err
	}

	s.logger.Info().
		Str("eventID", event.ID).
		Str("type", event.Type).
		Int64("profileID", profile.ID).
		Str("status", string(status)).
		Msg("Applied Stripe event")
	return nil
}

// profileFor prefers the checkout client reference and falls back to the customer id
func (s *billingServiceImpl) profileFor(ctx context.Context, event *payments.WebhookEvent) (*models.Profile, error) {
	if event.ProfileID > 0 {
		return s.profiles.GetByID(ctx, event.ProfileID)
	}
	if event.CustomerID == "" {
		return nil, apperrors.ErrProfileNotFound
	}
	return s.profiles.GetByStripeCustomerID(ctx, event.CustomerID)
}

// staleSubscriptionEvent reports a subscription event for a subscription other
// than the one on file. Stripe does not order deliveries, so these must not
// overwrite the current subscription.
func staleSubscriptionEvent(profile *models.Profile, event *payments.WebhookEvent) bool {
	if event.Type != payments.EventSubscriptionUpdated && event.Type != payments.EventSubscriptionDeleted {
		return false
	}
	if profile.StripeSubscriptionID == nil || *profile.StripeSubscriptionID == "" || event.SubscriptionID == "" {
		return false
	}
	return *profile.StripeSubscriptionID != event.SubscriptionID
}

func subscriptionStatus(stripeStatus string) models.SubscriptionStatus {
	switch s := models.SubscriptionStatus(stripeStatus); s {
	case models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue,
		models.SubscriptionCanceled, models.SubscriptionUnpaid:
		return s
	case "incomplete_expired":
		return models.SubscriptionCanceled
	case "incomplete", "paused":
		return models.SubscriptionUnpaid
	}
	return models.SubscriptionNone
}

func planFor(status models.SubscriptionStatus) string {
	if status == models.SubscriptionActive || status == models.SubscriptionTrialing {
		return models.PlanPremium
	}
	return models.PlanFree
}
