package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/payments"
)

func strPtr(s string) *string { return &s }

func subscriber() *models.Profile {
	p := member(1)
	p.StripeCustomerID = strPtr("cus_1")
	p.StripeSubscriptionID = strPtr("sub_1")
	p.SubscriptionStatus = models.SubscriptionActive
	p.Plan = models.PlanPremium
	return p
}

func TestBillingService_Cancel(t *testing.T) {
	profiles := new(MockProfileStore)
	gateway := new(MockGateway)
	svc := NewBillingService(profiles, gateway, "https://app.example/billing", zerolog.Nop())

	gateway.On("CancelSubscription", mock.Anything, "sub_1").Return("canceled", nil)
	profiles.On("UpdateBilling", mock.Anything, int64(1), mock.MatchedBy(func(u models.BillingUpdate) bool {
		return u.ClearSubscription && u.SubscriptionID == nil &&
			*u.Status == models.SubscriptionCanceled && *u.Plan == models.PlanFree
	})).Return(nil)

	actor := subscriber()
	summary, err := svc.Cancel(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCanceled, summary.SubscriptionStatus)
	assert.Nil(t, actor.StripeSubscriptionID)
	assert.True(t, summary.HasCustomer)
	profiles.AssertExpectations(t)
}

func TestBillingService_Cancel_Failures(t *testing.T) {
	profiles := new(MockProfileStore)
	gateway := new(MockGateway)
	svc := NewBillingService(profiles, gateway, "", zerolog.Nop())

	_, err := svc.Cancel(context.Background(), member(1))
	assert.ErrorIs(t, err, apperrors.ErrNoSubscription)

	gateway.On("CancelSubscription", mock.Anything, "sub_1").Return("", errors.New("stripe down"))
	actor := subscriber()
	_, err = svc.Cancel(context.Background(), actor)
	assert.ErrorIs(t, err, apperrors.ErrExternalService)
	assert.NotNil(t, actor.StripeSubscriptionID)
	profiles.AssertNotCalled(t, "UpdateBilling", mock.Anything, mock.Anything, mock.Anything)

	disabled := NewBillingService(profiles, nil, "", zerolog.Nop())
	_, err = disabled.Cancel(context.Background(), subscriber())
	assert.ErrorIs(t, err, apperrors.ErrBillingNotAvailable)
}

func TestBillingService_Checkout(t *testing.T) {
	profiles := new(MockProfileStore)
	gateway := new(MockGateway)
	svc := NewBillingService(profiles, gateway, "", zerolog.Nop())

	gateway.On("CreateCustomer", mock.Anything, "m@example.com", int64(1)).Return("cus_new", nil)
	profiles.On("UpdateBilling", mock.Anything, int64(1), mock.MatchedBy(func(u models.BillingUpdate) bool {
		return u.CustomerID != nil && *u.CustomerID == "cus_new" && u.Status == nil
	})).Return(nil)
	gateway.On("CreateCheckoutSession", mock.Anything, "cus_new", int64(1)).
		Return(&payments.Session{ID: "cs_1", URL: "https://checkout.example/cs_1"}, nil)

	resp, err := svc.Checkout(context.Background(), member(1))
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_1", resp.URL)
	gateway.AssertExpectations(t)

	_, err = svc.Checkout(context.Background(), subscriber())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestBillingService_Portal(t *testing.T) {
	gateway := new(MockGateway)
	svc := NewBillingService(new(MockProfileStore), gateway, "https://app.example/billing", zerolog.Nop())

	_, err := svc.Portal(context.Background(), member(1))
	assert.ErrorIs(t, err, apperrors.ErrNoCustomer)

	gateway.On("CreatePortalSession", mock.Anything, "cus_1", "https://app.example/billing").
		Return(&payments.Session{ID: "bps_1", URL: "https://portal.example"}, nil)
	resp, err := svc.Portal(context.Background(), subscriber())
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example", resp.URL)
}

func TestBillingService_HandleWebhook(t *testing.T) {
	payload := []byte(`{}`)

	t.Run("checkout completed", func(t *testing.T) {
		profiles := new(MockProfileStore)
		gateway := new(MockGateway)
		svc := NewBillingService(profiles, gateway, "", zerolog.Nop())

		gateway.On("ParseWebhook", payload, "sig").Return(&payments.WebhookEvent{
			ID: "evt_1", Type: payments.EventCheckoutCompleted,
			CustomerID: "cus_1", SubscriptionID: "sub_9", Status: "active", ProfileID: 1,
		}, nil)
		profiles.On("GetByID", mock.Anything, int64(1)).Return(member(1), nil)
		profiles.On("UpdateBilling", mock.Anything, int64(1), mock.MatchedBy(func(u models.BillingUpdate) bool {
			return *u.CustomerID == "cus_1" && *u.SubscriptionID == "sub_9" && !u.ClearSubscription &&
				*u.Status == models.SubscriptionActive && *u.Plan == models.PlanPremium
		})).Return(nil)

		require.NoError(t, svc.HandleWebhook(context.Background(), payload, "sig"))
		profiles.AssertExpectations(t)
	})

	t.Run("subscription deleted clears the id", func(t *testing.T) {
		profiles := new(MockProfileStore)
		gateway := new(MockGateway)
		svc := NewBillingService(profiles, gateway, "", zerolog.Nop())

		gateway.On("ParseWebhook", payload, "sig").Return(&payments.WebhookEvent{
			ID: "evt_2", Type: payments.EventSubscriptionDeleted, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "canceled",
		}, nil)
		profiles.On("GetByStripeCustomerID", mock.Anything, "cus_1").Return(subscriber(), nil)
		profiles.On("UpdateBilling", mock.Anything, int64(1), mock.MatchedBy(func(u models.BillingUpdate) bool {
			return u.ClearSubscription && u.SubscriptionID == nil && u.CustomerID == nil &&
				*u.Status == models.SubscriptionCanceled && *u.Plan == models.PlanFree
		})).Return(nil)

		require.NoError(t, svc.HandleWebhook(context.Background(), payload, "sig"))
		profiles.AssertExpectations(t)
	})

	t.Run("past due keeps the subscription", func(t *testing.T) {
		profiles := new(MockProfileStore)
		gateway := new(MockGateway)
		svc := NewBillingService(profiles, gateway, "", zerolog.Nop())

		gateway.On("ParseWebhook", payload, "sig").Return(&payments.WebhookEvent{
			ID: "evt_3", Type: payments.EventSubscriptionUpdated, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "past_due",
		}, nil)
		profiles.On("GetByStripeCustomerID", mock.Anything, "cus_1").Return(subscriber(), nil)
		profiles.On("UpdateBilling", mock.Anything, int64(1), mock.MatchedBy(func(u models.BillingUpdate) bool {
			return !u.ClearSubscription && *u.SubscriptionID == "sub_1" &&
				*u.Status == models.SubscriptionPastDue && *u.Plan == models.PlanFree
		})).Return(nil)

		require.NoError(t, svc.HandleWebhook(context.Background(), payload, "sig"))
	})

	t.Run("events for a replaced subscription are ignored", func(t *testing.T) {
		profiles := new(MockProfileStore)
		gateway := new(MockGateway)
		svc := NewBillingService(profiles, gateway, "", zerolog.Nop())

		resubscribed := subscriber()
		resubscribed.StripeSubscriptionID = strPtr("sub_2")

		gateway.On("ParseWebhook", payload, "late-delete").Return(&payments.WebhookEvent{
			ID: "evt_6", Type: payments.EventSubscriptionDeleted, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "canceled",
		}, nil)
		gateway.On("ParseWebhook", payload, "late-update").Return(&payments.WebhookEvent{
			ID: "evt_7", Type: payments.EventSubscriptionUpdated, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "past_due",
		}, nil)
		profiles.On("GetByStripeCustomerID", mock.Anything, "cus_1").Return(resubscribed, nil)

		assert.NoError(t, svc.HandleWebhook(context.Background(), payload, "late-delete"))
		assert.NoError(t, svc.HandleWebhook(context.Background(), payload, "late-update"))
		profiles.AssertNotCalled(t, "UpdateBilling", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unhandled and unknown events are acknowledged", func(t *testing.T) {
		profiles := new(MockProfileStore)
		gateway := new(MockGateway)
		svc := NewBillingService(profiles, gateway, "", zerolog.Nop())

		gateway.On("ParseWebhook", payload, "unhandled").
			Return(&payments.WebhookEvent{ID: "evt_4", Type: "invoice.paid"}, payments.ErrUnhandledEvent)
		gateway.On("ParseWebhook", payload, "stranger").
			Return(&payments.WebhookEvent{ID: "evt_5", Type: payments.EventSubscriptionUpdated, CustomerID: "cus_x", Status: "active"}, nil)
		profiles.On("GetByStripeCustomerID", mock.Anything, "cus_x").Return(nil, apperrors.ErrProfileNotFound)

		assert.NoError(t, svc.HandleWebhook(context.Background(), payload, "unhandled"))
		assert.NoError(t, svc.HandleWebhook(context.Background(), payload, "stranger"))
		profiles.AssertNotCalled(t, "UpdateBilling", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad signature", func(t *testing.T) {
		gateway := new(MockGateway)
		svc := NewBillingService(new(MockProfileStore), gateway, "", zerolog.Nop())
		gateway.On("ParseWebhook", payload, "forged").Return(nil, payments.ErrInvalidSignature)

		err := svc.HandleWebhook(context.Background(), payload, "forged")
		assert.ErrorIs(t, err, apperrors.ErrWebhookSignature)
	})
}

func TestSubscriptionStatus(t *testing.T) {
	assert.Equal(t, models.SubscriptionTrialing, subscriptionStatus("trialing"))
	assert.Equal(t, models.SubscriptionCanceled, subscriptionStatus("incomplete_expired"))
	assert.Equal(t, models.SubscriptionUnpaid, subscriptionStatus("incomplete"))
	assert.Equal(t, models.SubscriptionNone, subscriptionStatus("mystery"))
	assert.Equal(t, models.PlanPremium, planFor(models.SubscriptionTrialing))
	assert.Equal(t, models.PlanFree, planFor(models.SubscriptionPastDue))
}
