package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/apperrors"
)

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// BillingController handles membership subscriptions
type BillingController struct {
	billingService services.BillingService
}

// NewBillingController creates a new BillingController
func NewBillingController(billingService services.BillingService) *BillingController {
	return &BillingController{billingService: billingService}
}

// Summary returns the caller's subscription state
// @Summary Billing summary
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.BillingSummary}
// @Router /billing [get]
func (c *BillingController) Summary(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	respond(ctx, http.StatusOK, c.billingService.Summary(profile))
}

// Checkout opens a hosted subscription checkout
// @Summary Start checkout
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RedirectResponse}
// @Failure 409 {object} dto.ErrorResponse "Already subscribed"
// @Failure 503 {object} dto.ErrorResponse "Billing not available"
// @Router /billing/checkout [post]
func (c *BillingController) Checkout(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	redirect, err := c.billingService.Checkout(ctx.Request.Context(), profile)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, redirect)
}

// Portal opens the hosted billing portal
// @Summary Open billing portal
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.RedirectResponse}
// @Failure 409 {object} dto.ErrorResponse "No billing customer"
// @Router /billing/portal [post]
func (c *BillingController) Portal(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	redirect, err := c.billingService.Portal(ctx.Request.Context(), profile)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, redirect)
}

// Cancel ends the caller's subscription
// @Summary Cancel subscription
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.BillingSummary}
// @Failure 409 {object} dto.ErrorResponse "No active subscription"
// @Router /billing/cancel [post]
func (c *BillingController) Cancel(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	summary, err := c.billingService.Cancel(ctx.Request.Context(), profile)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, summary)
}

// Webhook receives payment provider events
func (c *BillingController) Webhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.ErrBadRequest)
		return
	}

	if err := c.billingService.HandleWebhook(ctx.Request.Context(), payload, ctx.GetHeader(StripeSignatureHeader)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.SuccessResponse{Message: "ok"})
}
