package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// VisaPlanController handles visa pathway plans
type VisaPlanController struct {
	visaPlanService services.VisaPlanService
}

// NewVisaPlanController creates a new VisaPlanController
func NewVisaPlanController(visaPlanService services.VisaPlanService) *VisaPlanController {
	return &VisaPlanController{visaPlanService: visaPlanService}
}

// List returns the caller's plans
func (c *VisaPlanController) List(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	plans, err := c.visaPlanService.List(ctx.Request.Context(), profile)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, plans)
}

// Create stores a plan with its steps
// @Summary Create visa plan
// @Tags visa-plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.VisaPlanRequest true "Plan and ordered steps"
// @Success 201 {object} dto.APIResponse{data=models.VisaPlan}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /visa-plans [post]
func (c *VisaPlanController) Create(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.VisaPlanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	plan, err := c.visaPlanService.Create(ctx.Request.Context(), profile, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, plan)
}

// Get returns a plan with steps and reviews
func (c *VisaPlanController) Get(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "visa plan")
	if !ok {
		return
	}

	plan, err := c.visaPlanService.Get(ctx.Request.Context(), profile, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, plan)
}

// Update replaces a plan and its steps
// @Summary Update visa plan
// @Tags visa-plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Visa plan ID"
// @Param request body dto.VisaPlanRequest true "Plan and ordered steps"
// @Success 200 {object} dto.APIResponse{data=models.VisaPlan}
// @Failure 409 {object} dto.ErrorResponse "Plan is awaiting review"
// @Router /visa-plans/{id} [put]
func (c *VisaPlanController) Update(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "visa plan")
	if !ok {
		return
	}

	var req dto.VisaPlanRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	plan, err := c.visaPlanService.Update(ctx.Request.Context(), profile, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, plan)
}

// Delete removes a plan
func (c *VisaPlanController) Delete(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "visa plan")
	if !ok {
		return
	}

	if err := c.visaPlanService.Delete(ctx.Request.Context(), profile, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// RequestReview asks staff to review a plan
// @Summary Request review
// @Tags visa-plans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Visa plan ID"
// @Success 200 {object} dto.APIResponse{data=models.VisaPlan}
// @Failure 409 {object} dto.ErrorResponse "Plan cannot be sent for review"
// @Router /visa-plans/{id}/request-review [post]
func (c *VisaPlanController) RequestReview(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "visa plan")
	if !ok {
		return
	}

	plan, err := c.visaPlanService.RequestReview(ctx.Request.Context(), profile, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, plan)
}

// ListForReview is the staff review queue
func (c *VisaPlanController) ListForReview(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	status := models.VisaPlanStatus(ctx.Query("status"))

	result, err := c.visaPlanService.ListForReview(ctx.Request.Context(), status, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}

// Review records a staff verdict
func (c *VisaPlanController) Review(ctx *gin.Context) {
	staff, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "visa plan")
	if !ok {
		return
	}

	var req dto.VisaPlanReviewRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	plan, err := c.visaPlanService.Review(ctx.Request.Context(), staff, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, plan)
}
