package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// DocumentSignatureHeader carries the hex HMAC of the webhook body
const DocumentSignatureHeader = "X-Signature"

// maxWebhookBody bounds webhook payloads read into memory
const maxWebhookBody = 1 << 20

// ApplicationController handles course application requests
type ApplicationController struct {
	applicationService services.ApplicationService
}

// NewApplicationController creates a new ApplicationController
func NewApplicationController(applicationService services.ApplicationService) *ApplicationController {
	return &ApplicationController{applicationService: applicationService}
}

// Create starts a draft application
// @Summary Create application
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateApplicationRequest true "Course and motivation"
// @Success 201 {object} dto.APIResponse{data=models.CourseApplication}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Failure 409 {object} dto.ErrorResponse "An active application for this course already exists"
// @Router /applications [post]
func (c *ApplicationController) Create(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.CreateApplicationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applicationService.Create(ctx.Request.Context(), profile, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, app)
}

// ListMine returns the caller's applications
// @Summary List my applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.CourseApplication}
// @Router /applications [get]
func (c *ApplicationController) ListMine(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	apps, err := c.applicationService.ListMine(ctx.Request.Context(), profile)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, apps)
}

// Get returns one application
// @Summary Get application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.CourseApplication}
// @Failure 404 {object} dto.ErrorResponse "Application not found"
// @Router /applications/{id} [get]
func (c *ApplicationController) Get(ctx *gin.Context) {
	c.withApplication(ctx, c.applicationService.Get, http.StatusOK)
}

// UpdateDraft edits a draft application
// @Summary Update draft application
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body dto.UpdateApplicationRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.CourseApplication}
// @Failure 409 {object} dto.ErrorResponse "Application is no longer a draft"
// @Router /applications/{id} [put]
func (c *ApplicationController) UpdateDraft(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "application")
	if !ok {
		return
	}

	var req dto.UpdateApplicationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applicationService.UpdateDraft(ctx.Request.Context(), profile, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app)
}

// Submit moves a draft to submitted and requests documents
// @Summary Submit application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.CourseApplication}
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /applications/{id}/submit [post]
func (c *ApplicationController) Submit(ctx *gin.Context) {
	c.withApplication(ctx, c.applicationService.Submit, http.StatusOK)
}

// RequestDocuments (re)creates the document-collection link
// @Summary Request document upload link
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.CourseApplication}
// @Failure 503 {object} dto.ErrorResponse "Document integration unavailable"
// @Router /applications/{id}/documents [post]
func (c *ApplicationController) RequestDocuments(ctx *gin.Context) {
	c.withApplication(ctx, c.applicationService.RequestDocuments, http.StatusOK)
}

// Withdraw cancels an application
// @Summary Withdraw application
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} dto.APIResponse{data=models.CourseApplication}
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /applications/{id}/withdraw [post]
func (c *ApplicationController) Withdraw(ctx *gin.Context) {
	c.withApplication(ctx, c.applicationService.Withdraw, http.StatusOK)
}

// ListByStatus is the staff review queue
func (c *ApplicationController) ListByStatus(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	status := models.ApplicationStatus(ctx.Query("status"))

	result, err := c.applicationService.ListByStatus(ctx.Request.Context(), status, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}

// UpdateStatus records a staff decision
func (c *ApplicationController) UpdateStatus(ctx *gin.Context) {
	staff, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "application")
	if !ok {
		return
	}

	var req dto.UpdateApplicationStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applicationService.UpdateStatus(ctx.Request.Context(), staff, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app)
}

// DocumentWebhook receives completion callbacks from the document-collection service.
// The body is read raw so the signature is checked over the exact bytes sent.
func (c *ApplicationController) DocumentWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.ErrBadRequest)
		return
	}

	if err := c.applicationService.HandleDocumentWebhook(ctx.Request.Context(), body, ctx.GetHeader(DocumentSignatureHeader)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.SuccessResponse{Message: "ok"})
}

type applicationAction func(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error)

// withApplication runs an id-only action for the caller
func (c *ApplicationController) withApplication(ctx *gin.Context, action applicationAction, status int) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "application")
	if !ok {
		return
	}

	app, err := action(ctx.Request.Context(), profile, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, status, app)
}
