package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/repositories"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// ProfileController handles the current member and the community directory
type ProfileController struct {
	profileService   services.ProfileService
	directoryService services.DirectoryService
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService services.ProfileService, directoryService services.DirectoryService) *ProfileController {
	return &ProfileController{
		profileService:   profileService,
		directoryService: directoryService,
	}
}

// GetMe returns the caller's profile and the route the client should open next
// @Summary Get current member
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.MeResponse}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized - Invalid or missing token"
// @Router /me [get]
func (c *ProfileController) GetMe(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	respond(ctx, http.StatusOK, dto.NewMeResponse(profile))
}

// UpdateMe edits the caller's profile
// @Summary Update current member
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.MeResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /me [put]
func (c *ProfileController) UpdateMe(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	updated, err := c.profileService.UpdateProfile(ctx.Request.Context(), profile, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.NewMeResponse(updated))
}

// CompleteOnboarding stores onboarding answers and unlocks the dashboard
// @Summary Complete onboarding
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.OnboardingRequest true "Onboarding answers"
// @Success 200 {object} dto.APIResponse{data=dto.MeResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Router /me/onboarding [post]
func (c *ProfileController) CompleteOnboarding(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.OnboardingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	updated, err := c.profileService.CompleteOnboarding(ctx.Request.Context(), profile, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.NewMeResponse(updated))
}

// UploadAvatar stores a profile picture from the "file" form field
// @Summary Upload avatar
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file"
// @Success 200 {object} dto.APIResponse{data=dto.MeResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing or unsupported file"
// @Router /me/avatar [post]
func (c *ProfileController) UploadAvatar(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "File is required")
		errorDetail = errorDetail.WithField("file")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	updated, err := c.profileService.UploadAvatar(ctx.Request.Context(), profile, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.NewMeResponse(updated))
}

// ListDirectory lists members who opted into the directory
// @Summary Community directory
// @Tags directory
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name or bio search"
// @Param country query string false "Residence country"
// @Param occupation query string false "Occupation"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /directory [get]
func (c *ProfileController) ListDirectory(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	filter := repositories.DirectoryFilter{
		Query:      ctx.Query("q"),
		Country:    ctx.Query("country"),
		Occupation: ctx.Query("occupation"),
	}

	result, err := c.directoryService.List(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}

// GetDirectoryEntry returns one public member card
func (c *ProfileController) GetDirectoryEntry(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "member")
	if !ok {
		return
	}

	entry, err := c.directoryService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, entry)
}
