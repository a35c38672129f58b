package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// AdminController handles the back-office
type AdminController struct {
	adminService services.AdminService
	// defaultReturnURL is used when connect is called without return_url
	defaultReturnURL string
}

// NewAdminController creates a new AdminController
func NewAdminController(adminService services.AdminService, defaultReturnURL string) *AdminController {
	return &AdminController{
		adminService:     adminService,
		defaultReturnURL: defaultReturnURL,
	}
}

// ListMembers searches every profile
// @Summary List members
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name or email search"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 403 {object} dto.ErrorResponse "Staff role required"
// @Router /admin/members [get]
func (c *AdminController) ListMembers(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)

	result, err := c.adminService.ListMembers(ctx.Request.Context(), strings.TrimSpace(ctx.Query("q")), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}

// GetMember returns a profile with its roles
func (c *AdminController) GetMember(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "member")
	if !ok {
		return
	}

	member, err := c.adminService.GetMember(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, member)
}

// GrantRole gives a member a back-office role
// @Summary Grant role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param request body dto.GrantRoleRequest true "Role"
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Router /admin/members/{id}/roles [post]
func (c *AdminController) GrantRole(ctx *gin.Context) {
	admin, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "member")
	if !ok {
		return
	}

	var req dto.GrantRoleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	member, err := c.adminService.GrantRole(ctx.Request.Context(), admin, id, models.RoleType(req.Role))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, member)
}

// RevokeRole removes a back-office role
// @Summary Revoke role
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param role path string true "Role" Enums(admin, staff)
// @Success 200 {object} dto.APIResponse{data=models.Profile}
// @Failure 409 {object} dto.ErrorResponse "Cannot revoke the last admin"
// @Router /admin/members/{id}/roles/{role} [delete]
func (c *AdminController) RevokeRole(ctx *gin.Context) {
	admin, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "member")
	if !ok {
		return
	}

	member, err := c.adminService.RevokeRole(ctx.Request.Context(), admin, id, models.RoleType(ctx.Param("role")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, member)
}

// Stats returns dashboard counters
func (c *AdminController) Stats(ctx *gin.Context) {
	stats, err := c.adminService.Stats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, stats)
}

// DocumentsStatus reports whether the document integration holds a refresh token
func (c *AdminController) DocumentsStatus(ctx *gin.Context) {
	status, err := c.adminService.IntegrationStatus(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, status)
}

// DocumentsConnect sends the admin to the provider consent screen
func (c *AdminController) DocumentsConnect(ctx *gin.Context) {
	returnURL, ok := c.returnURL(strings.TrimSpace(ctx.Query("return_url")))
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, "return_url must point at the admin app")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	authURL, err := c.adminService.ConnectURL(ctx.Request.Context(), returnURL)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if ctx.Query("format") == "json" {
		respond(ctx, http.StatusOK, dto.RedirectResponse{URL: authURL})
		return
	}
	ctx.Redirect(http.StatusFound, authURL)
}

// returnURL resolves the post-consent destination. Only paths on the admin
// app's origin are accepted; the callback redirects there unauthenticated.
func (c *AdminController) returnURL(raw string) (string, bool) {
	if raw == "" {
		return c.defaultReturnURL, true
	}

	base, err := url.Parse(c.defaultReturnURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", false
	}
	target, err := url.Parse(raw)
	if err != nil || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return "", false
	}
	if !target.IsAbs() {
		if !strings.HasPrefix(target.Path, "/") || target.Host != "" {
			return "", false
		}
		return base.ResolveReference(target).String(), true
	}
	if target.Scheme != base.Scheme || target.Host != base.Host || target.User != nil {
		return "", false
	}
	return target.String(), true
}

// DocumentsCallback completes the consent flow. It is reached by a browser
// redirect, so the one-time state is the only credential.
func (c *AdminController) DocumentsCallback(ctx *gin.Context) {
	if errParam := ctx.Query("error"); errParam != "" {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeBadRequest, "Authorization was declined").WithDetails(errParam)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	returnURL, err := c.adminService.Callback(ctx.Request.Context(), ctx.Query("state"), ctx.Query("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if returnURL == "" {
		respond(ctx, http.StatusOK, dto.SuccessResponse{Message: "Document integration connected"})
		return
	}
	ctx.Redirect(http.StatusFound, returnURL)
}
