package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
)

// ContentController serves CMS articles and the consultation calendar
type ContentController struct {
	contentService  services.ContentService
	calendarService services.CalendarService
}

// NewContentController creates a new ContentController
func NewContentController(contentService services.ContentService, calendarService services.CalendarService) *ContentController {
	return &ContentController{
		contentService:  contentService,
		calendarService: calendarService,
	}
}

// List returns a CMS listing; paging and filter parameters are forwarded
// @Summary List content
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param endpoint path string true "CMS endpoint"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Unknown endpoint"
// @Router /content/{endpoint} [get]
func (c *ContentController) List(ctx *gin.Context) {
	body, err := c.contentService.List(ctx.Request.Context(), ctx.Param("endpoint"), ctx.Request.URL.Query())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, body)
}

// Get returns one CMS entry
// @Summary Get content
// @Tags content
// @Produce json
// @Security BearerAuth
// @Param endpoint path string true "CMS endpoint"
// @Param contentID path string true "Content ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Content not found"
// @Router /content/{endpoint}/{contentID} [get]
func (c *ContentController) Get(ctx *gin.Context) {
	body, err := c.contentService.Get(ctx.Request.Context(), ctx.Param("endpoint"), ctx.Param("contentID"), ctx.Request.URL.Query())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, body)
}

// Purge drops every cached CMS response
func (c *ContentController) Purge(ctx *gin.Context) {
	respond(ctx, http.StatusOK, dto.PurgeResponse{Purged: c.contentService.Purge()})
}

// Availability lists busy consultation slots
// @Summary Consultation availability
// @Tags consultations
// @Produce json
// @Security BearerAuth
// @Param days query int false "Days ahead" default(14)
// @Success 200 {object} dto.APIResponse{data=dto.AvailabilityResponse}
// @Failure 503 {object} dto.ErrorResponse "Calendar not configured"
// @Router /consultations/availability [get]
func (c *ContentController) Availability(ctx *gin.Context) {
	days, ok := queryInt64(ctx, "days")
	if !ok {
		return
	}

	result, err := c.calendarService.Availability(ctx.Request.Context(), int(days))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}
