package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// CatalogController handles school and course catalog requests
type CatalogController struct {
	catalogService services.CatalogService
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService services.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// seesDrafts reports whether the caller may read unpublished catalog entries
func seesDrafts(ctx *gin.Context) bool {
	profile, ok := middleware.CurrentProfile(ctx)
	return ok && profile.HasRole(models.RoleStaff)
}

// ListSchools returns published schools
// @Summary List schools
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name search"
// @Param country query string false "ISO country code"
// @Param city query string false "City"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /schools [get]
func (c *CatalogController) ListSchools(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	filter := models.SchoolFilter{
		Query:         strings.TrimSpace(ctx.Query("q")),
		Country:       strings.ToUpper(strings.TrimSpace(ctx.Query("country"))),
		City:          strings.TrimSpace(ctx.Query("city")),
		PublishedOnly: !seesDrafts(ctx),
	}

	result, err := c.catalogService.ListSchools(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}

// GetSchool returns a school with its courses
// @Summary Get school
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "School ID"
// @Success 200 {object} dto.APIResponse{data=dto.SchoolDetailResponse}
// @Failure 404 {object} dto.ErrorResponse "School not found"
// @Router /schools/{id} [get]
func (c *CatalogController) GetSchool(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "school")
	if !ok {
		return
	}

	school, err := c.catalogService.GetSchool(ctx.Request.Context(), id, seesDrafts(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, school)
}

// ListCourses searches courses
// @Summary List courses
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param school_id query int false "School ID"
// @Param category query string false "Course category"
// @Param max_tuition query int false "Maximum tuition in cents"
// @Param q query string false "Name search"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /courses [get]
func (c *CatalogController) ListCourses(ctx *gin.Context) {
	filter := models.CourseFilter{
		Category:      strings.TrimSpace(ctx.Query("category")),
		Query:         strings.TrimSpace(ctx.Query("q")),
		PublishedOnly: !seesDrafts(ctx),
	}

	var ok bool
	if filter.SchoolID, ok = queryInt64(ctx, "school_id"); !ok {
		return
	}
	if filter.MaxTuition, ok = queryInt64(ctx, "max_tuition"); !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	result, err := c.catalogService.ListCourses(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, result)
}

// GetCourse returns one course
// @Summary Get course
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=models.Course}
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id} [get]
func (c *CatalogController) GetCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	course, err := c.catalogService.GetCourse(ctx.Request.Context(), id, seesDrafts(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, course)
}

// CreateSchool adds a school
func (c *CatalogController) CreateSchool(ctx *gin.Context) {
	var req dto.SchoolRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	school, err := c.catalogService.CreateSchool(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, school)
}

// UpdateSchool replaces a school's fields
func (c *CatalogController) UpdateSchool(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "school")
	if !ok {
		return
	}

	var req dto.SchoolRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	school, err := c.catalogService.UpdateSchool(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, school)
}

// DeleteSchool removes a school without courses
func (c *CatalogController) DeleteSchool(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "school")
	if !ok {
		return
	}

	if err := c.catalogService.DeleteSchool(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateCourse adds a course to a school
func (c *CatalogController) CreateCourse(ctx *gin.Context) {
	var req dto.CourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.catalogService.CreateCourse(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, course)
}

// UpdateCourse replaces a course's fields
func (c *CatalogController) UpdateCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	var req dto.CourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.catalogService.UpdateCourse(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, course)
}

// DeleteCourse removes a course without applications
func (c *CatalogController) DeleteCourse(ctx *gin.Context) {
	id, ok := pathID(ctx, "id", "course")
	if !ok {
		return
	}

	if err := c.catalogService.DeleteCourse(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// queryInt64 reads an optional non-negative integer query parameter
func queryInt64(ctx *gin.Context, name string) (int64, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid query parameter").WithField(name)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return v, true
}
