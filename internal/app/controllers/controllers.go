package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// respond wraps data in the standard envelope
func respond(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, dto.APIResponse{
		Data:      data,
		Timestamp: time.Now(),
	})
}

// pathID reads a positive id path parameter, writing a 400 when it is invalid
func pathID(ctx *gin.Context, name, label string) (int64, bool) {
	id, ok := helpers.ParseInt64Param(ctx, name)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+label+" ID")
		errorDetail = errorDetail.WithDetails("ID must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// actor returns the profile loaded by the auth middleware
func actor(ctx *gin.Context) (*models.Profile, bool) {
	profile, ok := middleware.CurrentProfile(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return nil, false
	}
	return profile, true
}
