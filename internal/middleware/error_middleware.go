package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/logger"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Order matters: domain sentinels come before the generic ones they resemble
var errorMappings = []errorMapping{
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrOnboardingIncomplete, http.StatusForbidden, dto.ErrorCodeForbidden, "Onboarding required"},

	{apperrors.ErrProfileNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Profile not found"},
	{apperrors.ErrSchoolNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "School not found"},
	{apperrors.ErrCourseNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Course not found"},
	{apperrors.ErrApplicationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Application not found"},
	{apperrors.ErrChatSessionNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Chat session not found"},
	{apperrors.ErrVisaPlanNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Visa plan not found"},
	{apperrors.ErrContentNotAllowed, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Content not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},

	{apperrors.ErrApplicationExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "An active application for this course already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrSchoolHasCourses, http.StatusConflict, dto.ErrorCodeConflict, "School has courses and cannot be deleted"},
	{apperrors.ErrCourseNotPublished, http.StatusConflict, dto.ErrorCodeConflict, "Course is not open for applications"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Status transition not allowed"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},

	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrWebhookSignature, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Invalid webhook signature"},
	{apperrors.ErrInvalidOAuthState, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Invalid or expired authorization state"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},

	{apperrors.ErrRateLimited, http.StatusTooManyRequests, dto.ErrorCodeRateLimited, "Too many requests"},

	{apperrors.ErrBillingNotAvailable, http.StatusServiceUnavailable, dto.ErrorCodeBillingUnavailable, "Billing is not available"},
	{apperrors.ErrNoCustomer, http.StatusConflict, dto.ErrorCodeNoCustomer, "No billing customer on file"},
	{apperrors.ErrNoSubscription, http.StatusConflict, dto.ErrorCodeNoSubscription, "No active subscription"},

	{apperrors.ErrIntegrationNotConnected, http.StatusServiceUnavailable, dto.ErrorCodeIntegrationNotConnected, "Integration not connected"},
	{apperrors.ErrIntegrationDisabled, http.StatusServiceUnavailable, dto.ErrorCodeIntegrationDisabled, "Integration disabled"},
	{apperrors.ErrExternalService, http.StatusBadGateway, dto.ErrorCodeExternalServiceError, "External service error"},
}

// HandleAPIError maps an error onto a status code and the flat error response
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}

		detail := dto.NewErrorDetail(m.code, m.message)
		var custom *apperrors.CustomError
		if errors.As(err, &custom) && custom.Message != "" {
			detail = detail.WithDetails(custom.Message)
		} else if m.status == http.StatusBadRequest || m.status == http.StatusConflict {
			detail = detail.WithDetails(err.Error())
		}
		if m.status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.FullPath()).Msg("Upstream failure")
		} else {
			detail = detail.WithSeverity(dto.ErrorSeverityWarning)
		}

		c.JSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("Unhandled error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical),
	))
}
