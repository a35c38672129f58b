package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenInvalid    = errors.New("invalid token")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Rate limiting
	ErrRateLimited = errors.New("too many requests")
)

// Profile errors
var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrOnboardingIncomplete = errors.New("onboarding not completed")
)

// Catalog errors
var (
	ErrSchoolNotFound     = errors.New("school not found")
	ErrSchoolHasCourses   = errors.New("school has courses and cannot be deleted")
	ErrCourseNotFound     = errors.New("course not found")
	ErrCourseNotPublished = errors.New("course is not open for applications")
)

// Application errors
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrApplicationExists   = errors.New("an active application for this course already exists")
	ErrInvalidTransition   = errors.New("status transition not allowed")
)

// Chat errors
var (
	ErrChatSessionNotFound = errors.New("chat session not found")
)

// Visa plan errors
var (
	ErrVisaPlanNotFound = errors.New("visa plan not found")
)

// Billing errors
var (
	ErrNoCustomer          = errors.New("no billing customer on file")
	ErrNoSubscription      = errors.New("no active subscription")
	ErrWebhookSignature    = errors.New("invalid webhook signature")
	ErrBillingNotAvailable = errors.New("billing is not configured")
)

// Integration errors
var (
	ErrIntegrationNotConnected = errors.New("integration not connected")
	ErrIntegrationDisabled     = errors.New("integration disabled")
	ErrExternalService         = errors.New("external service error")
	ErrContentNotAllowed       = errors.New("content endpoint not allowed")
	ErrInvalidOAuthState       = errors.New("invalid or expired oauth state")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewExternalServiceError wraps a failure from a third-party integration.
func NewExternalServiceError(service string, err error) error {
	return &CustomError{
		Err:     ErrExternalService,
		Message: service + ": " + err.Error(),
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError carries a client-facing message on top of a sentinel error
type CustomError struct {
	Err     error
	Message string
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}
