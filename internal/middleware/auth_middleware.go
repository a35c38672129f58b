package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ContextIdentityID = "identityID"
	ContextEmail      = "email"
	ContextProfile    = "profile"
)

// ProfileResolver reads or creates the profile behind an identity
type ProfileResolver interface {
	Resolve(ctx context.Context, identityID, email string) (*models.Profile, error)
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	profiles   ProfileResolver
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, profiles ProfileResolver) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		profiles:   profiles,
	}
}

// JWTAuth validates the identity provider token and stores the identity in the context
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// Browsers cannot set headers on websocket upgrades
		if authHeader == "" && isUpgrade(c) {
			if queryToken := c.Query("token"); queryToken != "" {
				authHeader = "Bearer " + queryToken
			}
		}

		if authHeader == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Authorization header missing")

			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Invalid token format")

			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			errorCode := dto.ErrorCodeInvalidToken
			errorDetails := "Invalid token"

			if errors.Is(err, auth.ErrExpiredToken) {
				errorCode = dto.ErrorCodeExpiredToken
				errorDetails = "Token has expired"
			} else if errors.Is(err, auth.ErrInvalidFormat) {
				errorDetails = "Invalid token format"
			}

			errorDetail := dto.NewErrorDetail(errorCode, "Authentication failed")
			errorDetail = errorDetail.WithDetails(errorDetails)

			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Set(ContextIdentityID, claims.IdentityID())
		c.Set(ContextEmail, claims.Email)

		c.Next()
	}
}

// LoadProfile resolves the caller's profile, creating it on first request
func (m *AuthMiddleware) LoadProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID := c.GetString(ContextIdentityID)
		if identityID == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Identity not found")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		profile, err := m.profiles.Resolve(c.Request.Context(), identityID, c.GetString(ContextEmail))
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}

		c.Set(ContextProfile, profile)
		c.Next()
	}
}

// RoleRequired lets through profiles holding role; admins pass staff checks
func (m *AuthMiddleware) RoleRequired(role models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := CurrentProfile(c)
		if !ok {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Profile not loaded")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		if !profile.HasRole(role) {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied")
			errorDetail = errorDetail.WithDetails("You don't have sufficient permissions for this operation")

			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}

// OnboardingRequired blocks member features until onboarding is done
func (m *AuthMiddleware) OnboardingRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := CurrentProfile(c)
		if !ok || !profile.OnboardingCompleted {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Onboarding required")
			errorDetail = errorDetail.WithDetails(map[string]string{"next": dto.NextOnboarding})
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}

// CurrentProfile returns the profile stored by LoadProfile
func CurrentProfile(c *gin.Context) (*models.Profile, bool) {
	v, exists := c.Get(ContextProfile)
	if !exists {
		return nil, false
	}
	profile, ok := v.(*models.Profile)
	return profile, ok && profile != nil
}

func isUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}
