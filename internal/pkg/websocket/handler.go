package websocket

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
)

// SessionAuthorizer decides whether an identity may subscribe to a chat session
type SessionAuthorizer interface {
	AuthorizeSubscription(ctx context.Context, identityID string, sessionID int64) error
}

// Handler upgrades chat session subscriptions
type Handler struct {
	hub        *Hub
	authorizer SessionAuthorizer
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authorizer SessionAuthorizer, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		authorizer: authorizer,
		upgrader:   newUpgrader(allowedOrigins),
		logger:     logger,
	}
}

// HandleConnection subscribes the caller to GET /chat/sessions/:id/ws
func (h *Handler) HandleConnection(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid chat session ID")))
		return
	}

	identityID := c.GetString("identityID")
	if identityID == "" {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	if err := h.authorizer.AuthorizeSubscription(c.Request.Context(), identityID, sessionID); err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrChatSessionNotFound, apperrors.ErrResourceNotFound):
			c.JSON(http.StatusNotFound, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Chat session not found")))
		case errors.Is(err, apperrors.ErrPermissionDenied):
			c.JSON(http.StatusForbidden, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied")))
		default:
			h.logger.Error().Err(err).Int64("sessionID", sessionID).Msg("Failed to authorize chat subscription")
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn().Err(err).Int64("sessionID", sessionID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, 64),
		identityID: identityID,
		sessionID:  sessionID,
		logger:     h.logger,
	}
	if !h.hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
