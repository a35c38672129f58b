package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/middleware"
)

// ChatController handles AI assistant conversations
type ChatController struct {
	chatService services.ChatService
}

// NewChatController creates a new ChatController
func NewChatController(chatService services.ChatService) *ChatController {
	return &ChatController{
		chatService: chatService,
	}
}

// ListSessions godoc
// @Summary List chat sessions
// @Description Conversations owned by the caller, most recently active first
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.ChatSession}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail} "Unauthorized: JWT token missing or invalid"
// @Router /chat/sessions [get]
func (c *ChatController) ListSessions(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	sessions, err := c.chatService.ListSessions(ctx.Request.Context(), profile)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, sessions)
}

// CreateSession godoc
// @Summary Start a chat session
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateChatSessionRequest false "Optional title"
// @Success 201 {object} dto.APIResponse{data=models.ChatSession}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /chat/sessions [post]
func (c *ChatController) CreateSession(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.CreateChatSessionRequest
	if ctx.Request.ContentLength != 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	session, err := c.chatService.CreateSession(ctx.Request.Context(), profile, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, session)
}

// GetSession godoc
// @Summary Get a chat session with its transcript
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat session ID"
// @Success 200 {object} dto.APIResponse{data=dto.ChatSessionDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail} "Chat session not found"
// @Router /chat/sessions/{id} [get]
func (c *ChatController) GetSession(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "chat session")
	if !ok {
		return
	}

	detail, err := c.chatService.GetSession(ctx.Request.Context(), profile, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, detail)
}

// DeleteSession godoc
// @Summary Delete a chat session
// @Tags chat
// @Security BearerAuth
// @Param id path int true "Chat session ID"
// @Success 204
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail} "Chat session not found"
// @Router /chat/sessions/{id} [delete]
func (c *ChatController) DeleteSession(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "chat session")
	if !ok {
		return
	}

	if err := c.chatService.DeleteSession(ctx.Request.Context(), profile, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SendMessage godoc
// @Summary Send a message to the assistant
// @Description Stores the member turn, asks the assistant and stores its reply. Subscribers of the session room receive both.
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Chat session ID"
// @Param request body dto.SendMessageRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=dto.SendMessageResponse}
// @Failure 429 {object} dto.APIResponse{error=dto.ErrorDetail} "Too many messages"
// @Failure 502 {object} dto.APIResponse{error=dto.ErrorDetail} "Assistant unavailable"
// @Router /chat/sessions/{id}/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	profile, ok := actor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id", "chat session")
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.chatService.SendMessage(ctx.Request.Context(), profile, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, result)
}
