package dto

import "github.com/frogmembers/api/internal/app/models"

// CreateChatSessionRequest opens a conversation
type CreateChatSessionRequest struct {
	Title string `json:"title" binding:"max=120"`
}

// SendMessageRequest is a member turn
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,notblank,max=4000"`
}

// ChatSessionDetail is a session with its transcript
type ChatSessionDetail struct {
	*models.ChatSession
	Messages []*models.ChatMessage `json:"messages"`
}

// SendMessageResponse returns both sides of the exchange
type SendMessageResponse struct {
	UserMessage      *models.ChatMessage `json:"userMessage"`
	AssistantMessage *models.ChatMessage `json:"assistantMessage"`
}
