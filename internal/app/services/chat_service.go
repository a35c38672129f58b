package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/ai"
	"github.com/frogmembers/api/internal/pkg/apperrors"
)

// Realtime event types pushed to chat session subscribers
const (
	ChatEventMessage = "message"
	ChatEventTyping  = "typing"
)

const maxTitleRunes = 60

// ChatService defines the AI assistant conversation operations
type ChatService interface {
	ListSessions(ctx context.Context, actor *models.Profile) ([]*models.ChatSession, error)
	CreateSession(ctx context.Context, actor *models.Profile, req *dto.CreateChatSessionRequest) (*models.ChatSession, error)
	GetSession(ctx context.Context, actor *models.Profile, id int64) (*dto.ChatSessionDetail, error)
	DeleteSession(ctx context.Context, actor *models.Profile, id int64) error
	SendMessage(ctx context.Context, actor *models.Profile, sessionID int64, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)

	// AuthorizeSubscription lets only the session owner join its realtime room
	AuthorizeSubscription(ctx context.Context, identityID string, sessionID int64) error
}

// chatServiceImpl implements ChatService
type chatServiceImpl struct {
	chats         ChatStore
	profiles      ProfileStore
	completer     ai.Completer
	events        EventPublisher
	limiter       RateLimiter
	historyWindow int
	logger        zerolog.Logger
}

// NewChatService creates a new ChatService. completer may be nil when no AI
// key is configured; sending then fails with ErrIntegrationDisabled.
func NewChatService(
	chats ChatStore,
	profiles ProfileStore,
	completer ai.Completer,
	events EventPublisher,
	limiter RateLimiter,
	historyWindow int,
	logger zerolog.Logger,
) ChatService {
	if historyWindow <= 0 {
		historyWindow = 20
	}
	return &chatServiceImpl{
		chats:         chats,
		profiles:      profiles,
		completer:     completer,
		events:        events,
		limiter:       limiter,
		historyWindow: historyWindow,
		logger:        logger,
	}
}

func (s *chatServiceImpl) ListSessions(ctx context.Context, actor *models.Profile) ([]*models.ChatSession, error) {
	return s.chats.ListSessions(ctx, actor.ID)
}

func (s *chatServiceImpl) CreateSession(ctx context.Context, actor *models.Profile, req *dto.CreateChatSessionRequest) (*models.ChatSession, error) {
	session := &models.ChatSession{
		ProfileID: actor.ID,
		Title:     strings.TrimSpace(req.Title),
	}
	if err := s.chats.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ownedSession hides other members' sessions behind not-found
func (s *chatServiceImpl) ownedSession(ctx context.Context, profileID, id int64) (*models.ChatSession, error) {
	session, err := s.chats.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ProfileID != profileID {
		return nil, apperrors.ErrChatSessionNotFound
	}
	return session, nil
}

func (s *chatServiceImpl) GetSession(ctx context.Context, actor *models.Profile, id int64) (*dto.ChatSessionDetail, error) {
	session, err := s.ownedSession(ctx, actor.ID, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.chats.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*models.ChatMessage{}
	}
	return &dto.ChatSessionDetail{ChatSession: session, Messages: messages}, nil
}

func (s *chatServiceImpl) DeleteSession(ctx context.Context, actor *models.Profile, id int64) error {
	if _, err := s.ownedSession(ctx, actor.ID, id); err != nil {
		return err
	}
	return s.chats.DeleteSession(ctx, id)
}

// SendMessage stores the member turn, asks the assistant with recent history
// and stores the reply. The member turn is kept even when completion fails.
func (s *chatServiceImpl) SendMessage(ctx context.Context, actor *models.Profile, sessionID int64, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	if s.completer == nil {
		return nil, apperrors.ErrIntegrationDisabled
	}
	if s.limiter != nil && !s.limiter.Allow(actor.IdentityID) {
		return nil, apperrors.ErrRateLimited
	}

	session, err := s.ownedSession(ctx, actor.ID, sessionID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", apperrors.ErrValidationFailed)
	}

	// History is read before the new turn is stored so the prompt is not duplicated
	recent, err := s.chats.RecentMessages(ctx, sessionID, s.historyWindow)
	if err != nil {
		return nil, err
	}

	userMsg := &models.ChatMessage{SessionID: sessionID, Role: models.ChatRoleUser, Content: content}
	if err := s.chats.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	s.publish(sessionID, ChatEventMessage, userMsg)

	if session.Title == "" {
		if err := s.chats.SetTitle(ctx, sessionID, titleFrom(content)); err != nil {
			s.logger.Warn().Err(err).Int64("sessionID", sessionID).Msg("Failed to set chat session title")
		}
	}

	s.publish(sessionID, ChatEventTyping, map[string]bool{"typing": true})
	reply, err := s.completer.Complete(ctx, toTurns(recent), content)
	s.publish(sessionID, ChatEventTyping, map[string]bool{"typing": false})
	if err != nil {
		s.logger.Error().Err(err).Int64("sessionID", sessionID).Msg("AI completion failed")
		if errors.Is(err, ai.ErrNotConfigured) {
			return nil, apperrors.ErrIntegrationDisabled
		}
		return nil, apperrors.NewExternalServiceError("ai", err)
	}

	assistantMsg := &models.ChatMessage{SessionID: sessionID, Role: models.ChatRoleAssistant, Content: reply}
	if err := s.chats.AddMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	s.publish(sessionID, ChatEventMessage, assistantMsg)

	return &dto.SendMessageResponse{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

func (s *chatServiceImpl) AuthorizeSubscription(ctx context.Context, identityID string, sessionID int64) error {
	profile, err := s.profiles.GetByIdentityID(ctx, identityID)
	if err != nil {
		return err
	}
	_, err = s.ownedSession(ctx, profile.ID, sessionID)
	return err
}

func (s *chatServiceImpl) publish(sessionID int64, eventType string, payload interface{}) {
	if s.events != nil {
		s.events.Publish(sessionID, eventType, payload)
	}
}

func toTurns(messages []*models.ChatMessage) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, ai.Turn{FromAssistant: m.Role == models.ChatRoleAssistant, Text: m.Content})
	}
	return turns
}

// titleFrom uses the first line of the opening message, cut at maxTitleRunes
func titleFrom(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleRunes {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
}
