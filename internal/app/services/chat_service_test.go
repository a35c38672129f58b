package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/ai"
	"github.com/frogmembers/api/internal/pkg/apperrors"
)

func newChatService(chats *MockChatStore, profiles *MockProfileStore, completer *MockCompleter, events EventPublisher, allow bool) ChatService {
	return NewChatService(chats, profiles, completer, events, limiterFunc(func(string) bool { return allow }), 4, zerolog.Nop())
}

func byRole(role models.ChatRole) interface{} {
	return mock.MatchedBy(func(m *models.ChatMessage) bool { return m.Role == role })
}

func TestChatService_SendMessage(t *testing.T) {
	chats := new(MockChatStore)
	completer := new(MockCompleter)
	events := &recordingPublisher{}
	svc := newChatService(chats, new(MockProfileStore), completer, events, true)

	history := []*models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "I want to study in Sydney"},
		{Role: models.ChatRoleAssistant, Content: "Which field?"},
	}

	chats.On("GetSession", mock.Anything, int64(5)).Return(&models.ChatSession{ID: 5, ProfileID: 1}, nil)
	chats.On("RecentMessages", mock.Anything, int64(5), 4).Return(history, nil)
	chats.On("AddMessage", mock.Anything, byRole(models.ChatRoleUser)).Return(nil)
	chats.On("SetTitle", mock.Anything, int64(5), "Which visa fits a nursing diploma?").Return(nil)
	completer.On("Complete", mock.Anything, []ai.Turn{
		{FromAssistant: false, Text: "I want to study in Sydney"},
		{FromAssistant: true, Text: "Which field?"},
	}, "Which visa fits a nursing diploma?\nThanks").Return("A student visa (subclass 500).", nil)
	chats.On("AddMessage", mock.Anything, byRole(models.ChatRoleAssistant)).Return(nil)

	resp, err := svc.SendMessage(context.Background(), member(1), 5, &dto.SendMessageRequest{
		Content: "  Which visa fits a nursing diploma?\nThanks ",
	})
	require.NoError(t, err)
	assert.Equal(t, "A student visa (subclass 500).", resp.AssistantMessage.Content)
	assert.Equal(t, models.ChatRoleUser, resp.UserMessage.Role)
	assert.Equal(t, []string{ChatEventMessage, ChatEventTyping, ChatEventTyping, ChatEventMessage}, events.events)
	chats.AssertExpectations(t)
	completer.AssertExpectations(t)
}

func TestChatService_SendMessage_Failures(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		chats := new(MockChatStore)
		svc := newChatService(chats, new(MockProfileStore), new(MockCompleter), nil, false)

		_, err := svc.SendMessage(context.Background(), member(1), 5, &dto.SendMessageRequest{Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrRateLimited)
		chats.AssertNotCalled(t, "AddMessage", mock.Anything, mock.Anything)
	})

	t.Run("someone else's session", func(t *testing.T) {
		chats := new(MockChatStore)
		chats.On("GetSession", mock.Anything, int64(5)).Return(&models.ChatSession{ID: 5, ProfileID: 2}, nil)
		svc := newChatService(chats, new(MockProfileStore), new(MockCompleter), nil, true)

		_, err := svc.SendMessage(context.Background(), member(1), 5, &dto.SendMessageRequest{Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrChatSessionNotFound)
	})

	t.Run("completion fails after storing the member turn", func(t *testing.T) {
		chats := new(MockChatStore)
		completer := new(MockCompleter)
		chats.On("GetSession", mock.Anything, int64(5)).Return(&models.ChatSession{ID: 5, ProfileID: 1, Title: "Visas"}, nil)
		chats.On("RecentMessages", mock.Anything, int64(5), 4).Return([]*models.ChatMessage{}, nil)
		chats.On("AddMessage", mock.Anything, byRole(models.ChatRoleUser)).Return(nil).Once()
		completer.On("Complete", mock.Anything, mock.Anything, "hi").Return("", errors.New("quota exceeded"))
		svc := newChatService(chats, new(MockProfileStore), completer, nil, true)

		_, err := svc.SendMessage(context.Background(), member(1), 5, &dto.SendMessageRequest{Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrExternalService)
		chats.AssertExpectations(t)
		chats.AssertNotCalled(t, "SetTitle", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("assistant disabled", func(t *testing.T) {
		svc := NewChatService(new(MockChatStore), new(MockProfileStore), nil, nil, nil, 0, zerolog.Nop())
		_, err := svc.SendMessage(context.Background(), member(1), 5, &dto.SendMessageRequest{Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrIntegrationDisabled)
	})
}

func TestChatService_GetSession(t *testing.T) {
	chats := new(MockChatStore)
	chats.On("GetSession", mock.Anything, int64(5)).Return(&models.ChatSession{ID: 5, ProfileID: 1}, nil)
	chats.On("ListMessages", mock.Anything, int64(5)).Return(nil, nil)
	svc := newChatService(chats, new(MockProfileStore), new(MockCompleter), nil, true)

	detail, err := svc.GetSession(context.Background(), member(1), 5)
	require.NoError(t, err)
	assert.NotNil(t, detail.Messages)
	assert.Empty(t, detail.Messages)
}

func TestChatService_AuthorizeSubscription(t *testing.T) {
	chats := new(MockChatStore)
	profiles := new(MockProfileStore)
	chats.On("GetSession", mock.Anything, int64(5)).Return(&models.ChatSession{ID: 5, ProfileID: 1}, nil)
	profiles.On("GetByIdentityID", mock.Anything, "idp|owner").Return(&models.Profile{ID: 1}, nil)
	profiles.On("GetByIdentityID", mock.Anything, "idp|other").Return(&models.Profile{ID: 2}, nil)
	profiles.On("GetByIdentityID", mock.Anything, "idp|ghost").Return(nil, apperrors.ErrProfileNotFound)
	svc := newChatService(chats, profiles, new(MockCompleter), nil, true)

	assert.NoError(t, svc.AuthorizeSubscription(context.Background(), "idp|owner", 5))
	assert.ErrorIs(t, svc.AuthorizeSubscription(context.Background(), "idp|other", 5), apperrors.ErrChatSessionNotFound)
	assert.ErrorIs(t, svc.AuthorizeSubscription(context.Background(), "idp|ghost", 5), apperrors.ErrProfileNotFound)
}

func TestTitleFrom(t *testing.T) {
	assert.Equal(t, "Short question", titleFrom("Short question\nmore detail"))

	long := strings.Repeat("あ", 80)
	title := titleFrom(long)
	assert.Equal(t, strings.Repeat("あ", maxTitleRunes)+"…", title)
}
