package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/logger"
)

// ChatRepository handles assistant chat sessions and messages
type ChatRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db DBTX) *ChatRepository {
	return &ChatRepository{db: db, sb: newBuilder()}
}

// CreateSession opens a session for a profile
func (r *ChatRepository) CreateSession(ctx context.Context, s *models.ChatSession) error {
	sql, args, err := r.sb.Insert("chat_sessions").
		Columns("profile_id", "title").
		Values(s.ProfileID, s.Title).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create session query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("profileID", s.ProfileID).Msg("Error creating chat session")
		return fmt.Errorf("error creating chat session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *ChatRepository) GetSession(ctx context.Context, id int64) (*models.ChatSession, error) {
	sql, args, err := r.sb.Select("id", "profile_id", "title", "created_at", "updated_at").
		From("chat_sessions").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get session query: %w", err)
	}

	s := &models.ChatSession{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.ProfileID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrChatSessionNotFound
		}
		logger.Error().Err(err).Int64("sessionID", id).Msg("Error scanning chat session")
		return nil, fmt.Errorf("error getting chat session: %w", err)
	}
	return s, nil
}

// ListSessions returns a profile's sessions, most recently active first
func (r *ChatRepository) ListSessions(ctx context.Context, profileID int64) ([]*models.ChatSession, error) {
	sql, args, err := r.sb.Select("id", "profile_id", "title", "created_at", "updated_at").
		From("chat_sessions").
		Where(squirrel.Eq{"profile_id": profileID}).
		OrderBy("updated_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list sessions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("profileID", profileID).Msg("Error querying chat sessions")
		return nil, fmt.Errorf("error querying chat sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*models.ChatSession{}
	for rows.Next() {
		s := &models.ChatSession{}
		if err := rows.Scan(&s.ID, &s.ProfileID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning chat session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SetTitle renames a session
func (r *ChatRepository) SetTitle(ctx context.Context, id int64, title string) error {
	sql, args, err := r.sb.Update("chat_sessions").
		Set("title", title).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set title query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("sessionID", id).Msg("Error setting chat session title")
		return fmt.Errorf("error setting chat session title: %w", err)
	}
	return nil
}

// DeleteSession removes a session and, by cascade, its messages
func (r *ChatRepository) DeleteSession(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("chat_sessions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete session query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("sessionID", id).Msg("Error deleting chat session")
		return fmt.Errorf("error deleting chat session: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrChatSessionNotFound
	}
	return nil
}

// AddMessage appends a message and bumps the session's activity time
func (r *ChatRepository) AddMessage(ctx context.Context, m *models.ChatMessage) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("chat_messages").
			Columns("session_id", "role", "content").
			Values(m.SessionID, string(m.Role), m.Content).
			Suffix("RETURNING id, created_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build add message query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&m.ID, &m.CreatedAt); err != nil {
			logger.Error().Err(err).Int64("sessionID", m.SessionID).Msg("Error inserting chat message")
			return fmt.Errorf("error inserting chat message: %w", err)
		}

		touch, touchArgs, err := r.sb.Update("chat_sessions").
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"id": m.SessionID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build touch session query: %w", err)
		}
		if _, err := tx.Exec(ctx, touch, touchArgs...); err != nil {
			return fmt.Errorf("error touching chat session: %w", err)
		}
		return nil
	})
}

// ListMessages returns the full transcript in order
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID int64) ([]*models.ChatMessage, error) {
	sql, args, err := r.sb.Select("id", "session_id", "role", "content", "created_at").
		From("chat_messages").
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list messages query: %w", err)
	}
	return r.queryMessages(ctx, sql, args...)
}

// RecentMessages returns the last n messages in chronological order
func (r *ChatRepository) RecentMessages(ctx context.Context, sessionID int64, n int) ([]*models.ChatMessage, error) {
	inner := r.sb.Select("id", "session_id", "role", "content", "created_at").
		From("chat_messages").
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("id DESC").
		Limit(uint64(n))

	sql, args, err := r.sb.Select("*").
		FromSelect(inner, "recent").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build recent messages query: %w", err)
	}
	return r.queryMessages(ctx, sql, args...)
}

func (r *ChatRepository) queryMessages(ctx context.Context, sql string, args ...interface{}) ([]*models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying chat messages")
		return nil, fmt.Errorf("error querying chat messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.ChatMessage{}
	for rows.Next() {
		m := &models.ChatMessage{}
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning chat message: %w", err)
		}
		m.Role = models.ChatRole(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
