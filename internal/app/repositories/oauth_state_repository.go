package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/logger"
)

// OAuthStateRepository persists one-time authorization state values
type OAuthStateRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewOAuthStateRepository creates a new OAuthStateRepository
func NewOAuthStateRepository(db DBTX) *OAuthStateRepository {
	return &OAuthStateRepository{db: db, sb: newBuilder()}
}

// Save stores a new state value
func (r *OAuthStateRepository) Save(ctx context.Context, s *models.OAuthState) error {
	sql, args, err := r.sb.Insert("oauth_states").
		Columns("state", "service", "return_url", "expires_at").
		Values(s.State, s.Service, s.ReturnURL, s.ExpiresAt).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build save state query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.CreatedAt); err != nil {
		logger.Error().Err(err).Str("service", s.Service).Msg("Error saving oauth state")
		return fmt.Errorf("error saving oauth state: %w", err)
	}
	return nil
}

// Consume deletes and returns a state value. Unknown, expired or
// mismatched-service states all yield ErrInvalidOAuthState.
func (r *OAuthStateRepository) Consume(ctx context.Context, state, service string, now time.Time) (*models.OAuthState, error) {
	sql, args, err := r.sb.Delete("oauth_states").
		Where(squirrel.Eq{"state": state}).
		Suffix("RETURNING state, service, return_url, expires_at, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build consume state query: %w", err)
	}

	s := &models.OAuthState{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&s.State, &s.Service, &s.ReturnURL, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidOAuthState
		}
		logger.Error().Err(err).Msg("Error consuming oauth state")
		return nil, fmt.Errorf("error consuming oauth state: %w", err)
	}

	if s.Service != service || !now.Before(s.ExpiresAt) {
		return nil, apperrors.ErrInvalidOAuthState
	}
	return s, nil
}

// DeleteExpired removes states past their expiry
func (r *OAuthStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	sql, args, err := r.sb.Delete("oauth_states").Where(squirrel.LtOrEq{"expires_at": now}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build purge states query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error purging oauth states")
		return 0, fmt.Errorf("error purging oauth states: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
