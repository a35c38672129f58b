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

var oauthTokenColumns = []string{
	"service", "refresh_token", "access_token", "access_token_expires_at", "scope", "updated_at",
}

// OAuthTokenRepository stores sealed credentials for outbound integrations
type OAuthTokenRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewOAuthTokenRepository creates a new OAuthTokenRepository
func NewOAuthTokenRepository(db DBTX) *OAuthTokenRepository {
	return &OAuthTokenRepository{db: db, sb: newBuilder()}
}

func scanOAuthToken(row pgx.Row) (*models.OAuthToken, error) {
	t := &models.OAuthToken{}
	if err := row.Scan(&t.Service, &t.RefreshToken, &t.AccessToken, &t.AccessTokenExpiresAt, &t.Scope, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns the stored token for a service
func (r *OAuthTokenRepository) Get(ctx context.Context, service string) (*models.OAuthToken, error) {
	return r.get(ctx, r.db, service, false)
}

func (r *OAuthTokenRepository) get(ctx context.Context, db DBTX, service string, forUpdate bool) (*models.OAuthToken, error) {
	q := r.sb.Select(oauthTokenColumns...).
		From("oauth_tokens").
		Where(squirrel.Eq{"service": service})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get token query: %w", err)
	}

	t, err := scanOAuthToken(db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrIntegrationNotConnected
		}
		logger.Error().Err(err).Str("service", service).Msg("Error reading oauth token")
		return nil, fmt.Errorf("error reading oauth token: %w", err)
	}
	return t, nil
}

// Upsert creates or replaces the token for t.Service
func (r *OAuthTokenRepository) Upsert(ctx context.Context, t *models.OAuthToken) error {
	return r.upsert(ctx, r.db, t)
}

func (r *OAuthTokenRepository) upsert(ctx context.Context, db DBTX, t *models.OAuthToken) error {
	sql, args, err := r.sb.Insert("oauth_tokens").
		Columns("service", "refresh_token", "access_token", "access_token_expires_at", "scope").
		Values(t.Service, t.RefreshToken, t.AccessToken, t.AccessTokenExpiresAt, t.Scope).
		Suffix(`ON CONFLICT (service) DO UPDATE SET
			refresh_token = EXCLUDED.refresh_token,
			access_token = EXCLUDED.access_token,
			access_token_expires_at = EXCLUDED.access_token_expires_at,
			scope = EXCLUDED.scope,
			updated_at = NOW()
		RETURNING updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert token query: %w", err)
	}

	if err := db.QueryRow(ctx, sql, args...).Scan(&t.UpdatedAt); err != nil {
		logger.Error().Err(err).Str("service", t.Service).Msg("Error saving oauth token")
		return fmt.Errorf("error saving oauth token: %w", err)
	}
	return nil
}

// WithLockedToken loads the token row FOR UPDATE and runs fn while holding the lock.
// When fn returns a non-nil token it is written back before commit.
func (r *OAuthTokenRepository) WithLockedToken(ctx context.Context, service string, fn func(current *models.OAuthToken) (*models.OAuthToken, error)) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := r.get(ctx, tx, service, true)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		next.Service = service
		return r.upsert(ctx, tx, next)
	})
}
