package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/frogmembers/api/internal/pkg/logger"
)

// ErrNotFound is the shared not-found sentinel for rows that do not exist
var ErrNotFound = errors.New("record not found")

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// newBuilder returns a statement builder with $n placeholders
func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// WithTx runs fn inside a transaction, rolling back on error or panic
func WithTx(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.Error().Err(rbErr).Msg("Error rolling back transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// countTotal runs SELECT COUNT(*) for a builder's FROM/WHERE
func countTotal(ctx context.Context, db DBTX, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

// Repositories holds all the repository instances
type Repositories struct {
	ProfileRepository     *ProfileRepository
	AdminRoleRepository   *AdminRoleRepository
	SchoolRepository      *SchoolRepository
	CourseRepository      *CourseRepository
	ApplicationRepository *ApplicationRepository
	ChatRepository        *ChatRepository
	VisaPlanRepository    *VisaPlanRepository
	OAuthTokenRepository  *OAuthTokenRepository
	OAuthStateRepository  *OAuthStateRepository
	UploadRepository      *UploadRepository
	StatsRepository       *StatsRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		ProfileRepository:     NewProfileRepository(db),
		AdminRoleRepository:   NewAdminRoleRepository(db),
		SchoolRepository:      NewSchoolRepository(db),
		CourseRepository:      NewCourseRepository(db),
		ApplicationRepository: NewApplicationRepository(db),
		ChatRepository:        NewChatRepository(db),
		VisaPlanRepository:    NewVisaPlanRepository(db),
		OAuthTokenRepository:  NewOAuthTokenRepository(db),
		OAuthStateRepository:  NewOAuthStateRepository(db),
		UploadRepository:      NewUploadRepository(db),
		StatsRepository:       NewStatsRepository(db),
	}
}
