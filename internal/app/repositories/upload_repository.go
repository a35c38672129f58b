package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/logger"
)

// UploadRepository records stored objects
type UploadRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewUploadRepository creates a new UploadRepository
func NewUploadRepository(db DBTX) *UploadRepository {
	return &UploadRepository{db: db, sb: newBuilder()}
}

// Create inserts an upload record
func (r *UploadRepository) Create(ctx context.Context, u *models.Upload) error {
	sql, args, err := r.sb.Insert("uploads").
		Columns("profile_id", "object_key", "url", "filename", "size", "mime_type", "purpose").
		Values(u.ProfileID, u.ObjectKey, u.URL, u.Filename, u.Size, u.MimeType, u.Purpose).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create upload query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("profileID", u.ProfileID).Msg("Error creating upload")
		return fmt.Errorf("error creating upload: %w", err)
	}
	return nil
}

// ListByProfile returns a member's uploads for a purpose, newest first
func (r *UploadRepository) ListByProfile(ctx context.Context, profileID int64, purpose string) ([]*models.Upload, error) {
	q := r.sb.Select("id", "profile_id", "object_key", "url", "filename", "size", "mime_type", "purpose", "created_at").
		From("uploads").
		Where(squirrel.Eq{"profile_id": profileID})
	if purpose != "" {
		q = q.Where(squirrel.Eq{"purpose": purpose})
	}

	sql, args, err := q.OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list uploads query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("profileID", profileID).Msg("Error listing uploads")
		return nil, fmt.Errorf("error listing uploads: %w", err)
	}
	defer rows.Close()

	uploads := []*models.Upload{}
	for rows.Next() {
		u := &models.Upload{}
		if err := rows.Scan(&u.ID, &u.ProfileID, &u.ObjectKey, &u.URL, &u.Filename, &u.Size, &u.MimeType, &u.Purpose, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// Delete removes an upload record by object key
func (r *UploadRepository) Delete(ctx context.Context, objectKey string) error {
	sql, args, err := r.sb.Delete("uploads").Where(squirrel.Eq{"object_key": objectKey}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete upload query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("key", objectKey).Msg("Error deleting upload")
		return fmt.Errorf("error deleting upload: %w", err)
	}
	return nil
}
