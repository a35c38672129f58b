package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/dberrors"
	"github.com/frogmembers/api/internal/pkg/helpers"
	"github.com/frogmembers/api/internal/pkg/logger"
)

var schoolColumns = []string{
	"id", "name", "country", "city", "website", "description", "logo_url",
	"is_published", "created_at", "updated_at",
}

// SchoolRepository handles school database operations
type SchoolRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewSchoolRepository creates a new SchoolRepository
func NewSchoolRepository(db DBTX) *SchoolRepository {
	return &SchoolRepository{db: db, sb: newBuilder()}
}

func scanSchool(row pgx.Row) (*models.School, error) {
	s := &models.School{}
	err := row.Scan(&s.ID, &s.Name, &s.Country, &s.City, &s.Website, &s.Description,
		&s.LogoURL, &s.IsPublished, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a school and fills its ID and timestamps
func (r *SchoolRepository) Create(ctx context.Context, s *models.School) error {
	sql, args, err := r.sb.Insert("schools").
		Columns("name", "country", "city", "website", "description", "logo_url", "is_published").
		Values(s.Name, s.Country, s.City, s.Website, s.Description, s.LogoURL, s.IsPublished).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create school query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		logger.Error().Err(err).Msg("Error executing create school query")
		return fmt.Errorf("error creating school: %w", err)
	}
	return nil
}

// GetByID retrieves a school by ID
func (r *SchoolRepository) GetByID(ctx context.Context, id int64) (*models.School, error) {
	sql, args, err := r.sb.Select(schoolColumns...).
		From("schools").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get school query: %w", err)
	}

	s, err := scanSchool(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSchoolNotFound
		}
		logger.Error().Err(err).Int64("schoolID", id).Msg("Error scanning school row")
		return nil, fmt.Errorf("error getting school by ID: %w", err)
	}
	return s, nil
}

// List returns a filtered page of schools
func (r *SchoolRepository) List(ctx context.Context, f models.SchoolFilter, offset, limit uint64) ([]*models.School, int64, error) {
	where := squirrel.And{}
	if f.PublishedOnly {
		where = append(where, squirrel.Eq{"is_published": true})
	}
	if f.Query != "" {
		pattern := helpers.LikePattern(f.Query)
		where = append(where, squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"description": pattern},
		})
	}
	if f.Country != "" {
		where = append(where, squirrel.Eq{"country": f.Country})
	}
	if f.City != "" {
		where = append(where, squirrel.ILike{"city": f.City})
	}

	total, err := countTotal(ctx, r.db, r.sb.Select("COUNT(*)").From("schools").Where(where))
	if err != nil {
		logger.Error().Err(err).Msg("Error counting schools")
		return nil, 0, err
	}

	sql, args, err := r.sb.Select(schoolColumns...).
		From("schools").
		Where(where).
		OrderBy("name ASC", "id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list schools query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying schools")
		return nil, 0, fmt.Errorf("error querying schools: %w", err)
	}
	defer rows.Close()

	schools := []*models.School{}
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning school row: %w", err)
		}
		schools = append(schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating school rows: %w", err)
	}

	return schools, total, nil
}

// Update replaces a school's editable columns
func (r *SchoolRepository) Update(ctx context.Context, s *models.School) error {
	sql, args, err := r.sb.Update("schools").
		SetMap(map[string]interface{}{
			"name":         s.Name,
			"country":      s.Country,
			"city":         s.City,
			"website":      s.Website,
			"description":  s.Description,
			"logo_url":     s.LogoURL,
			"is_published": s.IsPublished,
			"updated_at":   squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": s.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update school query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrSchoolNotFound
		}
		logger.Error().Err(err).Int64("schoolID", s.ID).Msg("Error executing update school query")
		return fmt.Errorf("error updating school: %w", err)
	}
	return nil
}

// Delete removes a school that has no courses
func (r *SchoolRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("schools").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete school query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrSchoolHasCourses
		}
		logger.Error().Err(err).Int64("schoolID", id).Msg("Error executing delete school query")
		return fmt.Errorf("error deleting school: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSchoolNotFound
	}
	return nil
}
