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

var courseColumns = []string{
	"c.id", "c.school_id", "c.name", "c.category", "c.duration_weeks", "c.tuition_cents",
	"c.currency", "c.intake_months", "c.description", "c.is_published", "c.created_at",
	"c.updated_at", "s.name",
}

// CourseRepository handles course database operations
type CourseRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db DBTX) *CourseRepository {
	return &CourseRepository{db: db, sb: newBuilder()}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(&c.ID, &c.SchoolID, &c.Name, &c.Category, &c.DurationWeeks, &c.TuitionCents,
		&c.Currency, &c.IntakeMonths, &c.Description, &c.IsPublished, &c.CreatedAt,
		&c.UpdatedAt, &c.SchoolName)
	return c, err
}

func (r *CourseRepository) selectCourses() squirrel.SelectBuilder {
	return r.sb.Select(courseColumns...).
		From("courses c").
		Join("schools s ON s.id = c.school_id")
}

// Create inserts a course
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	sql, args, err := r.sb.Insert("courses").
		Columns("school_id", "name", "category", "duration_weeks", "tuition_cents",
			"currency", "intake_months", "description", "is_published").
		Values(c.SchoolID, c.Name, c.Category, c.DurationWeeks, c.TuitionCents,
			c.Currency, c.IntakeMonths, c.Description, c.IsPublished).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrSchoolNotFound
		}
		logger.Error().Err(err).Msg("Error executing create course query")
		return fmt.Errorf("error creating course: %w", err)
	}
	return nil
}

// GetByID retrieves a course with its school name
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := r.selectCourses().
		Where(squirrel.Eq{"c.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		logger.Error().Err(err).Int64("courseID", id).Msg("Error scanning course row")
		return nil, fmt.Errorf("error getting course by ID: %w", err)
	}
	return c, nil
}

// List returns a filtered page of courses
func (r *CourseRepository) List(ctx context.Context, f models.CourseFilter, offset, limit uint64) ([]*models.Course, int64, error) {
	where := squirrel.And{}
	if f.PublishedOnly {
		where = append(where, squirrel.Eq{"c.is_published": true, "s.is_published": true})
	}
	if f.SchoolID > 0 {
		where = append(where, squirrel.Eq{"c.school_id": f.SchoolID})
	}
	if f.Category != "" {
		where = append(where, squirrel.Eq{"c.category": f.Category})
	}
	if f.MaxTuition > 0 {
		where = append(where, squirrel.LtOrEq{"c.tuition_cents": f.MaxTuition})
	}
	if f.Query != "" {
		pattern := helpers.LikePattern(f.Query)
		where = append(where, squirrel.Or{
			squirrel.ILike{"c.name": pattern},
			squirrel.ILike{"s.name": pattern},
		})
	}

	total, err := countTotal(ctx, r.db, r.sb.Select("COUNT(*)").
		From("courses c").
		Join("schools s ON s.id = c.school_id").
		Where(where))
	if err != nil {
		logger.Error().Err(err).Msg("Error counting courses")
		return nil, 0, err
	}

	sql, args, err := r.selectCourses().
		Where(where).
		OrderBy("c.name ASC", "c.id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list courses query: %w", err)
	}

	courses, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// ListBySchool returns every course of a school
func (r *CourseRepository) ListBySchool(ctx context.Context, schoolID int64, publishedOnly bool) ([]*models.Course, error) {
	where := squirrel.Eq{"c.school_id": schoolID}
	if publishedOnly {
		where["c.is_published"] = true
	}

	sql, args, err := r.selectCourses().
		Where(where).
		OrderBy("c.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list school courses query: %w", err)
	}
	return r.query(ctx, sql, args...)
}

func (r *CourseRepository) query(ctx context.Context, sql string, args ...interface{}) ([]*models.Course, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying courses")
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating course rows: %w", err)
	}
	return courses, nil
}

// Update replaces a course's editable columns
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	sql, args, err := r.sb.Update("courses").
		SetMap(map[string]interface{}{
			"school_id":      c.SchoolID,
			"name":           c.Name,
			"category":       c.Category,
			"duration_weeks": c.DurationWeeks,
			"tuition_cents":  c.TuitionCents,
			"currency":       c.Currency,
			"intake_months":  c.IntakeMonths,
			"description":    c.Description,
			"is_published":   c.IsPublished,
			"updated_at":     squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.ErrCourseNotFound
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrSchoolNotFound
		}
		logger.Error().Err(err).Int64("courseID", c.ID).Msg("Error executing update course query")
		return fmt.Errorf("error updating course: %w", err)
	}
	return nil
}

// Delete removes a course that nobody has applied to
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete course query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.NewConflictError("course has applications and cannot be deleted")
		}
		logger.Error().Err(err).Int64("courseID", id).Msg("Error executing delete course query")
		return fmt.Errorf("error deleting course: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}
