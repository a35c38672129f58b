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
	"github.com/frogmembers/api/internal/pkg/dberrors"
	"github.com/frogmembers/api/internal/pkg/logger"
)

// activeApplicationConstraint is the partial unique index on (profile_id, course_id)
const activeApplicationConstraint = "course_applications_active_key"

var applicationColumns = []string{
	"a.id", "a.profile_id", "a.course_id", "a.status", "a.desired_start_date", "a.motivation",
	"a.document_submission_id", "a.document_submission_url", "a.documents_completed_at",
	"a.staff_note", "a.submitted_at", "a.created_at", "a.updated_at", "c.name", "s.name",
}

// ApplicationRepository handles course application database operations
type ApplicationRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(db DBTX) *ApplicationRepository {
	return &ApplicationRepository{db: db, sb: newBuilder()}
}

func scanApplication(row pgx.Row) (*models.CourseApplication, error) {
	a := &models.CourseApplication{}
	var status string
	err := row.Scan(&a.ID, &a.ProfileID, &a.CourseID, &status, &a.DesiredStartDate, &a.Motivation,
		&a.DocumentSubmissionID, &a.DocumentSubmissionURL, &a.DocumentsCompletedAt,
		&a.StaffNote, &a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt, &a.CourseName, &a.SchoolName)
	if err != nil {
		return nil, err
	}
	a.Status = models.ApplicationStatus(status)
	return a, nil
}

func (r *ApplicationRepository) selectApplications() squirrel.SelectBuilder {
	return r.sb.Select(applicationColumns...).
		From("course_applications a").
		Join("courses c ON c.id = a.course_id").
		Join("schools s ON s.id = c.school_id")
}

// Create inserts a draft application
func (r *ApplicationRepository) Create(ctx context.Context, a *models.CourseApplication) error {
	sql, args, err := r.sb.Insert("course_applications").
		Columns("profile_id", "course_id", "status", "desired_start_date", "motivation").
		Values(a.ProfileID, a.CourseID, string(a.Status), a.DesiredStartDate, a.Motivation).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create application query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, activeApplicationConstraint):
			return apperrors.ErrApplicationExists
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrCourseNotFound
		}
		logger.Error().Err(err).Int64("profileID", a.ProfileID).Msg("Error executing create application query")
		return fmt.Errorf("error creating application: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.CourseApplication, error) {
	sql, args, err := r.selectApplications().
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get application query: %w", err)
	}

	a, err := scanApplication(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		logger.Error().Err(err).Msg("Error scanning application row")
		return nil, fmt.Errorf("error getting application: %w", err)
	}
	return a, nil
}

// GetByID retrieves an application with course and school names
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.CourseApplication, error) {
	return r.getOne(ctx, squirrel.Eq{"a.id": id})
}

// GetBySubmissionID finds the application a document submission belongs to
func (r *ApplicationRepository) GetBySubmissionID(ctx context.Context, submissionID string) (*models.CourseApplication, error) {
	return r.getOne(ctx, squirrel.Eq{"a.document_submission_id": submissionID})
}

// ListByProfile returns a member's applications, newest first
func (r *ApplicationRepository) ListByProfile(ctx context.Context, profileID int64) ([]*models.CourseApplication, error) {
	sql, args, err := r.selectApplications().
		Where(squirrel.Eq{"a.profile_id": profileID}).
		OrderBy("a.created_at DESC", "a.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list applications query: %w", err)
	}
	return r.query(ctx, sql, args...)
}

// ListByStatus returns a page of applications for staff, optionally filtered by status
func (r *ApplicationRepository) ListByStatus(ctx context.Context, status models.ApplicationStatus, offset, limit uint64) ([]*models.CourseApplication, int64, error) {
	where := squirrel.And{}
	if status != "" {
		where = append(where, squirrel.Eq{"a.status": string(status)})
	}

	total, err := countTotal(ctx, r.db, r.sb.Select("COUNT(*)").From("course_applications a").Where(where))
	if err != nil {
		logger.Error().Err(err).Msg("Error counting applications")
		return nil, 0, err
	}

	sql, args, err := r.selectApplications().
		Where(where).
		OrderBy("a.submitted_at ASC NULLS LAST", "a.id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list applications query: %w", err)
	}

	apps, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *ApplicationRepository) query(ctx context.Context, sql string, args ...interface{}) ([]*models.CourseApplication, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying applications")
		return nil, fmt.Errorf("error querying applications: %w", err)
	}
	defer rows.Close()

	apps := []*models.CourseApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning application row: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating application rows: %w", err)
	}
	return apps, nil
}

// UpdateDraft edits a draft; anything past draft is an invalid transition
func (r *ApplicationRepository) UpdateDraft(ctx context.Context, a *models.CourseApplication) error {
	sql, args, err := r.sb.Update("course_applications").
		SetMap(map[string]interface{}{
			"desired_start_date": a.DesiredStartDate,
			"motivation":         a.Motivation,
			"updated_at":         squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": a.ID, "status": string(models.ApplicationDraft)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update application query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("applicationID", a.ID).Msg("Error executing update application query")
		return fmt.Errorf("error updating application: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// StatusChange describes a guarded status update
type StatusChange struct {
	From      models.ApplicationStatus
	To        models.ApplicationStatus
	StaffNote *string
	// SubmittedAt is written when non-nil
	SubmittedAt *time.Time
}

// UpdateStatus moves an application only if it is still in change.From,
// so two concurrent transitions cannot both win.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, change StatusChange) error {
	set := map[string]interface{}{
		"status":     string(change.To),
		"updated_at": squirrel.Expr("NOW()"),
	}
	if change.StaffNote != nil {
		set["staff_note"] = *change.StaffNote
	}
	if change.SubmittedAt != nil {
		set["submitted_at"] = *change.SubmittedAt
	}

	sql, args, err := r.sb.Update("course_applications").
		SetMap(set).
		Where(squirrel.Eq{"id": id, "status": string(change.From)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update status query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("applicationID", id).Msg("Error executing update status query")
		return fmt.Errorf("error updating application status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// SetDocumentSubmission stores the document-collection submission for an application
func (r *ApplicationRepository) SetDocumentSubmission(ctx context.Context, id int64, submissionID, url string) error {
	sql, args, err := r.sb.Update("course_applications").
		SetMap(map[string]interface{}{
			"document_submission_id":  submissionID,
			"document_submission_url": url,
			"updated_at":              squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set submission query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("applicationID", id).Msg("Error storing document submission")
		return fmt.Errorf("error storing document submission: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}

// MarkDocumentsCompleted records completion once; repeated callbacks keep the first timestamp
func (r *ApplicationRepository) MarkDocumentsCompleted(ctx context.Context, submissionID string, at time.Time) error {
	sql, args, err := r.sb.Update("course_applications").
		Set("documents_completed_at", squirrel.Expr("COALESCE(documents_completed_at, ?)", at)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"document_submission_id": submissionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark completed query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("submissionID", submissionID).Msg("Error marking documents completed")
		return fmt.Errorf("error marking documents completed: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}
