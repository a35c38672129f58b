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

var visaPlanColumns = []string{
	"id", "profile_id", "title", "target_country", "status", "notes", "created_at", "updated_at",
}

// VisaPlanRepository handles visa plans, their steps and reviews
type VisaPlanRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewVisaPlanRepository creates a new VisaPlanRepository
func NewVisaPlanRepository(db DBTX) *VisaPlanRepository {
	return &VisaPlanRepository{db: db, sb: newBuilder()}
}

func scanVisaPlan(row pgx.Row) (*models.VisaPlan, error) {
	p := &models.VisaPlan{}
	var status string
	if err := row.Scan(&p.ID, &p.ProfileID, &p.Title, &p.TargetCountry, &status, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.VisaPlanStatus(status)
	p.Steps = []models.VisaPlanStep{}
	return p, nil
}

// Create inserts a plan and its steps atomically
func (r *VisaPlanRepository) Create(ctx context.Context, p *models.VisaPlan) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("visa_plans").
			Columns("profile_id", "title", "target_country", "status", "notes").
			Values(p.ProfileID, p.Title, p.TargetCountry, string(p.Status), p.Notes).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create plan query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			logger.Error().Err(err).Int64("profileID", p.ProfileID).Msg("Error creating visa plan")
			return fmt.Errorf("error creating visa plan: %w", err)
		}

		return r.insertSteps(ctx, tx, p)
	})
}

// Update rewrites plan fields and replaces the step list atomically
func (r *VisaPlanRepository) Update(ctx context.Context, p *models.VisaPlan) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := r.sb.Update("visa_plans").
			SetMap(map[string]interface{}{
				"title":          p.Title,
				"target_country": p.TargetCountry,
				"notes":          p.Notes,
				"status":         string(p.Status),
				"updated_at":     squirrel.Expr("NOW()"),
			}).
			Where(squirrel.Eq{"id": p.ID}).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build update plan query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&p.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrVisaPlanNotFound
			}
			logger.Error().Err(err).Int64("planID", p.ID).Msg("Error updating visa plan")
			return fmt.Errorf("error updating visa plan: %w", err)
		}

		del, delArgs, err := r.sb.Delete("visa_plan_steps").Where(squirrel.Eq{"plan_id": p.ID}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete steps query: %w", err)
		}
		if _, err := tx.Exec(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("error deleting visa plan steps: %w", err)
		}

		return r.insertSteps(ctx, tx, p)
	})
}

func (r *VisaPlanRepository) insertSteps(ctx context.Context, tx pgx.Tx, p *models.VisaPlan) error {
	if len(p.Steps) == 0 {
		return nil
	}

	q := r.sb.Insert("visa_plan_steps").
		Columns("plan_id", "position", "visa_type", "start_date", "end_date", "note")
	for _, s := range p.Steps {
		q = q.Values(p.ID, s.Position, s.VisaType, s.StartDate, s.EndDate, s.Note)
	}

	sql, args, err := q.Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert steps query: %w", err)
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("planID", p.ID).Msg("Error inserting visa plan steps")
		return fmt.Errorf("error inserting visa plan steps: %w", err)
	}
	defer rows.Close()

	// Postgres returns multi-row INSERT ... RETURNING in VALUES order
	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&p.Steps[i].ID); err != nil {
			return fmt.Errorf("error scanning step id: %w", err)
		}
		p.Steps[i].PlanID = p.ID
	}
	return rows.Err()
}

// GetByID retrieves a plan with steps and reviews
func (r *VisaPlanRepository) GetByID(ctx context.Context, id int64) (*models.VisaPlan, error) {
	sql, args, err := r.sb.Select(visaPlanColumns...).
		From("visa_plans").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get plan query: %w", err)
	}

	p, err := scanVisaPlan(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrVisaPlanNotFound
		}
		logger.Error().Err(err).Int64("planID", id).Msg("Error scanning visa plan")
		return nil, fmt.Errorf("error getting visa plan: %w", err)
	}

	if err := r.attachSteps(ctx, []*models.VisaPlan{p}); err != nil {
		return nil, err
	}

	reviews, err := r.listReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Reviews = reviews
	return p, nil
}

// ListByProfile returns a member's plans with steps
func (r *VisaPlanRepository) ListByProfile(ctx context.Context, profileID int64) ([]*models.VisaPlan, error) {
	sql, args, err := r.sb.Select(visaPlanColumns...).
		From("visa_plans").
		Where(squirrel.Eq{"profile_id": profileID}).
		OrderBy("updated_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list plans query: %w", err)
	}

	plans, err := r.queryPlans(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return plans, r.attachSteps(ctx, plans)
}

// ListByStatus returns a page of plans in a status for staff
func (r *VisaPlanRepository) ListByStatus(ctx context.Context, status models.VisaPlanStatus, offset, limit uint64) ([]*models.VisaPlan, int64, error) {
	where := squirrel.Eq{"status": string(status)}

	total, err := countTotal(ctx, r.db, r.sb.Select("COUNT(*)").From("visa_plans").Where(where))
	if err != nil {
		logger.Error().Err(err).Msg("Error counting visa plans")
		return nil, 0, err
	}

	sql, args, err := r.sb.Select(visaPlanColumns...).
		From("visa_plans").
		Where(where).
		OrderBy("updated_at ASC", "id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list plans query: %w", err)
	}

	plans, err := r.queryPlans(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return plans, total, r.attachSteps(ctx, plans)
}

func (r *VisaPlanRepository) queryPlans(ctx context.Context, sql string, args ...interface{}) ([]*models.VisaPlan, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying visa plans")
		return nil, fmt.Errorf("error querying visa plans: %w", err)
	}
	defer rows.Close()

	plans := []*models.VisaPlan{}
	for rows.Next() {
		p, err := scanVisaPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning visa plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// attachSteps loads steps for all plans in one query
func (r *VisaPlanRepository) attachSteps(ctx context.Context, plans []*models.VisaPlan) error {
	if len(plans) == 0 {
		return nil
	}

	byID := make(map[int64]*models.VisaPlan, len(plans))
	ids := make([]int64, 0, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	sql, args, err := r.sb.Select("id", "plan_id", "position", "visa_type", "start_date", "end_date", "note").
		From("visa_plan_steps").
		Where(squirrel.Eq{"plan_id": ids}).
		OrderBy("plan_id ASC", "position ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build list steps query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying visa plan steps")
		return fmt.Errorf("error querying visa plan steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.VisaPlanStep
		if err := rows.Scan(&s.ID, &s.PlanID, &s.Position, &s.VisaType, &s.StartDate, &s.EndDate, &s.Note); err != nil {
			return fmt.Errorf("error scanning visa plan step: %w", err)
		}
		if p, ok := byID[s.PlanID]; ok {
			p.Steps = append(p.Steps, s)
		}
	}
	return rows.Err()
}

func (r *VisaPlanRepository) listReviews(ctx context.Context, planID int64) ([]models.VisaPlanReview, error) {
	sql, args, err := r.sb.Select("id", "plan_id", "reviewer_profile_id", "verdict", "comment", "created_at").
		From("visa_plan_reviews").
		Where(squirrel.Eq{"plan_id": planID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list reviews query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("planID", planID).Msg("Error querying visa plan reviews")
		return nil, fmt.Errorf("error querying visa plan reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.VisaPlanReview{}
	for rows.Next() {
		var rv models.VisaPlanReview
		var verdict string
		if err := rows.Scan(&rv.ID, &rv.PlanID, &rv.ReviewerProfileID, &verdict, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning visa plan review: %w", err)
		}
		rv.Verdict = models.ReviewVerdict(verdict)
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// Delete removes a plan with its steps and reviews
func (r *VisaPlanRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("visa_plans").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete plan query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("planID", id).Msg("Error deleting visa plan")
		return fmt.Errorf("error deleting visa plan: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrVisaPlanNotFound
	}
	return nil
}

// TransitionStatus moves a plan to `to` only from one of `from`
func (r *VisaPlanRepository) TransitionStatus(ctx context.Context, id int64, from []models.VisaPlanStatus, to models.VisaPlanStatus) error {
	return r.transition(ctx, r.db, id, from, to)
}

func (r *VisaPlanRepository) transition(ctx context.Context, db DBTX, id int64, from []models.VisaPlanStatus, to models.VisaPlanStatus) error {
	fromStr := make([]string, len(from))
	for i, s := range from {
		fromStr[i] = string(s)
	}

	sql, args, err := r.sb.Update("visa_plans").
		Set("status", string(to)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": fromStr}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transition query: %w", err)
	}

	cmdTag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("planID", id).Msg("Error transitioning visa plan")
		return fmt.Errorf("error transitioning visa plan: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, db, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrVisaPlanNotFound
		}
		return apperrors.ErrInvalidTransition
	}
	return nil
}

func (r *VisaPlanRepository) exists(ctx context.Context, db DBTX, id int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		Prefix("SELECT EXISTS (").
		From("visa_plans").
		Where(squirrel.Eq{"id": id}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build plan exists query: %w", err)
	}

	var exists bool
	if err := db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Int64("planID", id).Msg("Error checking visa plan")
		return false, fmt.Errorf("error checking visa plan: %w", err)
	}
	return exists, nil
}

// AddReview records a verdict and applies the resulting status in one transaction.
// The plan must still be awaiting review.
func (r *VisaPlanRepository) AddReview(ctx context.Context, review *models.VisaPlanReview, status models.VisaPlanStatus) error {
	return WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := r.transition(ctx, tx, review.PlanID, []models.VisaPlanStatus{models.VisaPlanReviewRequested}, status); err != nil {
			return err
		}

		sql, args, err := r.sb.Insert("visa_plan_reviews").
			Columns("plan_id", "reviewer_profile_id", "verdict", "comment").
			Values(review.PlanID, review.ReviewerProfileID, string(review.Verdict), review.Comment).
			Suffix("RETURNING id, created_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert review query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&review.ID, &review.CreatedAt); err != nil {
			logger.Error().Err(err).Int64("planID", review.PlanID).Msg("Error inserting visa plan review")
			return fmt.Errorf("error inserting visa plan review: %w", err)
		}
		return nil
	})
}
