package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/helpers"
	"github.com/frogmembers/api/internal/pkg/logger"
)

var profileColumns = []string{
	"id", "identity_id", "email", "display_name", "avatar_url", "nationality",
	"residence_country", "occupation", "bio", "directory_visible", "onboarding_completed",
	"stripe_customer_id", "stripe_subscription_id", "subscription_status", "plan",
	"created_at", "updated_at",
}

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db, sb: newBuilder()}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	p := &models.Profile{}
	var status string
	err := row.Scan(
		&p.ID, &p.IdentityID, &p.Email, &p.DisplayName, &p.AvatarURL, &p.Nationality,
		&p.ResidenceCountry, &p.Occupation, &p.Bio, &p.DirectoryVisible, &p.OnboardingCompleted,
		&p.StripeCustomerID, &p.StripeSubscriptionID, &status, &p.Plan,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SubscriptionStatus = models.SubscriptionStatus(status)
	return p, nil
}

func (r *ProfileRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Profile, error) {
	sql, args, err := r.sb.Select(profileColumns...).
		From("profiles").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get profile query: %w", err)
	}

	p, err := scanProfile(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProfileNotFound
		}
		logger.Error().Err(err).Msg("Error scanning profile row")
		return nil, fmt.Errorf("error getting profile: %w", err)
	}
	return p, nil
}

// EnsureProfile returns the profile for identityID, inserting it first if absent.
// Concurrent first requests race on the unique key; the loser's insert is a no-op.
func (r *ProfileRepository) EnsureProfile(ctx context.Context, identityID, email string) (*models.Profile, error) {
	sql, args, err := r.sb.Insert("profiles").
		Columns("identity_id", "email", "display_name").
		Values(identityID, email, defaultDisplayName(email)).
		Suffix("ON CONFLICT (identity_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build ensure profile query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("identityID", identityID).Msg("Error inserting profile")
		return nil, fmt.Errorf("error inserting profile: %w", err)
	}

	return r.GetByIdentityID(ctx, identityID)
}

func defaultDisplayName(email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "Member"
}

// GetByIdentityID retrieves a profile by identity provider subject
func (r *ProfileRepository) GetByIdentityID(ctx context.Context, identityID string) (*models.Profile, error) {
	return r.getOne(ctx, squirrel.Eq{"identity_id": identityID})
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByStripeCustomerID retrieves the profile that owns a payment customer
func (r *ProfileRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	return r.getOne(ctx, squirrel.Eq{"stripe_customer_id": customerID})
}

// Update writes the member-editable columns
func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	sql, args, err := r.sb.Update("profiles").
		SetMap(map[string]interface{}{
			"display_name":         p.DisplayName,
			"avatar_url":           p.AvatarURL,
			"nationality":          p.Nationality,
			"residence_country":    p.ResidenceCountry,
			"occupation":           p.Occupation,
			"bio":                  p.Bio,
			"directory_visible":    p.DirectoryVisible,
			"onboarding_completed": p.OnboardingCompleted,
			"updated_at":           squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update profile query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("profileID", p.ID).Msg("Error executing update profile query")
		return fmt.Errorf("error updating profile: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrProfileNotFound
	}
	return nil
}

// UpdateBilling writes payment provider identifiers and status
func (r *ProfileRepository) UpdateBilling(ctx context.Context, profileID int64, u models.BillingUpdate) error {
	set := map[string]interface{}{"updated_at": squirrel.Expr("NOW()")}
	if u.CustomerID != nil {
		set["stripe_customer_id"] = *u.CustomerID
	}
	if u.ClearSubscription {
		set["stripe_subscription_id"] = nil
	} else if u.SubscriptionID != nil {
		set["stripe_subscription_id"] = *u.SubscriptionID
	}
	if u.Status != nil {
		set["subscription_status"] = string(*u.Status)
	}
	if u.Plan != nil {
		set["plan"] = *u.Plan
	}

	sql, args, err := r.sb.Update("profiles").
		SetMap(set).
		Where(squirrel.Eq{"id": profileID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update billing query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("profileID", profileID).Msg("Error updating billing columns")
		return fmt.Errorf("error updating billing: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrProfileNotFound
	}
	return nil
}

// DirectoryFilter narrows the community directory
type DirectoryFilter struct {
	Query      string
	Country    string
	Occupation string
}

// ListDirectory returns visible, onboarded members
func (r *ProfileRepository) ListDirectory(ctx context.Context, f DirectoryFilter, offset, limit uint64) ([]*models.Profile, int64, error) {
	where := squirrel.And{
		squirrel.Eq{"directory_visible": true, "onboarding_completed": true},
	}
	if f.Query != "" {
		pattern := helpers.LikePattern(f.Query)
		where = append(where, squirrel.Or{
			squirrel.ILike{"display_name": pattern},
			squirrel.ILike{"bio": pattern},
		})
	}
	if f.Country != "" {
		where = append(where, squirrel.Or{
			squirrel.Eq{"residence_country": f.Country},
			squirrel.Eq{"nationality": f.Country},
		})
	}
	if f.Occupation != "" {
		where = append(where, squirrel.ILike{"occupation": helpers.LikePattern(f.Occupation)})
	}

	return r.list(ctx, where, "display_name ASC, id ASC", offset, limit)
}

// ListMembers returns all members for the back office, optionally matching q on name or email
func (r *ProfileRepository) ListMembers(ctx context.Context, q string, offset, limit uint64) ([]*models.Profile, int64, error) {
	var where squirrel.Sqlizer = squirrel.Expr("TRUE")
	if q != "" {
		pattern := helpers.LikePattern(q)
		where = squirrel.Or{
			squirrel.ILike{"display_name": pattern},
			squirrel.ILike{"email": pattern},
		}
	}
	return r.list(ctx, where, "created_at DESC, id DESC", offset, limit)
}

func (r *ProfileRepository) list(ctx context.Context, where squirrel.Sqlizer, order string, offset, limit uint64) ([]*models.Profile, int64, error) {
	total, err := countTotal(ctx, r.db, r.sb.Select("COUNT(*)").From("profiles").Where(where))
	if err != nil {
		logger.Error().Err(err).Msg("Error counting profiles")
		return nil, 0, err
	}

	sql, args, err := r.sb.Select(profileColumns...).
		From("profiles").
		Where(where).
		OrderBy(order).
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list profiles query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying profiles")
		return nil, 0, fmt.Errorf("error querying profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating profile rows: %w", err)
	}

	return profiles, total, nil
}
