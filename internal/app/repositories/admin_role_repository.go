package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/dberrors"
	"github.com/frogmembers/api/internal/pkg/logger"
)

// AdminRoleRepository handles back-office role assignments
type AdminRoleRepository struct {
	db DBTX
	sb squirrel.StatementBuilderType
}

// NewAdminRoleRepository creates a new AdminRoleRepository
func NewAdminRoleRepository(db DBTX) *AdminRoleRepository {
	return &AdminRoleRepository{db: db, sb: newBuilder()}
}

// ListRoles returns the roles held by a profile
func (r *AdminRoleRepository) ListRoles(ctx context.Context, profileID int64) ([]models.RoleType, error) {
	sql, args, err := r.sb.Select("role").
		From("admin_roles").
		Where(squirrel.Eq{"profile_id": profileID}).
		OrderBy("role ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list roles query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("profileID", profileID).Msg("Error querying roles")
		return nil, fmt.Errorf("error querying roles: %w", err)
	}
	defer rows.Close()

	roles := []models.RoleType{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("error scanning role: %w", err)
		}
		roles = append(roles, models.RoleType(role))
	}
	return roles, rows.Err()
}

// Grant assigns a role; granting an existing role is a no-op
func (r *AdminRoleRepository) Grant(ctx context.Context, profileID int64, role models.RoleType, grantedBy *int64) error {
	sql, args, err := r.sb.Insert("admin_roles").
		Columns("profile_id", "role", "granted_by").
		Values(profileID, string(role), grantedBy).
		Suffix("ON CONFLICT (profile_id, role) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build grant role query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrProfileNotFound
		}
		logger.Error().Err(err).Int64("profileID", profileID).Str("role", string(role)).Msg("Error granting role")
		return fmt.Errorf("error granting role: %w", err)
	}
	return nil
}

// Revoke removes a role
func (r *AdminRoleRepository) Revoke(ctx context.Context, profileID int64, role models.RoleType) error {
	sql, args, err := r.sb.Delete("admin_roles").
		Where(squirrel.Eq{"profile_id": profileID, "role": string(role)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build revoke role query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("profileID", profileID).Msg("Error revoking role")
		return fmt.Errorf("error revoking role: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("role assignment not found")
	}
	return nil
}

// CountByRole counts holders of a role
func (r *AdminRoleRepository) CountByRole(ctx context.Context, role models.RoleType) (int64, error) {
	return countTotal(ctx, r.db, r.sb.Select("COUNT(*)").From("admin_roles").Where(squirrel.Eq{"role": string(role)}))
}
