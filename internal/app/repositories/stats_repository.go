package repositories

import (
	"context"
	"fmt"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/pkg/logger"
)

// StatsRepository computes back-office counters
type StatsRepository struct {
	db DBTX
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

const memberStatsQuery = `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE onboarding_completed),
	COUNT(*) FILTER (WHERE subscription_status IN ('active', 'trialing'))
FROM profiles`

const applicationStatsQuery = `SELECT status, COUNT(*) FROM course_applications GROUP BY status`

const plansAwaitingQuery = `SELECT COUNT(*) FROM visa_plans WHERE status = 'review_requested'`

// Collect gathers all admin dashboard counters
func (r *StatsRepository) Collect(ctx context.Context) (*models.AdminStats, error) {
	stats := &models.AdminStats{ApplicationsByStatus: map[models.ApplicationStatus]int64{}}

	if err := r.db.QueryRow(ctx, memberStatsQuery).Scan(&stats.Members, &stats.OnboardedMembers, &stats.ActiveSubscriptions); err != nil {
		logger.Error().Err(err).Msg("Error collecting member stats")
		return nil, fmt.Errorf("error collecting member stats: %w", err)
	}

	rows, err := r.db.Query(ctx, applicationStatsQuery)
	if err != nil {
		logger.Error().Err(err).Msg("Error collecting application stats")
		return nil, fmt.Errorf("error collecting application stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("error scanning application stats: %w", err)
		}
		stats.ApplicationsByStatus[models.ApplicationStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.db.QueryRow(ctx, plansAwaitingQuery).Scan(&stats.PlansAwaitingReview); err != nil {
		logger.Error().Err(err).Msg("Error collecting plan stats")
		return nil, fmt.Errorf("error collecting plan stats: %w", err)
	}

	return stats, nil
}
