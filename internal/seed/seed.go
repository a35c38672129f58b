package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
)

// ProfileEnsurer creates profiles idempotently
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, identityID, email string) (*models.Profile, error)
}

// RoleGranter grants back-office roles idempotently
type RoleGranter interface {
	Grant(ctx context.Context, profileID int64, role models.RoleType, grantedBy *int64) error
}

// BootstrapAdmins makes sure every configured identity has a profile and the
// admin role. It runs on every start and is safe to repeat.
func BootstrapAdmins(ctx context.Context, profiles ProfileEnsurer, roles RoleGranter, identities []string, lgr zerolog.Logger) error {
	lgr.Info().Int("count", len(identities)).Msg("Checking/Creating bootstrap admins...")
	var finalErr error // collect errors without stopping the loop

	for _, identityID := range identities {
		identityID = strings.TrimSpace(identityID)
		if identityID == "" {
			continue
		}

		profile, err := profiles.EnsureProfile(ctx, identityID, "")
		if err != nil {
			lgr.Error().Err(err).Str("identityID", identityID).Msg("Error creating bootstrap admin profile")
			finalErr = errors.Join(finalErr, err)
			continue
		}

		if err := roles.Grant(ctx, profile.ID, models.RoleAdmin, nil); err != nil {
			lgr.Error().Err(err).Int64("profileID", profile.ID).Msg("Error granting bootstrap admin role")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		lgr.Debug().Int64("profileID", profile.ID).Msg("Bootstrap admin ready")
	}

	return finalErr
}
