package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// OAuthStateTTL bounds how long a consent redirect may take
const OAuthStateTTL = 10 * time.Minute

// AdminService defines back-office operations
type AdminService interface {
	ListMembers(ctx context.Context, q string, page, size int) (*dto.PaginatedResponse, error)
	GetMember(ctx context.Context, id int64) (*models.Profile, error)
	GrantRole(ctx context.Context, admin *models.Profile, memberID int64, role models.RoleType) (*models.Profile, error)
	RevokeRole(ctx context.Context, admin *models.Profile, memberID int64, role models.RoleType) (*models.Profile, error)
	Stats(ctx context.Context) (*models.AdminStats, error)

	IntegrationStatus(ctx context.Context) (*dto.IntegrationStatusResponse, error)
	ConnectURL(ctx context.Context, returnURL string) (string, error)
	Callback(ctx context.Context, state, code string) (string, error)
	PurgeExpiredStates(ctx context.Context) (int64, error)
}

// adminServiceImpl implements AdminService
type adminServiceImpl struct {
	profiles   ProfileStore
	roles      RoleStore
	stats      StatsSource
	states     OAuthStateStore
	tokens     OAuthTokenReader
	authorizer IntegrationAuthorizer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAdminService creates a new AdminService. authorizer may be nil when the
// document-collection integration is disabled.
func NewAdminService(
	profiles ProfileStore,
	roles RoleStore,
	stats StatsSource,
	states OAuthStateStore,
	tokens OAuthTokenReader,
	authorizer IntegrationAuthorizer,
	logger zerolog.Logger,
) AdminService {
	return &adminServiceImpl{
		profiles:   profiles,
		roles:      roles,
		stats:      stats,
		states:     states,
		tokens:     tokens,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *adminServiceImpl) ListMembers(ctx context.Context, q string, page, size int) (*dto.PaginatedResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	members, total, err := s.profiles.ListMembers(ctx, q, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{
		Items:      members,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, nil
}

func (s *adminServiceImpl) GetMember(ctx context.Context, id int64) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.ListRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	profile.Roles = roles
	return profile, nil
}

func (s *adminServiceImpl) GrantRole(ctx context.Context, admin *models.Profile, memberID int64, role models.RoleType) (*models.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidationFailed, role)
	}
	if err := s.roles.Grant(ctx, memberID, role, &admin.ID); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("memberID", memberID).Int64("grantedBy", admin.ID).Str("role", string(role)).Msg("Role granted")
	return s.GetMember(ctx, memberID)
}

// RevokeRole removes a role, refusing to remove the last admin
func (s *adminServiceImpl) RevokeRole(ctx context.Context, admin *models.Profile, memberID int64, role models.RoleType) (*models.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidationFailed, role)
	}

	if role == models.RoleAdmin {
		admins, err := s.roles.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, apperrors.NewConflictError("cannot revoke the last admin")
		}
	}

	if err := s.roles.Revoke(ctx, memberID, role); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("memberID", memberID).Int64("revokedBy", admin.ID).Str("role", string(role)).Msg("Role revoked")
	return s.GetMember(ctx, memberID)
}

func (s *adminServiceImpl) Stats(ctx context.Context) (*models.AdminStats, error) {
	return s.stats.Collect(ctx)
}

func (s *adminServiceImpl) IntegrationStatus(ctx context.Context) (*dto.IntegrationStatusResponse, error) {
	status := &dto.IntegrationStatusResponse{
		Service: models.ServiceDocuments,
		Enabled: s.authorizer != nil,
	}

	token, err := s.tokens.Get(ctx, models.ServiceDocuments)
	if err != nil {
		if errors.Is(err, apperrors.ErrIntegrationNotConnected) {
			return status, nil
		}
		return nil, err
	}

	status.Connected = true
	status.Scope = token.Scope
	status.UpdatedAt = &token.UpdatedAt
	return status, nil
}

// ConnectURL stores a one-time state and returns the provider consent URL
func (s *adminServiceImpl) ConnectURL(ctx context.Context, returnURL string) (string, error) {
	if s.authorizer == nil {
		return "", apperrors.ErrIntegrationDisabled
	}

	state := &models.OAuthState{
		State:     uuid.NewString(),
		Service:   models.ServiceDocuments,
		ReturnURL: returnURL,
		ExpiresAt: s.now().Add(OAuthStateTTL),
	}
	if err := s.states.Save(ctx, state); err != nil {
		return "", err
	}
	return s.authorizer.AuthCodeURL(state.State), nil
}

// Callback consumes the state and exchanges the code, returning where to send the admin next
func (s *adminServiceImpl) Callback(ctx context.Context, state, code string) (string, error) {
	if s.authorizer == nil {
		return "", apperrors.ErrIntegrationDisabled
	}
	if state == "" || code == "" {
		return "", apperrors.ErrInvalidOAuthState
	}

	saved, err := s.states.Consume(ctx, state, models.ServiceDocuments, s.now())
	if err != nil {
		return "", err
	}

	if err := s.authorizer.Exchange(ctx, code); err != nil {
		s.logger.Error().Err(err).Msg("Document provider code exchange failed")
		return "", apperrors.NewExternalServiceError(models.ServiceDocuments, err)
	}
	return saved.ReturnURL, nil
}

// PurgeExpiredStates drops abandoned consent states
func (s *adminServiceImpl) PurgeExpiredStates(ctx context.Context) (int64, error) {
	n, err := s.states.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug().Int64("count", n).Msg("Expired OAuth states removed")
	}
	return n, nil
}
