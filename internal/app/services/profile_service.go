package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/chatops"
	"github.com/frogmembers/api/internal/pkg/filestorage"
)

// ProfileService defines operations on the current member's profile
type ProfileService interface {
	// Resolve returns the caller's profile with roles, creating it on first sight
	Resolve(ctx context.Context, identityID, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile, req *dto.UpdateProfileRequest) (*models.Profile, error)
	CompleteOnboarding(ctx context.Context, profile *models.Profile, req *dto.OnboardingRequest) (*models.Profile, error)
	UploadAvatar(ctx context.Context, profile *models.Profile, file *multipart.FileHeader) (*models.Profile, error)
}

// profileServiceImpl implements ProfileService
type profileServiceImpl struct {
	profiles ProfileStore
	roles    RoleStore
	uploads  UploadStore
	storage  filestorage.FileStorage
	policy   filestorage.UploadPolicy
	notifier chatops.Notifier
	logger   zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(
	profiles ProfileStore,
	roles RoleStore,
	uploads UploadStore,
	storage filestorage.FileStorage,
	policy filestorage.UploadPolicy,
	notifier chatops.Notifier,
	logger zerolog.Logger,
) ProfileService {
	return &profileServiceImpl{
		profiles: profiles,
		roles:    roles,
		uploads:  uploads,
		storage:  storage,
		policy:   policy,
		notifier: notifier,
		logger:   logger,
	}
}

// Resolve reads or inserts the profile keyed by identity id
func (s *profileServiceImpl) Resolve(ctx context.Context, identityID, email string) (*models.Profile, error) {
	if strings.TrimSpace(identityID) == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	profile, err := s.profiles.EnsureProfile(ctx, identityID, email)
	if err != nil {
		return nil, err
	}

	roles, err := s.roles.ListRoles(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	profile.Roles = roles
	return profile, nil
}

// UpdateProfile applies the non-nil fields of req
func (s *profileServiceImpl) UpdateProfile(ctx context.Context, profile *models.Profile, req *dto.UpdateProfileRequest) (*models.Profile, error) {
	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Nationality != nil {
		profile.Nationality = upperPtr(req.Nationality)
	}
	if req.ResidenceCountry != nil {
		profile.ResidenceCountry = upperPtr(req.ResidenceCountry)
	}
	if req.Occupation != nil {
		profile.Occupation = trimPtr(req.Occupation)
	}
	if req.Bio != nil {
		profile.Bio = trimPtr(req.Bio)
	}
	if req.DirectoryVisible != nil {
		profile.DirectoryVisible = *req.DirectoryVisible
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// CompleteOnboarding stores the onboarding answers and flips the flag
func (s *profileServiceImpl) CompleteOnboarding(ctx context.Context, profile *models.Profile, req *dto.OnboardingRequest) (*models.Profile, error) {
	firstTime := !profile.OnboardingCompleted

	profile.DisplayName = strings.TrimSpace(req.DisplayName)
	profile.Nationality = upperPtr(&req.Nationality)
	profile.ResidenceCountry = upperPtr(&req.ResidenceCountry)
	profile.Occupation = trimPtr(&req.Occupation)
	profile.Bio = trimPtr(&req.Bio)
	profile.DirectoryVisible = req.DirectoryVisible
	profile.OnboardingCompleted = true

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}

	if firstTime {
		s.notify(ctx, chatops.Notification{
			Title: "New member onboarded",
			Text:  profile.DisplayName + " finished onboarding",
			Fields: []chatops.Field{
				{Label: "Nationality", Value: req.Nationality},
				{Label: "Residence", Value: req.ResidenceCountry},
				{Label: "Occupation", Value: req.Occupation},
			},
		})
	}

	s.logger.Info().Int64("profileID", profile.ID).Msg("Onboarding completed")
	return profile, nil
}

// UploadAvatar stores an image and points the profile at it
func (s *profileServiceImpl) UploadAvatar(ctx context.Context, profile *models.Profile, file *multipart.FileHeader) (*models.Profile, error) {
	mimeType, err := s.policy.Check(file)
	if err != nil {
		if errors.Is(err, filestorage.ErrTooLarge) || errors.Is(err, filestorage.ErrUnsupportedType) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err)
		}
		return nil, err
	}

	obj, err := s.storage.Save(ctx, file, "avatars")
	if err != nil {
		s.logger.Error().Err(err).Int64("profileID", profile.ID).Msg("Failed to store avatar")
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	upload := &models.Upload{
		ProfileID: profile.ID,
		ObjectKey: obj.Key,
		URL:       obj.URL,
		Filename:  obj.Filename,
		Size:      obj.Size,
		MimeType:  mimeType,
		Purpose:   models.UploadAvatar,
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		s.cleanup(ctx, obj.Key)
		return nil, err
	}

	profile.AvatarURL = &obj.URL
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}

	s.pruneAvatars(ctx, profile.ID, obj.Key)
	return profile, nil
}

// pruneAvatars drops avatar objects the profile no longer points at
func (s *profileServiceImpl) pruneAvatars(ctx context.Context, profileID int64, keep string) {
	previous, err := s.uploads.ListByProfile(ctx, profileID, models.UploadAvatar)
	if err != nil {
		s.logger.Warn().Err(err).Int64("profileID", profileID).Msg("Failed to list previous avatars")
		return
	}

	for _, u := range previous {
		if u.ObjectKey == keep {
			continue
		}
		s.cleanup(ctx, u.ObjectKey)
		if err := s.uploads.Delete(ctx, u.ObjectKey); err != nil {
			s.logger.Warn().Err(err).Str("key", u.ObjectKey).Msg("Failed to remove avatar record")
		}
	}
}

func (s *profileServiceImpl) cleanup(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to remove orphaned object")
	}
}

func (s *profileServiceImpl) notify(ctx context.Context, n chatops.Notification) {
	notifyBestEffort(ctx, s.notifier, s.logger, n)
}

// notifyBestEffort sends once and logs failures; callers never fail on chat-ops errors
func notifyBestEffort(ctx context.Context, notifier chatops.Notifier, logger zerolog.Logger, n chatops.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		if errors.Is(err, chatops.ErrNotConfigured) {
			return
		}
		logger.Warn().Err(err).Str("title", n.Title).Msg("Chat-ops notification failed")
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func upperPtr(s *string) *string {
	v := trimPtr(s)
	if v == nil {
		return nil
	}
	u := strings.ToUpper(*v)
	return &u
}
