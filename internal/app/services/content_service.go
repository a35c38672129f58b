package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/cms"
)

// ContentService serves headless CMS content to members
type ContentService interface {
	List(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
	Get(ctx context.Context, endpoint, contentID string, query url.Values) (json.RawMessage, error)
	Purge() int
}

// contentServiceImpl implements ContentService
type contentServiceImpl struct {
	source ContentSource
	logger zerolog.Logger
}

// NewContentService creates a new ContentService
func NewContentService(source ContentSource, logger zerolog.Logger) ContentService {
	return &contentServiceImpl{source: source, logger: logger}
}

func (s *contentServiceImpl) List(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	if !s.source.Enabled() {
		return nil, apperrors.ErrIntegrationDisabled
	}
	body, err := s.source.List(ctx, endpoint, query)
	return body, s.mapError(endpoint, err)
}

func (s *contentServiceImpl) Get(ctx context.Context, endpoint, contentID string, query url.Values) (json.RawMessage, error) {
	if !s.source.Enabled() {
		return nil, apperrors.ErrIntegrationDisabled
	}
	body, err := s.source.Get(ctx, endpoint, contentID, query)
	return body, s.mapError(endpoint, err)
}

func (s *contentServiceImpl) Purge() int {
	n := s.source.Purge()
	s.logger.Info().Int("entries", n).Msg("Content cache purged")
	return n
}

func (s *contentServiceImpl) mapError(endpoint string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cms.ErrEndpointNotAllowed):
		return apperrors.ErrContentNotAllowed
	case errors.Is(err, cms.ErrNotFound):
		return apperrors.NewResourceNotFoundError("content not found")
	case errors.Is(err, cms.ErrNotConfigured):
		return apperrors.ErrIntegrationDisabled
	}
	s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("CMS request failed")
	return apperrors.NewExternalServiceError("cms", err)
}
