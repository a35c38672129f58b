package services

import (
	"context"
	"strings"

	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/repositories"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// DirectoryService lists members who opted into the community directory
type DirectoryService interface {
	List(ctx context.Context, f repositories.DirectoryFilter, page, size int) (*dto.PaginatedResponse, error)
	Get(ctx context.Context, id int64) (*dto.DirectoryEntry, error)
}

type directoryServiceImpl struct {
	profiles ProfileStore
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(profiles ProfileStore) DirectoryService {
	return &directoryServiceImpl{profiles: profiles}
}

func (s *directoryServiceImpl) List(ctx context.Context, f repositories.DirectoryFilter, page, size int) (*dto.PaginatedResponse, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Country = strings.ToUpper(strings.TrimSpace(f.Country))
	f.Occupation = strings.TrimSpace(f.Occupation)

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	profiles, total, err := s.profiles.ListDirectory(ctx, f, offset, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.DirectoryEntry, 0, len(profiles))
	for _, p := range profiles {
		entries = append(entries, dto.ToDirectoryEntry(p))
	}

	return &dto.PaginatedResponse{
		Items:      entries,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, nil
}

// Get returns one visible member; hidden or not-yet-onboarded members are reported as missing
func (s *directoryServiceImpl) Get(ctx context.Context, id int64) (*dto.DirectoryEntry, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.DirectoryVisible || !p.OnboardingCompleted {
		return nil, apperrors.ErrProfileNotFound
	}
	entry := dto.ToDirectoryEntry(p)
	return &entry, nil
}
