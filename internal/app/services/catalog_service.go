package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// CatalogService defines operations on schools and courses
type CatalogService interface {
	ListSchools(ctx context.Context, f models.SchoolFilter, page, size int) (*dto.PaginatedResponse, error)
	GetSchool(ctx context.Context, id int64, includeUnpublished bool) (*dto.SchoolDetailResponse, error)
	CreateSchool(ctx context.Context, req *dto.SchoolRequest) (*models.School, error)
	UpdateSchool(ctx context.Context, id int64, req *dto.SchoolRequest) (*models.School, error)
	DeleteSchool(ctx context.Context, id int64) error

	ListCourses(ctx context.Context, f models.CourseFilter, page, size int) (*dto.PaginatedResponse, error)
	GetCourse(ctx context.Context, id int64, includeUnpublished bool) (*models.Course, error)
	CreateCourse(ctx context.Context, req *dto.CourseRequest) (*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, req *dto.CourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
}

// catalogServiceImpl implements CatalogService
type catalogServiceImpl struct {
	schools SchoolStore
	courses CourseStore
	logger  zerolog.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(schools SchoolStore, courses CourseStore, logger zerolog.Logger) CatalogService {
	return &catalogServiceImpl{schools: schools, courses: courses, logger: logger}
}

func (s *catalogServiceImpl) ListSchools(ctx context.Context, f models.SchoolFilter, page, size int) (*dto.PaginatedResponse, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Country = strings.ToUpper(strings.TrimSpace(f.Country))
	f.City = strings.TrimSpace(f.City)

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	schools, total, err := s.schools.List(ctx, f, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{
		Items:      schools,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, nil
}

func (s *catalogServiceImpl) GetSchool(ctx context.Context, id int64, includeUnpublished bool) (*dto.SchoolDetailResponse, error) {
	school, err := s.schools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !school.IsPublished && !includeUnpublished {
		return nil, apperrors.ErrSchoolNotFound
	}

	courses, err := s.courses.ListBySchool(ctx, id, !includeUnpublished)
	if err != nil {
		return nil, err
	}
	return &dto.SchoolDetailResponse{School: school, Courses: courses}, nil
}

func (s *catalogServiceImpl) CreateSchool(ctx context.Context, req *dto.SchoolRequest) (*models.School, error) {
	school := req.ToModel()
	school.Country = strings.ToUpper(school.Country)
	if err := s.schools.Create(ctx, school); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("schoolID", school.ID).Str("name", school.Name).Msg("School created")
	return school, nil
}

func (s *catalogServiceImpl) UpdateSchool(ctx context.Context, id int64, req *dto.SchoolRequest) (*models.School, error) {
	school := req.ToModel()
	school.ID = id
	school.Country = strings.ToUpper(school.Country)
	if err := s.schools.Update(ctx, school); err != nil {
		return nil, err
	}
	return school, nil
}

func (s *catalogServiceImpl) DeleteSchool(ctx context.Context, id int64) error {
	if err := s.schools.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("schoolID", id).Msg("School deleted")
	return nil
}

func (s *catalogServiceImpl) ListCourses(ctx context.Context, f models.CourseFilter, page, size int) (*dto.PaginatedResponse, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	if f.MaxTuition < 0 {
		return nil, fmt.Errorf("%w: max_tuition must not be negative", apperrors.ErrValidationFailed)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	courses, total, err := s.courses.List(ctx, f, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{
		Items:      courses,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, nil
}

func (s *catalogServiceImpl) GetCourse(ctx context.Context, id int64, includeUnpublished bool) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && !includeUnpublished {
		return nil, apperrors.ErrCourseNotFound
	}
	return course, nil
}

func (s *catalogServiceImpl) CreateCourse(ctx context.Context, req *dto.CourseRequest) (*models.Course, error) {
	course := req.ToModel()
	course.Currency = strings.ToUpper(course.Currency)
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("courseID", course.ID).Int64("schoolID", course.SchoolID).Msg("Course created")
	return course, nil
}

func (s *catalogServiceImpl) UpdateCourse(ctx context.Context, id int64, req *dto.CourseRequest) (*models.Course, error) {
	course := req.ToModel()
	course.ID = id
	course.Currency = strings.ToUpper(course.Currency)
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *catalogServiceImpl) DeleteCourse(ctx context.Context, id int64) error {
	return s.courses.Delete(ctx, id)
}
