package controllers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
)

type mockApplicationService struct{ mock.Mock }

func (m *mockApplicationService) Create(ctx context.Context, actor *models.Profile, req *dto.CreateApplicationRequest) (*models.CourseApplication, error) {
	args := m.Called(ctx, actor, req)
	return application(args)
}

func (m *mockApplicationService) ListMine(ctx context.Context, actor *models.Profile) ([]*models.CourseApplication, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CourseApplication), args.Error(1)
}

func (m *mockApplicationService) Get(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	return application(m.Called(ctx, actor, id))
}

func (m *mockApplicationService) UpdateDraft(ctx context.Context, actor *models.Profile, id int64, req *dto.UpdateApplicationRequest) (*models.CourseApplication, error) {
	return application(m.Called(ctx, actor, id, req))
}

func (m *mockApplicationService) Submit(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	return application(m.Called(ctx, actor, id))
}

func (m *mockApplicationService) RequestDocuments(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	return application(m.Called(ctx, actor, id))
}

func (m *mockApplicationService) Withdraw(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	return application(m.Called(ctx, actor, id))
}

func (m *mockApplicationService) ListByStatus(ctx context.Context, status models.ApplicationStatus, page, size int) (*dto.PaginatedResponse, error) {
	args := m.Called(ctx, status, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedResponse), args.Error(1)
}

func (m *mockApplicationService) UpdateStatus(ctx context.Context, staff *models.Profile, id int64, req *dto.UpdateApplicationStatusRequest) (*models.CourseApplication, error) {
	return application(m.Called(ctx, staff, id, req))
}

func (m *mockApplicationService) HandleDocumentWebhook(ctx context.Context, body []byte, signature string) error {
	return m.Called(ctx, body, signature).Error(0)
}

func application(args mock.Arguments) (*models.CourseApplication, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CourseApplication), args.Error(1)
}

type mockBillingService struct{ mock.Mock }

func (m *mockBillingService) Summary(actor *models.Profile) dto.BillingSummary {
	return m.Called(actor).Get(0).(dto.BillingSummary)
}

func (m *mockBillingService) Checkout(ctx context.Context, actor *models.Profile) (*dto.RedirectResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RedirectResponse), args.Error(1)
}

func (m *mockBillingService) Portal(ctx context.Context, actor *models.Profile) (*dto.RedirectResponse, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RedirectResponse), args.Error(1)
}

func (m *mockBillingService) Cancel(ctx context.Context, actor *models.Profile) (*dto.BillingSummary, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BillingSummary), args.Error(1)
}

func (m *mockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

type mockAdminService struct{ mock.Mock }

func (m *mockAdminService) ListMembers(ctx context.Context, q string, page, size int) (*dto.PaginatedResponse, error) {
	args := m.Called(ctx, q, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedResponse), args.Error(1)
}

func (m *mockAdminService) GetMember(ctx context.Context, id int64) (*models.Profile, error) {
	return profileResult(m.Called(ctx, id))
}

func (m *mockAdminService) GrantRole(ctx context.Context, admin *models.Profile, memberID int64, role models.RoleType) (*models.Profile, error) {
	return profileResult(m.Called(ctx, admin, memberID, role))
}

func (m *mockAdminService) RevokeRole(ctx context.Context, admin *models.Profile, memberID int64, role models.RoleType) (*models.Profile, error) {
	return profileResult(m.Called(ctx, admin, memberID, role))
}

func (m *mockAdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminStats), args.Error(1)
}

func (m *mockAdminService) IntegrationStatus(ctx context.Context) (*dto.IntegrationStatusResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.IntegrationStatusResponse), args.Error(1)
}

func (m *mockAdminService) ConnectURL(ctx context.Context, returnURL string) (string, error) {
	args := m.Called(ctx, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockAdminService) Callback(ctx context.Context, state, code string) (string, error) {
	args := m.Called(ctx, state, code)
	return args.String(0), args.Error(1)
}

func (m *mockAdminService) PurgeExpiredStates(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func profileResult(args mock.Arguments) (*models.Profile, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type mockCatalogService struct{ mock.Mock }

func (m *mockCatalogService) ListSchools(ctx context.Context, f models.SchoolFilter, page, size int) (*dto.PaginatedResponse, error) {
	args := m.Called(ctx, f, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedResponse), args.Error(1)
}

func (m *mockCatalogService) GetSchool(ctx context.Context, id int64, includeUnpublished bool) (*dto.SchoolDetailResponse, error) {
	args := m.Called(ctx, id, includeUnpublished)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SchoolDetailResponse), args.Error(1)
}

func (m *mockCatalogService) CreateSchool(ctx context.Context, req *dto.SchoolRequest) (*models.School, error) {
	return school(m.Called(ctx, req))
}

func (m *mockCatalogService) UpdateSchool(ctx context.Context, id int64, req *dto.SchoolRequest) (*models.School, error) {
	return school(m.Called(ctx, id, req))
}

func (m *mockCatalogService) DeleteSchool(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalogService) ListCourses(ctx context.Context, f models.CourseFilter, page, size int) (*dto.PaginatedResponse, error) {
	args := m.Called(ctx, f, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedResponse), args.Error(1)
}

func (m *mockCatalogService) GetCourse(ctx context.Context, id int64, includeUnpublished bool) (*models.Course, error) {
	return course(m.Called(ctx, id, includeUnpublished))
}

func (m *mockCatalogService) CreateCourse(ctx context.Context, req *dto.CourseRequest) (*models.Course, error) {
	return course(m.Called(ctx, req))
}

func (m *mockCatalogService) UpdateCourse(ctx context.Context, id int64, req *dto.CourseRequest) (*models.Course, error) {
	return course(m.Called(ctx, id, req))
}

func (m *mockCatalogService) DeleteCourse(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func school(args mock.Arguments) (*models.School, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.School), args.Error(1)
}

func course(args mock.Arguments) (*models.Course, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}
