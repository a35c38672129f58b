package services

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/url"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/repositories"
	"github.com/frogmembers/api/internal/pkg/ai"
	"github.com/frogmembers/api/internal/pkg/calendar"
	"github.com/frogmembers/api/internal/pkg/chatops"
	"github.com/frogmembers/api/internal/pkg/documents"
	"github.com/frogmembers/api/internal/pkg/filestorage"
	"github.com/frogmembers/api/internal/pkg/payments"
)

// MockProfileStore is a mock implementation of ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) EnsureProfile(ctx context.Context, identityID, email string) (*models.Profile, error) {
	args := m.Called(ctx, identityID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileStore) GetByIdentityID(ctx context.Context, identityID string) (*models.Profile, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileStore) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileStore) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileStore) Update(ctx context.Context, p *models.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProfileStore) UpdateBilling(ctx context.Context, profileID int64, u models.BillingUpdate) error {
	return m.Called(ctx, profileID, u).Error(0)
}

func (m *MockProfileStore) ListDirectory(ctx context.Context, f repositories.DirectoryFilter, offset, limit uint64) ([]*models.Profile, int64, error) {
	args := m.Called(ctx, f, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Profile), args.Get(1).(int64), args.Error(2)
}

func (m *MockProfileStore) ListMembers(ctx context.Context, q string, offset, limit uint64) ([]*models.Profile, int64, error) {
	args := m.Called(ctx, q, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Profile), args.Get(1).(int64), args.Error(2)
}

// MockRoleStore is a mock implementation of RoleStore
type MockRoleStore struct {
	mock.Mock
}

func (m *MockRoleStore) ListRoles(ctx context.Context, profileID int64) ([]models.RoleType, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoleType), args.Error(1)
}

func (m *MockRoleStore) Grant(ctx context.Context, profileID int64, role models.RoleType, grantedBy *int64) error {
	return m.Called(ctx, profileID, role, grantedBy).Error(0)
}

func (m *MockRoleStore) Revoke(ctx context.Context, profileID int64, role models.RoleType) error {
	return m.Called(ctx, profileID, role).Error(0)
}

func (m *MockRoleStore) CountByRole(ctx context.Context, role models.RoleType) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

// MockUploadStore is a mock implementation of UploadStore
type MockUploadStore struct {
	mock.Mock
}

func (m *MockUploadStore) Create(ctx context.Context, u *models.Upload) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUploadStore) ListByProfile(ctx context.Context, profileID int64, purpose string) ([]*models.Upload, error) {
	args := m.Called(ctx, profileID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Upload), args.Error(1)
}

func (m *MockUploadStore) Delete(ctx context.Context, objectKey string) error {
	return m.Called(ctx, objectKey).Error(0)
}

// MockFileStorage is a mock implementation of filestorage.FileStorage
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Save(ctx context.Context, fileHeader *multipart.FileHeader, prefix string) (*filestorage.StoredObject, error) {
	args := m.Called(ctx, fileHeader, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*filestorage.StoredObject), args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockCourseStore is a mock implementation of CourseStore
type MockCourseStore struct {
	mock.Mock
}

func (m *MockCourseStore) Create(ctx context.Context, c *models.Course) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCourseStore) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseStore) List(ctx context.Context, f models.CourseFilter, offset, limit uint64) ([]*models.Course, int64, error) {
	args := m.Called(ctx, f, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Course), args.Get(1).(int64), args.Error(2)
}

func (m *MockCourseStore) ListBySchool(ctx context.Context, schoolID int64, publishedOnly bool) ([]*models.Course, error) {
	args := m.Called(ctx, schoolID, publishedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Course), args.Error(1)
}

func (m *MockCourseStore) Update(ctx context.Context, c *models.Course) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCourseStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockApplicationStore is a mock implementation of ApplicationStore
type MockApplicationStore struct {
	mock.Mock
}

func (m *MockApplicationStore) Create(ctx context.Context, a *models.CourseApplication) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockApplicationStore) GetByID(ctx context.Context, id int64) (*models.CourseApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CourseApplication), args.Error(1)
}

func (m *MockApplicationStore) GetBySubmissionID(ctx context.Context, submissionID string) (*models.CourseApplication, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CourseApplication), args.Error(1)
}

func (m *MockApplicationStore) ListByProfile(ctx context.Context, profileID int64) ([]*models.CourseApplication, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CourseApplication), args.Error(1)
}

func (m *MockApplicationStore) ListByStatus(ctx context.Context, status models.ApplicationStatus, offset, limit uint64) ([]*models.CourseApplication, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.CourseApplication), args.Get(1).(int64), args.Error(2)
}

func (m *MockApplicationStore) UpdateDraft(ctx context.Context, a *models.CourseApplication) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockApplicationStore) UpdateStatus(ctx context.Context, id int64, change repositories.StatusChange) error {
	return m.Called(ctx, id, change).Error(0)
}

func (m *MockApplicationStore) SetDocumentSubmission(ctx context.Context, id int64, submissionID, url string) error {
	return m.Called(ctx, id, submissionID, url).Error(0)
}

func (m *MockApplicationStore) MarkDocumentsCompleted(ctx context.Context, submissionID string, at time.Time) error {
	return m.Called(ctx, submissionID, at).Error(0)
}

// MockChatStore is a mock implementation of ChatStore
type MockChatStore struct {
	mock.Mock
}

func (m *MockChatStore) CreateSession(ctx context.Context, s *models.ChatSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockChatStore) GetSession(ctx context.Context, id int64) (*models.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockChatStore) ListSessions(ctx context.Context, profileID int64) ([]*models.ChatSession, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatSession), args.Error(1)
}

func (m *MockChatStore) SetTitle(ctx context.Context, id int64, title string) error {
	return m.Called(ctx, id, title).Error(0)
}

func (m *MockChatStore) DeleteSession(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockChatStore) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockChatStore) ListMessages(ctx context.Context, sessionID int64) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

func (m *MockChatStore) RecentMessages(ctx context.Context, sessionID int64, n int) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, sessionID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

// MockVisaPlanStore is a mock implementation of VisaPlanStore
type MockVisaPlanStore struct {
	mock.Mock
}

func (m *MockVisaPlanStore) Create(ctx context.Context, p *models.VisaPlan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockVisaPlanStore) Update(ctx context.Context, p *models.VisaPlan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockVisaPlanStore) GetByID(ctx context.Context, id int64) (*models.VisaPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VisaPlan), args.Error(1)
}

func (m *MockVisaPlanStore) ListByProfile(ctx context.Context, profileID int64) ([]*models.VisaPlan, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VisaPlan), args.Error(1)
}

func (m *MockVisaPlanStore) ListByStatus(ctx context.Context, status models.VisaPlanStatus, offset, limit uint64) ([]*models.VisaPlan, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.VisaPlan), args.Get(1).(int64), args.Error(2)
}

func (m *MockVisaPlanStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockVisaPlanStore) TransitionStatus(ctx context.Context, id int64, from []models.VisaPlanStatus, to models.VisaPlanStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *MockVisaPlanStore) AddReview(ctx context.Context, review *models.VisaPlanReview, status models.VisaPlanStatus) error {
	return m.Called(ctx, review, status).Error(0)
}

// MockOAuthStateStore is a mock implementation of OAuthStateStore
type MockOAuthStateStore struct {
	mock.Mock
}

func (m *MockOAuthStateStore) Save(ctx context.Context, s *models.OAuthState) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockOAuthStateStore) Consume(ctx context.Context, state, service string, now time.Time) (*models.OAuthState, error) {
	args := m.Called(ctx, state, service, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthState), args.Error(1)
}

func (m *MockOAuthStateStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockOAuthTokenReader is a mock implementation of OAuthTokenReader
type MockOAuthTokenReader struct {
	mock.Mock
}

func (m *MockOAuthTokenReader) Get(ctx context.Context, service string) (*models.OAuthToken, error) {
	args := m.Called(ctx, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthToken), args.Error(1)
}

// MockAuthorizer is a mock implementation of IntegrationAuthorizer
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockAuthorizer) Exchange(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

// MockDocumentRequester is a mock implementation of DocumentRequester
type MockDocumentRequester struct {
	mock.Mock
}

func (m *MockDocumentRequester) CreateSubmission(ctx context.Context, req documents.SubmissionRequest) (*documents.Submission, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documents.Submission), args.Error(1)
}

// MockNotifier is a mock implementation of chatops.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n chatops.Notification) error {
	return m.Called(ctx, n).Error(0)
}

// MockCompleter is a mock implementation of ai.Completer
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, history []ai.Turn, prompt string) (string, error) {
	args := m.Called(ctx, history, prompt)
	return args.String(0), args.Error(1)
}

// MockGateway is a mock implementation of payments.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCustomer(ctx context.Context, email string, profileID int64) (string, error) {
	args := m.Called(ctx, email, profileID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, customerID string, profileID int64) (*payments.Session, error) {
	args := m.Called(ctx, customerID, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Session), args.Error(1)
}

func (m *MockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*payments.Session, error) {
	args := m.Called(ctx, customerID, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Session), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID string) (string, error) {
	args := m.Called(ctx, subscriptionID)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.WebhookEvent), args.Error(1)
}

// MockContentSource is a mock implementation of ContentSource
type MockContentSource struct {
	mock.Mock
}

func (m *MockContentSource) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *MockContentSource) List(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	args := m.Called(ctx, endpoint, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockContentSource) Get(ctx context.Context, endpoint, contentID string, query url.Values) (json.RawMessage, error) {
	args := m.Called(ctx, endpoint, contentID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockContentSource) Purge() int {
	return m.Called().Int(0)
}

// MockCalendar is a mock implementation of calendar.Reader
type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) BusySlots(ctx context.Context, from, to time.Time) ([]calendar.Slot, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]calendar.Slot), args.Error(1)
}

// recordingPublisher keeps published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(sessionID int64, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

// limiterFunc adapts a function to RateLimiter
type limiterFunc func(key string) bool

func (f limiterFunc) Allow(key string) bool { return f(key) }
