package services

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/repositories"
	"github.com/frogmembers/api/internal/pkg/calendar"
	"github.com/frogmembers/api/internal/pkg/documents"
)

// The store interfaces below are the slices of the repositories each service
// needs. *repositories.XRepository satisfies them; tests use testify mocks.

// ProfileStore reads and writes member profiles
type ProfileStore interface {
	EnsureProfile(ctx context.Context, identityID, email string) (*models.Profile, error)
	GetByIdentityID(ctx context.Context, identityID string) (*models.Profile, error)
	GetByID(ctx context.Context, id int64) (*models.Profile, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	UpdateBilling(ctx context.Context, profileID int64, u models.BillingUpdate) error
	ListDirectory(ctx context.Context, f repositories.DirectoryFilter, offset, limit uint64) ([]*models.Profile, int64, error)
	ListMembers(ctx context.Context, q string, offset, limit uint64) ([]*models.Profile, int64, error)
}

// RoleStore manages back-office roles
type RoleStore interface {
	ListRoles(ctx context.Context, profileID int64) ([]models.RoleType, error)
	Grant(ctx context.Context, profileID int64, role models.RoleType, grantedBy *int64) error
	Revoke(ctx context.Context, profileID int64, role models.RoleType) error
	CountByRole(ctx context.Context, role models.RoleType) (int64, error)
}

// SchoolStore persists schools
type SchoolStore interface {
	Create(ctx context.Context, s *models.School) error
	GetByID(ctx context.Context, id int64) (*models.School, error)
	List(ctx context.Context, f models.SchoolFilter, offset, limit uint64) ([]*models.School, int64, error)
	Update(ctx context.Context, s *models.School) error
	Delete(ctx context.Context, id int64) error
}

// CourseStore persists courses
type CourseStore interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, f models.CourseFilter, offset, limit uint64) ([]*models.Course, int64, error)
	ListBySchool(ctx context.Context, schoolID int64, publishedOnly bool) ([]*models.Course, error)
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id int64) error
}

// ApplicationStore persists course applications
type ApplicationStore interface {
	Create(ctx context.Context, a *models.CourseApplication) error
	GetByID(ctx context.Context, id int64) (*models.CourseApplication, error)
	GetBySubmissionID(ctx context.Context, submissionID string) (*models.CourseApplication, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*models.CourseApplication, error)
	ListByStatus(ctx context.Context, status models.ApplicationStatus, offset, limit uint64) ([]*models.CourseApplication, int64, error)
	UpdateDraft(ctx context.Context, a *models.CourseApplication) error
	UpdateStatus(ctx context.Context, id int64, change repositories.StatusChange) error
	SetDocumentSubmission(ctx context.Context, id int64, submissionID, url string) error
	MarkDocumentsCompleted(ctx context.Context, submissionID string, at time.Time) error
}

// ChatStore persists chat sessions and messages
type ChatStore interface {
	CreateSession(ctx context.Context, s *models.ChatSession) error
	GetSession(ctx context.Context, id int64) (*models.ChatSession, error)
	ListSessions(ctx context.Context, profileID int64) ([]*models.ChatSession, error)
	SetTitle(ctx context.Context, id int64, title string) error
	DeleteSession(ctx context.Context, id int64) error
	AddMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID int64) ([]*models.ChatMessage, error)
	RecentMessages(ctx context.Context, sessionID int64, n int) ([]*models.ChatMessage, error)
}

// VisaPlanStore persists visa plans
type VisaPlanStore interface {
	Create(ctx context.Context, p *models.VisaPlan) error
	Update(ctx context.Context, p *models.VisaPlan) error
	GetByID(ctx context.Context, id int64) (*models.VisaPlan, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*models.VisaPlan, error)
	ListByStatus(ctx context.Context, status models.VisaPlanStatus, offset, limit uint64) ([]*models.VisaPlan, int64, error)
	Delete(ctx context.Context, id int64) error
	TransitionStatus(ctx context.Context, id int64, from []models.VisaPlanStatus, to models.VisaPlanStatus) error
	AddReview(ctx context.Context, review *models.VisaPlanReview, status models.VisaPlanStatus) error
}

// UploadStore records stored objects
type UploadStore interface {
	Create(ctx context.Context, u *models.Upload) error
	ListByProfile(ctx context.Context, profileID int64, purpose string) ([]*models.Upload, error)
	Delete(ctx context.Context, objectKey string) error
}

// OAuthStateStore keeps one-time authorization states
type OAuthStateStore interface {
	Save(ctx context.Context, s *models.OAuthState) error
	Consume(ctx context.Context, state, service string, now time.Time) (*models.OAuthState, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// OAuthTokenReader reads stored integration credentials
type OAuthTokenReader interface {
	Get(ctx context.Context, service string) (*models.OAuthToken, error)
}

// StatsSource computes admin counters
type StatsSource interface {
	Collect(ctx context.Context) (*models.AdminStats, error)
}

// EventPublisher fans chat events out to websocket subscribers
type EventPublisher interface {
	Publish(sessionID int64, eventType string, payload interface{})
}

// RateLimiter decides whether a keyed action may proceed
type RateLimiter interface {
	Allow(key string) bool
}

// DocumentRequester opens document-collection forms
type DocumentRequester interface {
	CreateSubmission(ctx context.Context, req documents.SubmissionRequest) (*documents.Submission, error)
}

// IntegrationAuthorizer runs the OAuth authorization-code flow for an integration
type IntegrationAuthorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// ContentSource reads the headless CMS
type ContentSource interface {
	Enabled() bool
	List(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
	Get(ctx context.Context, endpoint, contentID string, query url.Values) (json.RawMessage, error)
	Purge() int
}

// BusyCalendar lists busy windows
type BusyCalendar = calendar.Reader

// Services holds all the service instances
type Services struct {
	ProfileService     ProfileService
	DirectoryService   DirectoryService
	CatalogService     CatalogService
	ApplicationService ApplicationService
	ChatService        ChatService
	VisaPlanService    VisaPlanService
	BillingService     BillingService
	ContentService     ContentService
	CalendarService    CalendarService
	AdminService       AdminService
}
