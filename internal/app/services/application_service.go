package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/repositories"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/chatops"
	"github.com/frogmembers/api/internal/pkg/documents"
	"github.com/frogmembers/api/internal/pkg/helpers"
)

// EventSubmissionCompleted is the callback event that marks documents received
const EventSubmissionCompleted = "submission.completed"

// ApplicationService defines course application operations
type ApplicationService interface {
	Create(ctx context.Context, actor *models.Profile, req *dto.CreateApplicationRequest) (*models.CourseApplication, error)
	ListMine(ctx context.Context, actor *models.Profile) ([]*models.CourseApplication, error)
	Get(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error)
	UpdateDraft(ctx context.Context, actor *models.Profile, id int64, req *dto.UpdateApplicationRequest) (*models.CourseApplication, error)
	Submit(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error)
	RequestDocuments(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error)
	Withdraw(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error)

	ListByStatus(ctx context.Context, status models.ApplicationStatus, page, size int) (*dto.PaginatedResponse, error)
	UpdateStatus(ctx context.Context, staff *models.Profile, id int64, req *dto.UpdateApplicationStatusRequest) (*models.CourseApplication, error)

	HandleDocumentWebhook(ctx context.Context, body []byte, signature string) error
}

// applicationServiceImpl implements ApplicationService
type applicationServiceImpl struct {
	apps          ApplicationStore
	courses       CourseStore
	documents     DocumentRequester
	webhookSecret string
	notifier      chatops.Notifier
	logger        zerolog.Logger
	now           func() time.Time
}

// NewApplicationService creates a new ApplicationService. docs may be nil when
// the document-collection integration is disabled.
func NewApplicationService(
	apps ApplicationStore,
	courses CourseStore,
	docs DocumentRequester,
	webhookSecret string,
	notifier chatops.Notifier,
	logger zerolog.Logger,
) ApplicationService {
	return &applicationServiceImpl{
		apps:          apps,
		courses:       courses,
		documents:     docs,
		webhookSecret: webhookSecret,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *applicationServiceImpl) Create(ctx context.Context, actor *models.Profile, req *dto.CreateApplicationRequest) (*models.CourseApplication, error) {
	course, err := s.courses.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, apperrors.ErrCourseNotPublished
	}

	start, err := helpers.ParseDate(req.DesiredStartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: desiredStartDate: %v", apperrors.ErrValidationFailed, err)
	}

	app := &models.CourseApplication{
		ProfileID:        actor.ID,
		CourseID:         course.ID,
		Status:           models.ApplicationDraft,
		DesiredStartDate: start,
		Motivation:       req.Motivation,
		CourseName:       course.Name,
		SchoolName:       course.SchoolName,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("applicationID", app.ID).Int64("profileID", actor.ID).Msg("Application draft created")
	return app, nil
}

func (s *applicationServiceImpl) ListMine(ctx context.Context, actor *models.Profile) ([]*models.CourseApplication, error) {
	return s.apps.ListByProfile(ctx, actor.ID)
}

// Get returns an application visible to actor: the owner or staff
func (s *applicationServiceImpl) Get(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ProfileID != actor.ID && !actor.HasRole(models.RoleStaff) {
		return nil, apperrors.ErrApplicationNotFound
	}
	return app, nil
}

// owned returns an application only when actor owns it
func (s *applicationServiceImpl) owned(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.ProfileID != actor.ID {
		return nil, apperrors.ErrApplicationNotFound
	}
	return app, nil
}

func (s *applicationServiceImpl) UpdateDraft(ctx context.Context, actor *models.Profile, id int64, req *dto.UpdateApplicationRequest) (*models.CourseApplication, error) {
	app, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationDraft {
		return nil, fmt.Errorf("%w: only drafts can be edited", apperrors.ErrInvalidTransition)
	}

	if req.DesiredStartDate != nil {
		start, err := helpers.ParseDate(*req.DesiredStartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: desiredStartDate: %v", apperrors.ErrValidationFailed, err)
		}
		app.DesiredStartDate = start
	}
	if req.Motivation != nil {
		app.Motivation = *req.Motivation
	}

	if err := s.apps.UpdateDraft(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Submit moves a draft to submitted, then asks for documents and notifies staff.
// Neither follow-up can fail the submission.
func (s *applicationServiceImpl) Submit(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	app, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, app, models.ApplicationSubmitted, nil); err != nil {
		return nil, err
	}

	if s.documents != nil {
		if err := s.requestDocuments(ctx, actor, app); err != nil {
			s.logger.Warn().Err(err).Int64("applicationID", app.ID).Msg("Document request failed, member can retry")
		}
	}

	notifyBestEffort(ctx, s.notifier, s.logger, chatops.Notification{
		Title: "Course application submitted",
		Text:  fmt.Sprintf("%s applied to %s", actor.DisplayName, app.CourseName),
		Fields: []chatops.Field{
			{Label: "Application", Value: strconv.FormatInt(app.ID, 10)},
			{Label: "School", Value: app.SchoolName},
			{Label: "Desired start", Value: desiredStart(app)},
		},
	})

	return s.apps.GetByID(ctx, app.ID)
}

// RequestDocuments (re)opens the document-collection form for a submitted application
func (s *applicationServiceImpl) RequestDocuments(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	if s.documents == nil {
		return nil, apperrors.ErrIntegrationDisabled
	}

	app, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationSubmitted && app.Status != models.ApplicationUnderReview {
		return nil, fmt.Errorf("%w: documents are requested after submission", apperrors.ErrInvalidTransition)
	}
	if app.DocumentsCompletedAt != nil {
		return nil, apperrors.NewConflictError("documents already received")
	}

	if err := s.requestDocuments(ctx, actor, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationServiceImpl) requestDocuments(ctx context.Context, actor *models.Profile, app *models.CourseApplication) error {
	sub, err := s.documents.CreateSubmission(ctx, documents.SubmissionRequest{
		ExternalID: "application-" + strconv.FormatInt(app.ID, 10),
		Email:      actor.Email,
		Name:       actor.DisplayName,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrIntegrationNotConnected) {
			return err
		}
		return apperrors.NewExternalServiceError("documents", err)
	}

	if err := s.apps.SetDocumentSubmission(ctx, app.ID, sub.ID, sub.URL); err != nil {
		return err
	}
	app.DocumentSubmissionID = &sub.ID
	app.DocumentSubmissionURL = &sub.URL
	return nil
}

func (s *applicationServiceImpl) Withdraw(ctx context.Context, actor *models.Profile, id int64) (*models.CourseApplication, error) {
	app, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, app, models.ApplicationWithdrawn, nil); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationServiceImpl) ListByStatus(ctx context.Context, status models.ApplicationStatus, page, size int) (*dto.PaginatedResponse, error) {
	if status == "" {
		status = models.ApplicationSubmitted
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidationFailed, status)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	apps, total, err := s.apps.ListByStatus(ctx, status, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{
		Items:      apps,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, nil
}

func (s *applicationServiceImpl) UpdateStatus(ctx context.Context, staff *models.Profile, id int64, req *dto.UpdateApplicationStatusRequest) (*models.CourseApplication, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := models.ApplicationStatus(req.Status)
	if err := s.transition(ctx, app, next, helpers.NullIfEmpty(req.StaffNote)); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("applicationID", id).
		Int64("staffID", staff.ID).
		Str("status", string(next)).
		Msg("Application status changed")
	return app, nil
}

// transition applies the status machine; the store re-checks the current status
// so two concurrent transitions cannot both win
func (s *applicationServiceImpl) transition(ctx context.Context, app *models.CourseApplication, to models.ApplicationStatus, note *string) error {
	if !app.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, app.Status, to)
	}

	change := repositories.StatusChange{From: app.Status, To: to, StaffNote: note}
	if to == models.ApplicationSubmitted {
		now := s.now().UTC()
		change.SubmittedAt = &now
	}
	if err := s.apps.UpdateStatus(ctx, app.ID, change); err != nil {
		return err
	}

	app.Status = to
	if note != nil {
		app.StaffNote = note
	}
	if change.SubmittedAt != nil {
		app.SubmittedAt = change.SubmittedAt
	}
	return nil
}

// HandleDocumentWebhook verifies and applies a document-collection callback
func (s *applicationServiceImpl) HandleDocumentWebhook(ctx context.Context, body []byte, signature string) error {
	if !documents.VerifySignature(s.webhookSecret, body, signature) {
		return apperrors.ErrWebhookSignature
	}

	var payload dto.DocumentWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.SubmissionID == "" {
		return fmt.Errorf("%w: malformed callback", apperrors.ErrBadRequest)
	}

	if payload.Event != EventSubmissionCompleted {
		s.logger.Debug().Str("event", payload.Event).Msg("Ignoring document callback")
		return nil
	}

	completedAt := s.now().UTC()
	if payload.CompletedAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.CompletedAt); err == nil {
			completedAt = t
		}
	}

	if err := s.apps.MarkDocumentsCompleted(ctx, payload.SubmissionID, completedAt); err != nil {
		if errors.Is(err, apperrors.ErrApplicationNotFound) {
			s.logger.Warn().Str("submissionID", payload.SubmissionID).Msg("Callback for unknown submission")
			return nil
		}
		return err
	}

	s.logger.Info().Str("submissionID", payload.SubmissionID).Msg("Application documents completed")
	return nil
}

func desiredStart(app *models.CourseApplication) string {
	if app.DesiredStartDate == nil {
		return "flexible"
	}
	return helpers.FormatDate(app.DesiredStartDate)
}
