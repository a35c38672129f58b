package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/app/repositories"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/chatops"
	"github.com/frogmembers/api/internal/pkg/documents"
)

const docsSecret = "docs-secret"

type applicationFixture struct {
	apps     *MockApplicationStore
	courses  *MockCourseStore
	docs     *MockDocumentRequester
	notifier *MockNotifier
	svc      *applicationServiceImpl
}

func newApplicationFixture(withDocs bool) *applicationFixture {
	f := &applicationFixture{
		apps:     new(MockApplicationStore),
		courses:  new(MockCourseStore),
		docs:     new(MockDocumentRequester),
		notifier: new(MockNotifier),
	}
	var requester DocumentRequester
	if withDocs {
		requester = f.docs
	}
	f.svc = NewApplicationService(f.apps, f.courses, requester, docsSecret, f.notifier, zerolog.Nop()).(*applicationServiceImpl)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func member(id int64) *models.Profile {
	return &models.Profile{ID: id, IdentityID: "idp|member", Email: "m@example.com", DisplayName: "Kaito"}
}

func staffMember(id int64) *models.Profile {
	p := member(id)
	p.Roles = []models.RoleType{models.RoleStaff}
	return p
}

func TestApplicationService_Create(t *testing.T) {
	t.Run("unpublished course", func(t *testing.T) {
		f := newApplicationFixture(false)
		f.courses.On("GetByID", mock.Anything, int64(3)).Return(&models.Course{ID: 3, IsPublished: false}, nil)

		_, err := f.svc.Create(context.Background(), member(1), &dto.CreateApplicationRequest{CourseID: 3})
		assert.ErrorIs(t, err, apperrors.ErrCourseNotPublished)
		f.apps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("draft created", func(t *testing.T) {
		f := newApplicationFixture(false)
		f.courses.On("GetByID", mock.Anything, int64(3)).
			Return(&models.Course{ID: 3, Name: "Diploma of IT", SchoolName: "Harbour College", IsPublished: true}, nil)
		f.apps.On("Create", mock.Anything, mock.MatchedBy(func(a *models.CourseApplication) bool {
			return a.ProfileID == 1 && a.Status == models.ApplicationDraft && a.DesiredStartDate != nil
		})).Return(nil)

		app, err := f.svc.Create(context.Background(), member(1), &dto.CreateApplicationRequest{
			CourseID:         3,
			DesiredStartDate: "2026-07-01",
			Motivation:       "career change",
		})
		require.NoError(t, err)
		assert.Equal(t, "Harbour College", app.SchoolName)
		f.apps.AssertExpectations(t)
	})
}

func TestApplicationService_Get(t *testing.T) {
	f := newApplicationFixture(false)
	f.apps.On("GetByID", mock.Anything, int64(10)).Return(&models.CourseApplication{ID: 10, ProfileID: 1}, nil)

	_, err := f.svc.Get(context.Background(), member(2), 10)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)

	app, err := f.svc.Get(context.Background(), staffMember(2), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), app.ID)

	_, err = f.svc.Get(context.Background(), member(1), 10)
	assert.NoError(t, err)
}

func TestApplicationService_Submit(t *testing.T) {
	t.Run("requests documents and notifies", func(t *testing.T) {
		f := newApplicationFixture(true)
		draft := &models.CourseApplication{ID: 10, ProfileID: 1, Status: models.ApplicationDraft, CourseName: "Diploma of IT"}
		refreshed := &models.CourseApplication{ID: 10, ProfileID: 1, Status: models.ApplicationSubmitted}

		f.apps.On("GetByID", mock.Anything, int64(10)).Return(draft, nil).Once()
		f.apps.On("UpdateStatus", mock.Anything, int64(10), mock.MatchedBy(func(c repositories.StatusChange) bool {
			return c.From == models.ApplicationDraft && c.To == models.ApplicationSubmitted && c.SubmittedAt != nil
		})).Return(nil)
		f.docs.On("CreateSubmission", mock.Anything, documents.SubmissionRequest{
			ExternalID: "application-10",
			Email:      "m@example.com",
			Name:       "Kaito",
		}).Return(&documents.Submission{ID: "sub_1", URL: "https://docs.example/s/1"}, nil)
		f.apps.On("SetDocumentSubmission", mock.Anything, int64(10), "sub_1", "https://docs.example/s/1").Return(nil)
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n chatops.Notification) bool {
			return n.Title == "Course application submitted"
		})).Return(nil)
		f.apps.On("GetByID", mock.Anything, int64(10)).Return(refreshed, nil).Once()

		app, err := f.svc.Submit(context.Background(), member(1), 10)
		require.NoError(t, err)
		assert.Same(t, refreshed, app)
		f.apps.AssertExpectations(t)
		f.docs.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("document failure does not block submission", func(t *testing.T) {
		f := newApplicationFixture(true)
		draft := &models.CourseApplication{ID: 10, ProfileID: 1, Status: models.ApplicationDraft}

		f.apps.On("GetByID", mock.Anything, int64(10)).Return(draft, nil)
		f.apps.On("UpdateStatus", mock.Anything, int64(10), mock.Anything).Return(nil)
		f.docs.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil, apperrors.ErrIntegrationNotConnected)
		f.notifier.On("Notify", mock.Anything, mock.Anything).Return(chatops.ErrNotConfigured)

		app, err := f.svc.Submit(context.Background(), member(1), 10)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationSubmitted, app.Status)
		f.apps.AssertNotCalled(t, "SetDocumentSubmission", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not the owner", func(t *testing.T) {
		f := newApplicationFixture(true)
		f.apps.On("GetByID", mock.Anything, int64(10)).
			Return(&models.CourseApplication{ID: 10, ProfileID: 1, Status: models.ApplicationDraft}, nil)

		_, err := f.svc.Submit(context.Background(), staffMember(2), 10)
		assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
	})
}

func TestApplicationService_RequestDocuments(t *testing.T) {
	t.Run("integration disabled", func(t *testing.T) {
		f := newApplicationFixture(false)
		_, err := f.svc.RequestDocuments(context.Background(), member(1), 10)
		assert.ErrorIs(t, err, apperrors.ErrIntegrationDisabled)
	})

	t.Run("draft cannot request", func(t *testing.T) {
		f := newApplicationFixture(true)
		f.apps.On("GetByID", mock.Anything, int64(10)).
			Return(&models.CourseApplication{ID: 10, ProfileID: 1, Status: models.ApplicationDraft}, nil)

		_, err := f.svc.RequestDocuments(context.Background(), member(1), 10)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newApplicationFixture(true)
		f.apps.On("GetByID", mock.Anything, int64(10)).
			Return(&models.CourseApplication{ID: 10, ProfileID: 1, Status: models.ApplicationSubmitted}, nil)
		f.docs.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil, documents.ErrProviderRejected)

		_, err := f.svc.RequestDocuments(context.Background(), member(1), 10)
		assert.ErrorIs(t, err, apperrors.ErrExternalService)
	})
}

func TestApplicationService_UpdateStatus(t *testing.T) {
	t.Run("outside the status machine", func(t *testing.T) {
		f := newApplicationFixture(false)
		f.apps.On("GetByID", mock.Anything, int64(10)).
			Return(&models.CourseApplication{ID: 10, Status: models.ApplicationDraft}, nil)

		_, err := f.svc.UpdateStatus(context.Background(), staffMember(9), 10,
			&dto.UpdateApplicationStatusRequest{Status: string(models.ApplicationAccepted)})
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		f.apps.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("review with note", func(t *testing.T) {
		f := newApplicationFixture(false)
		f.apps.On("GetByID", mock.Anything, int64(10)).
			Return(&models.CourseApplication{ID: 10, Status: models.ApplicationSubmitted}, nil)
		f.apps.On("UpdateStatus", mock.Anything, int64(10), mock.MatchedBy(func(c repositories.StatusChange) bool {
			return c.From == models.ApplicationSubmitted && c.To == models.ApplicationUnderReview &&
				c.StaffNote != nil && *c.StaffNote == "checking transcripts" && c.SubmittedAt == nil
		})).Return(nil)

		app, err := f.svc.UpdateStatus(context.Background(), staffMember(9), 10, &dto.UpdateApplicationStatusRequest{
			Status:    string(models.ApplicationUnderReview),
			StaffNote: "checking transcripts",
		})
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationUnderReview, app.Status)
		assert.Equal(t, "checking transcripts", *app.StaffNote)
	})

	t.Run("lost a concurrent transition", func(t *testing.T) {
		f := newApplicationFixture(false)
		f.apps.On("GetByID", mock.Anything, int64(10)).
			Return(&models.CourseApplication{ID: 10, Status: models.ApplicationUnderReview}, nil)
		f.apps.On("UpdateStatus", mock.Anything, int64(10), mock.Anything).Return(apperrors.ErrInvalidTransition)

		_, err := f.svc.UpdateStatus(context.Background(), staffMember(9), 10,
			&dto.UpdateApplicationStatusRequest{Status: string(models.ApplicationRejected)})
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})
}

func TestApplicationService_Withdraw(t *testing.T) {
	f := newApplicationFixture(false)
	f.apps.On("GetByID", mock.Anything, int64(10)).
		Return(&models.CourseApplication{ID: 10, ProfileID: 1, Status: models.ApplicationUnderReview}, nil)

	_, err := f.svc.Withdraw(context.Background(), member(1), 10)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestApplicationService_HandleDocumentWebhook(t *testing.T) {
	body := []byte(`{"event":"submission.completed","submission_id":"sub_1","completed_at":"2026-03-02T10:00:00Z"}`)

	t.Run("bad signature", func(t *testing.T) {
		f := newApplicationFixture(true)
		err := f.svc.HandleDocumentWebhook(context.Background(), body, "sha256=deadbeef")
		assert.ErrorIs(t, err, apperrors.ErrWebhookSignature)
	})

	t.Run("completed", func(t *testing.T) {
		f := newApplicationFixture(true)
		at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		f.apps.On("MarkDocumentsCompleted", mock.Anything, "sub_1", at).Return(nil)

		err := f.svc.HandleDocumentWebhook(context.Background(), body, documents.Sign(docsSecret, body))
		require.NoError(t, err)
		f.apps.AssertExpectations(t)
	})

	t.Run("unknown submission is acknowledged", func(t *testing.T) {
		f := newApplicationFixture(true)
		f.apps.On("MarkDocumentsCompleted", mock.Anything, "sub_1", mock.Anything).Return(apperrors.ErrApplicationNotFound)

		err := f.svc.HandleDocumentWebhook(context.Background(), body, documents.Sign(docsSecret, body))
		assert.NoError(t, err)
	})

	t.Run("other events ignored", func(t *testing.T) {
		f := newApplicationFixture(true)
		other := []byte(`{"event":"submission.opened","submission_id":"sub_1"}`)

		err := f.svc.HandleDocumentWebhook(context.Background(), other, documents.Sign(docsSecret, other))
		assert.NoError(t, err)
		f.apps.AssertNotCalled(t, "MarkDocumentsCompleted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		f := newApplicationFixture(true)
		f.apps.On("MarkDocumentsCompleted", mock.Anything, "sub_1", mock.Anything).Return(errors.New("db down"))

		err := f.svc.HandleDocumentWebhook(context.Background(), body, documents.Sign(docsSecret, body))
		assert.Error(t, err)
	})
}
