package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/chatops"
)

func planRequest(steps ...dto.VisaPlanStepInput) *dto.VisaPlanRequest {
	return &dto.VisaPlanRequest{Title: " Study then work ", TargetCountry: "au", Steps: steps}
}

func TestBuildSteps(t *testing.T) {
	steps, err := buildSteps([]dto.VisaPlanStepInput{
		{VisaType: "student", StartDate: "2026-02-01", EndDate: "2027-12-31"},
		{VisaType: "graduate", StartDate: "2028-01-01", Note: "  after graduation "},
		{VisaType: "permanent_resident"},
	})
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Position)
	}
	assert.Equal(t, "after graduation", *steps[1].Note)
	assert.Nil(t, steps[2].StartDate)

	_, err = buildSteps([]dto.VisaPlanStepInput{{VisaType: "student", StartDate: "2026-02-01", EndDate: "2026-01-01"}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = buildSteps([]dto.VisaPlanStepInput{{VisaType: "tourist-ish"}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	same, err := buildSteps([]dto.VisaPlanStepInput{{VisaType: "visitor", StartDate: "2026-02-01", EndDate: "2026-02-01"}})
	require.NoError(t, err)
	assert.Len(t, same, 1)
}

func TestVisaPlanService_Create(t *testing.T) {
	plans := new(MockVisaPlanStore)
	svc := NewVisaPlanService(plans, nil, zerolog.Nop())

	plans.On("Create", mock.Anything, mock.MatchedBy(func(p *models.VisaPlan) bool {
		return p.ProfileID == 1 && p.Title == "Study then work" && p.TargetCountry == "AU" &&
			p.Status == models.VisaPlanDraft && len(p.Steps) == 2 && p.Steps[1].Position == 2
	})).Return(nil)

	plan, err := svc.Create(context.Background(), member(1), planRequest(
		dto.VisaPlanStepInput{VisaType: "student"},
		dto.VisaPlanStepInput{VisaType: "graduate"},
	))
	require.NoError(t, err)
	assert.Equal(t, models.VisaPlanDraft, plan.Status)
	plans.AssertExpectations(t)
}

func TestVisaPlanService_Update(t *testing.T) {
	t.Run("frozen while under review", func(t *testing.T) {
		plans := new(MockVisaPlanStore)
		plans.On("GetByID", mock.Anything, int64(7)).
			Return(&models.VisaPlan{ID: 7, ProfileID: 1, Status: models.VisaPlanReviewRequested}, nil)
		svc := NewVisaPlanService(plans, nil, zerolog.Nop())

		_, err := svc.Update(context.Background(), member(1), 7, planRequest())
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		plans.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("approved plan returns to draft", func(t *testing.T) {
		plans := new(MockVisaPlanStore)
		plans.On("GetByID", mock.Anything, int64(7)).
			Return(&models.VisaPlan{ID: 7, ProfileID: 1, Status: models.VisaPlanApproved}, nil)
		plans.On("Update", mock.Anything, mock.MatchedBy(func(p *models.VisaPlan) bool {
			return p.Status == models.VisaPlanDraft && len(p.Steps) == 1
		})).Return(nil)
		svc := NewVisaPlanService(plans, nil, zerolog.Nop())

		plan, err := svc.Update(context.Background(), member(1), 7, planRequest(dto.VisaPlanStepInput{VisaType: "working_holiday"}))
		require.NoError(t, err)
		assert.Equal(t, models.VisaPlanDraft, plan.Status)
	})

	t.Run("not the owner", func(t *testing.T) {
		plans := new(MockVisaPlanStore)
		plans.On("GetByID", mock.Anything, int64(7)).
			Return(&models.VisaPlan{ID: 7, ProfileID: 2, Status: models.VisaPlanDraft}, nil)
		svc := NewVisaPlanService(plans, nil, zerolog.Nop())

		_, err := svc.Update(context.Background(), member(1), 7, planRequest())
		assert.ErrorIs(t, err, apperrors.ErrVisaPlanNotFound)
	})
}

func TestVisaPlanService_RequestReview(t *testing.T) {
	plans := new(MockVisaPlanStore)
	notifier := new(MockNotifier)
	svc := NewVisaPlanService(plans, notifier, zerolog.Nop())

	plans.On("GetByID", mock.Anything, int64(7)).Return(&models.VisaPlan{
		ID: 7, ProfileID: 1, Title: "Plan A", TargetCountry: "AU", Status: models.VisaPlanNeedsChanges,
		Steps: []models.VisaPlanStep{{Position: 1, VisaType: "student"}},
	}, nil)
	plans.On("TransitionStatus", mock.Anything, int64(7),
		[]models.VisaPlanStatus{models.VisaPlanDraft, models.VisaPlanNeedsChanges},
		models.VisaPlanReviewRequested).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n chatops.Notification) bool {
		return n.Title == "Visa plan review requested" && len(n.Fields) == 3
	})).Return(nil)

	plan, err := svc.RequestReview(context.Background(), member(1), 7)
	require.NoError(t, err)
	assert.Equal(t, models.VisaPlanReviewRequested, plan.Status)
	plans.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestVisaPlanService_RequestReview_Rejections(t *testing.T) {
	plans := new(MockVisaPlanStore)
	svc := NewVisaPlanService(plans, nil, zerolog.Nop())

	plans.On("GetByID", mock.Anything, int64(7)).
		Return(&models.VisaPlan{ID: 7, ProfileID: 1, Status: models.VisaPlanApproved, Steps: []models.VisaPlanStep{{}}}, nil)
	plans.On("GetByID", mock.Anything, int64(8)).
		Return(&models.VisaPlan{ID: 8, ProfileID: 1, Status: models.VisaPlanDraft}, nil)

	_, err := svc.RequestReview(context.Background(), member(1), 7)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = svc.RequestReview(context.Background(), member(1), 8)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	plans.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVisaPlanService_Review(t *testing.T) {
	plans := new(MockVisaPlanStore)
	svc := NewVisaPlanService(plans, nil, zerolog.Nop())
	staff := staffMember(9)

	plans.On("AddReview", mock.Anything, mock.MatchedBy(func(r *models.VisaPlanReview) bool {
		return r.PlanID == 7 && *r.ReviewerProfileID == 9 && r.Verdict == models.VerdictNeedsChanges && r.Comment == "add dates"
	}), models.VisaPlanNeedsChanges).Return(nil)
	plans.On("GetByID", mock.Anything, int64(7)).Return(&models.VisaPlan{ID: 7, Status: models.VisaPlanNeedsChanges}, nil)

	plan, err := svc.Review(context.Background(), staff, 7, &dto.VisaPlanReviewRequest{Verdict: "needs_changes", Comment: " add dates "})
	require.NoError(t, err)
	assert.Equal(t, models.VisaPlanNeedsChanges, plan.Status)

	_, err = svc.Review(context.Background(), staff, 7, &dto.VisaPlanReviewRequest{Verdict: "maybe"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestVisaPlanService_ListForReview(t *testing.T) {
	plans := new(MockVisaPlanStore)
	svc := NewVisaPlanService(plans, nil, zerolog.Nop())

	plans.On("ListByStatus", mock.Anything, models.VisaPlanReviewRequested, uint64(0), uint64(10)).
		Return([]*models.VisaPlan{{ID: 1}}, int64(1), nil)

	page, err := svc.ListForReview(context.Background(), "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.TotalItems)

	_, err = svc.ListForReview(context.Background(), "archived", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}
