package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/frogmembers/api/internal/app/models"
	"github.com/frogmembers/api/internal/app/models/dto"
	"github.com/frogmembers/api/internal/pkg/apperrors"
	"github.com/frogmembers/api/internal/pkg/chatops"
	"github.com/frogmembers/api/internal/pkg/helpers"
	"github.com/frogmembers/api/internal/pkg/validation"
)

// VisaPlanService defines visa planning operations
type VisaPlanService interface {
	List(ctx context.Context, actor *models.Profile) ([]*models.VisaPlan, error)
	Create(ctx context.Context, actor *models.Profile, req *dto.VisaPlanRequest) (*models.VisaPlan, error)
	Get(ctx context.Context, actor *models.Profile, id int64) (*models.VisaPlan, error)
	Update(ctx context.Context, actor *models.Profile, id int64, req *dto.VisaPlanRequest) (*models.VisaPlan, error)
	Delete(ctx context.Context, actor *models.Profile, id int64) error
	RequestReview(ctx context.Context, actor *models.Profile, id int64) (*models.VisaPlan, error)

	ListForReview(ctx context.Context, status models.VisaPlanStatus, page, size int) (*dto.PaginatedResponse, error)
	Review(ctx context.Context, staff *models.Profile, id int64, req *dto.VisaPlanReviewRequest) (*models.VisaPlan, error)
}

// visaPlanServiceImpl implements VisaPlanService
type visaPlanServiceImpl struct {
	plans    VisaPlanStore
	notifier chatops.Notifier
	logger   zerolog.Logger
}

// NewVisaPlanService creates a new VisaPlanService
func NewVisaPlanService(plans VisaPlanStore, notifier chatops.Notifier, logger zerolog.Logger) VisaPlanService {
	return &visaPlanServiceImpl{
		plans:    plans,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *visaPlanServiceImpl) List(ctx context.Context, actor *models.Profile) ([]*models.VisaPlan, error) {
	return s.plans.ListByProfile(ctx, actor.ID)
}

func (s *visaPlanServiceImpl) Create(ctx context.Context, actor *models.Profile, req *dto.VisaPlanRequest) (*models.VisaPlan, error) {
	steps, err := buildSteps(req.Steps)
	if err != nil {
		return nil, err
	}

	plan := &models.VisaPlan{
		ProfileID:     actor.ID,
		Title:         strings.TrimSpace(req.Title),
		TargetCountry: strings.ToUpper(req.TargetCountry),
		Status:        models.VisaPlanDraft,
		Notes:         trimPtr(req.Notes),
		Steps:         steps,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Get returns a plan to its owner or to staff
func (s *visaPlanServiceImpl) Get(ctx context.Context, actor *models.Profile, id int64) (*models.VisaPlan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.ProfileID != actor.ID && !actor.HasRole(models.RoleStaff) {
		return nil, apperrors.ErrVisaPlanNotFound
	}
	return plan, nil
}

func (s *visaPlanServiceImpl) owned(ctx context.Context, actor *models.Profile, id int64) (*models.VisaPlan, error) {
	plan, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.ProfileID != actor.ID {
		return nil, apperrors.ErrVisaPlanNotFound
	}
	return plan, nil
}

// Update replaces the plan fields and its whole step list. A plan under review
// is frozen; editing an approved plan sends it back to draft.
func (s *visaPlanServiceImpl) Update(ctx context.Context, actor *models.Profile, id int64, req *dto.VisaPlanRequest) (*models.VisaPlan, error) {
	plan, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.VisaPlanReviewRequested {
		return nil, fmt.Errorf("%w: plan is awaiting review", apperrors.ErrInvalidTransition)
	}

	steps, err := buildSteps(req.Steps)
	if err != nil {
		return nil, err
	}

	plan.Title = strings.TrimSpace(req.Title)
	plan.TargetCountry = strings.ToUpper(req.TargetCountry)
	plan.Notes = trimPtr(req.Notes)
	plan.Steps = steps
	if plan.Status == models.VisaPlanApproved {
		plan.Status = models.VisaPlanDraft
	}

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *visaPlanServiceImpl) Delete(ctx context.Context, actor *models.Profile, id int64) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	return s.plans.Delete(ctx, id)
}

func (s *visaPlanServiceImpl) RequestReview(ctx context.Context, actor *models.Profile, id int64) (*models.VisaPlan, error) {
	plan, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !plan.Status.CanRequestReview() {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, plan.Status, models.VisaPlanReviewRequested)
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("%w: a plan needs at least one step before review", apperrors.ErrValidationFailed)
	}

	from := []models.VisaPlanStatus{models.VisaPlanDraft, models.VisaPlanNeedsChanges}
	if err := s.plans.TransitionStatus(ctx, id, from, models.VisaPlanReviewRequested); err != nil {
		return nil, err
	}
	plan.Status = models.VisaPlanReviewRequested

	notifyBestEffort(ctx, s.notifier, s.logger, chatops.Notification{
		Title: "Visa plan review requested",
		Text:  fmt.Sprintf("%s asked for a review of %q", actor.DisplayName, plan.Title),
		Fields: []chatops.Field{
			{Label: "Plan", Value: strconv.FormatInt(plan.ID, 10)},
			{Label: "Country", Value: plan.TargetCountry},
			{Label: "Steps", Value: strconv.Itoa(len(plan.Steps))},
		},
	})
	return plan, nil
}

func (s *visaPlanServiceImpl) ListForReview(ctx context.Context, status models.VisaPlanStatus, page, size int) (*dto.PaginatedResponse, error) {
	if status == "" {
		status = models.VisaPlanReviewRequested
	}
	switch status {
	case models.VisaPlanDraft, models.VisaPlanReviewRequested, models.VisaPlanApproved, models.VisaPlanNeedsChanges:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidationFailed, status)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	plans, total, err := s.plans.ListByStatus(ctx, status, offset, limit)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{
		Items:      plans,
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}, nil
}

// Review records a staff verdict and moves the plan out of review in one transaction
func (s *visaPlanServiceImpl) Review(ctx context.Context, staff *models.Profile, id int64, req *dto.VisaPlanReviewRequest) (*models.VisaPlan, error) {
	verdict := models.ReviewVerdict(req.Verdict)
	next, ok := verdict.PlanStatus()
	if !ok {
		return nil, fmt.Errorf("%w: unknown verdict %q", apperrors.ErrValidationFailed, req.Verdict)
	}

	review := &models.VisaPlanReview{
		PlanID:            id,
		ReviewerProfileID: &staff.ID,
		Verdict:           verdict,
		Comment:           strings.TrimSpace(req.Comment),
	}
	if err := s.plans.AddReview(ctx, review, next); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("planID", id).
		Int64("reviewerID", staff.ID).
		Str("verdict", string(verdict)).
		Msg("Visa plan reviewed")

	return s.plans.GetByID(ctx, id)
}

// buildSteps validates request steps and numbers them 1..n in request order
func buildSteps(inputs []dto.VisaPlanStepInput) ([]models.VisaPlanStep, error) {
	steps := make([]models.VisaPlanStep, 0, len(inputs))
	for i, in := range inputs {
		if !validation.IsVisaType(in.VisaType) {
			return nil, fmt.Errorf("%w: step %d: unknown visa type %q", apperrors.ErrValidationFailed, i+1, in.VisaType)
		}
		start, err := helpers.ParseDate(in.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: startDate: %v", apperrors.ErrValidationFailed, i+1, err)
		}
		end, err := helpers.ParseDate(in.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: endDate: %v", apperrors.ErrValidationFailed, i+1, err)
		}
		if start != nil && end != nil && end.Before(*start) {
			return nil, fmt.Errorf("%w: step %d ends before it starts", apperrors.ErrValidationFailed, i+1)
		}

		steps = append(steps, models.VisaPlanStep{
			Position:  i + 1,
			VisaType:  in.VisaType,
			StartDate: start,
			EndDate:   end,
			Note:      helpers.NullIfEmpty(strings.TrimSpace(in.Note)),
		})
	}
	return steps, nil
}
