package models

import "time"

// VisaPlanStatus tracks staff review of a plan
type VisaPlanStatus string

const (
	VisaPlanDraft           VisaPlanStatus = "draft"
	VisaPlanReviewRequested VisaPlanStatus = "review_requested"
	VisaPlanApproved        VisaPlanStatus = "approved"
	VisaPlanNeedsChanges    VisaPlanStatus = "needs_changes"
)

// CanRequestReview reports whether a plan in status s may be sent for review
func (s VisaPlanStatus) CanRequestReview() bool {
	return s == VisaPlanDraft || s == VisaPlanNeedsChanges
}

// ReviewVerdict is the outcome a staff reviewer records
type ReviewVerdict string

const (
	VerdictApproved     ReviewVerdict = "approved"
	VerdictNeedsChanges ReviewVerdict = "needs_changes"
)

// PlanStatus maps a verdict to the resulting plan status
func (v ReviewVerdict) PlanStatus() (VisaPlanStatus, bool) {
	switch v {
	case VerdictApproved:
		return VisaPlanApproved, true
	case VerdictNeedsChanges:
		return VisaPlanNeedsChanges, true
	}
	return "", false
}

// VisaPlan is a member's sequence of intended visas
type VisaPlan struct {
	ID            int64          `json:"id"`
	ProfileID     int64          `json:"profileId"`
	Title         string         `json:"title"`
	TargetCountry string         `json:"targetCountry"`
	Status        VisaPlanStatus `json:"status"`
	Notes         *string        `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	Steps   []VisaPlanStep   `json:"steps"`
	Reviews []VisaPlanReview `json:"reviews,omitempty"`
}

// VisaPlanStep is one visa in a plan, ordered by Position starting at 1
type VisaPlanStep struct {
	ID        int64      `json:"id"`
	PlanID    int64      `json:"planId"`
	Position  int        `json:"position"`
	VisaType  string     `json:"visaType"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Note      *string    `json:"note,omitempty"`
}

// VisaPlanReview is a staff verdict on a plan
type VisaPlanReview struct {
	ID                int64         `json:"id"`
	PlanID            int64         `json:"planId"`
	ReviewerProfileID *int64        `json:"reviewerProfileId,omitempty"`
	Verdict           ReviewVerdict `json:"verdict"`
	Comment           string        `json:"comment"`
	CreatedAt         time.Time     `json:"createdAt"`
}
