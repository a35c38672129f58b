package models

import "time"

// ApplicationStatus is the lifecycle state of a course application
type ApplicationStatus string

const (
	ApplicationDraft       ApplicationStatus = "draft"
	ApplicationSubmitted   ApplicationStatus = "submitted"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationDraft:       {ApplicationSubmitted, ApplicationWithdrawn},
	ApplicationSubmitted:   {ApplicationUnderReview, ApplicationWithdrawn},
	ApplicationUnderReview: {ApplicationAccepted, ApplicationRejected},
}

// Valid reports whether s is a known status
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationSubmitted, ApplicationUnderReview,
		ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows s -> next
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CourseApplication is a member's application to a course
type CourseApplication struct {
	ID                    int64             `json:"id"`
	ProfileID             int64             `json:"profileId"`
	CourseID              int64             `json:"courseId"`
	Status                ApplicationStatus `json:"status"`
	DesiredStartDate      *time.Time        `json:"desiredStartDate,omitempty"`
	Motivation            string            `json:"motivation"`
	DocumentSubmissionID  *string           `json:"-"`
	DocumentSubmissionURL *string           `json:"documentSubmissionUrl,omitempty"`
	DocumentsCompletedAt  *time.Time        `json:"documentsCompletedAt,omitempty"`
	StaffNote             *string           `json:"staffNote,omitempty"`
	SubmittedAt           *time.Time        `json:"submittedAt,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`

	// Populated by joins
	CourseName string `json:"courseName,omitempty"`
	SchoolName string `json:"schoolName,omitempty"`
}
