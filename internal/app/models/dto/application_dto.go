package dto

// CreateApplicationRequest starts a draft application
type CreateApplicationRequest struct {
	CourseID         int64  `json:"courseId" binding:"required,gt=0"`
	DesiredStartDate string `json:"desiredStartDate" binding:"omitempty,datetime=2006-01-02"`
	Motivation       string `json:"motivation" binding:"max=4000"`
}

// UpdateApplicationRequest edits a draft; nil leaves a field alone
type UpdateApplicationRequest struct {
	DesiredStartDate *string `json:"desiredStartDate" binding:"omitempty,datetime=2006-01-02"`
	Motivation       *string `json:"motivation" binding:"omitempty,max=4000"`
}

// UpdateApplicationStatusRequest is a staff decision
type UpdateApplicationStatusRequest struct {
	Status    string `json:"status" binding:"required,oneof=under_review accepted rejected"`
	StaffNote string `json:"staffNote" binding:"max=2000"`
}

// DocumentWebhookPayload is the completion callback from the document-collection service
type DocumentWebhookPayload struct {
	Event        string `json:"event" binding:"required"`
	SubmissionID string `json:"submission_id" binding:"required"`
	CompletedAt  string `json:"completed_at"`
}
