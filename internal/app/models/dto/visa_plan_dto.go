package dto

// VisaPlanStepInput is one step in request order
type VisaPlanStepInput struct {
	VisaType  string `json:"visaType" binding:"required,visa_type"`
	StartDate string `json:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate" binding:"omitempty,datetime=2006-01-02"`
	Note      string `json:"note" binding:"max=1000"`
}

// VisaPlanRequest creates or replaces a plan with its steps
type VisaPlanRequest struct {
	Title         string              `json:"title" binding:"required,notblank,max=200"`
	TargetCountry string              `json:"targetCountry" binding:"required,iso3166_1_alpha2"`
	Notes         *string             `json:"notes" binding:"omitempty,max=4000"`
	Steps         []VisaPlanStepInput `json:"steps" binding:"max=20,dive"`
}

// VisaPlanReviewRequest is a staff verdict
type VisaPlanReviewRequest struct {
	Verdict string `json:"verdict" binding:"required,oneof=approved needs_changes"`
	Comment string `json:"comment" binding:"max=4000"`
}
