package dto

import "github.com/frogmembers/api/internal/app/models"

// SchoolRequest creates or replaces a school
type SchoolRequest struct {
	Name        string  `json:"name" binding:"required,notblank,max=200"`
	Country     string  `json:"country" binding:"required,iso3166_1_alpha2"`
	City        string  `json:"city" binding:"max=100"`
	Website     *string `json:"website" binding:"omitempty,http_url"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	LogoURL     *string `json:"logoUrl" binding:"omitempty,http_url"`
	IsPublished bool    `json:"isPublished"`
}

// ToModel maps the request onto a school
func (r SchoolRequest) ToModel() *models.School {
	return &models.School{
		Name:        r.Name,
		Country:     r.Country,
		City:        r.City,
		Website:     r.Website,
		Description: r.Description,
		LogoURL:     r.LogoURL,
		IsPublished: r.IsPublished,
	}
}

// CourseRequest creates or replaces a course
type CourseRequest struct {
	SchoolID      int64   `json:"schoolId" binding:"required,gt=0"`
	Name          string  `json:"name" binding:"required,notblank,max=200"`
	Category      string  `json:"category" binding:"required,course_category"`
	DurationWeeks int     `json:"durationWeeks" binding:"min=0,max=520"`
	TuitionCents  int64   `json:"tuitionCents" binding:"min=0"`
	Currency      string  `json:"currency" binding:"required,currency"`
	IntakeMonths  string  `json:"intakeMonths" binding:"max=100"`
	Description   *string `json:"description" binding:"omitempty,max=5000"`
	IsPublished   bool    `json:"isPublished"`
}

// ToModel maps the request onto a course
func (r CourseRequest) ToModel() *models.Course {
	return &models.Course{
		SchoolID:      r.SchoolID,
		Name:          r.Name,
		Category:      r.Category,
		DurationWeeks: r.DurationWeeks,
		TuitionCents:  r.TuitionCents,
		Currency:      r.Currency,
		IntakeMonths:  r.IntakeMonths,
		Description:   r.Description,
		IsPublished:   r.IsPublished,
	}
}

// SchoolDetailResponse is a school with its courses
type SchoolDetailResponse struct {
	*models.School
	Courses []*models.Course `json:"courses"`
}
