package models

import "time"

// School is a partner institution
type School struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	Website     *string   `json:"website,omitempty"`
	Description *string   `json:"description,omitempty"`
	LogoURL     *string   `json:"logoUrl,omitempty"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Course is a program offered by a school
type Course struct {
	ID            int64     `json:"id"`
	SchoolID      int64     `json:"schoolId"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	DurationWeeks int       `json:"durationWeeks"`
	TuitionCents  int64     `json:"tuitionCents"`
	Currency      string    `json:"currency"`
	IntakeMonths  string    `json:"intakeMonths"`
	Description   *string   `json:"description,omitempty"`
	IsPublished   bool      `json:"isPublished"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Populated by joins
	SchoolName string `json:"schoolName,omitempty"`
}

// SchoolFilter narrows catalog school listings
type SchoolFilter struct {
	Query         string
	Country       string
	City          string
	PublishedOnly bool
}

// CourseFilter narrows catalog course searches
type CourseFilter struct {
	SchoolID      int64
	Category      string
	MaxTuition    int64
	Query         string
	PublishedOnly bool
}
