package dto

import "github.com/frogmembers/api/internal/app/models"

// Routes returned to the client after reading the current member
const (
	NextOnboarding = "/onboarding"
	NextDashboard  = "/dashboard"
)

// MeResponse is the current member plus where the client should go next
type MeResponse struct {
	Profile *models.Profile `json:"profile"`
	Next    string          `json:"next"`
}

// NewMeResponse routes on the onboarding flag
func NewMeResponse(p *models.Profile) MeResponse {
	next := NextDashboard
	if !p.OnboardingCompleted {
		next = NextOnboarding
	}
	return MeResponse{Profile: p, Next: next}
}

// UpdateProfileRequest edits mutable profile fields; nil leaves a field alone
type UpdateProfileRequest struct {
	DisplayName      *string `json:"displayName" binding:"omitempty,notblank,max=100"`
	Nationality      *string `json:"nationality" binding:"omitempty,iso3166_1_alpha2"`
	ResidenceCountry *string `json:"residenceCountry" binding:"omitempty,iso3166_1_alpha2"`
	Occupation       *string `json:"occupation" binding:"omitempty,max=100"`
	Bio              *string `json:"bio" binding:"omitempty,max=2000"`
	DirectoryVisible *bool   `json:"directoryVisible"`
}

// OnboardingRequest carries the fields required before the dashboard unlocks
type OnboardingRequest struct {
	DisplayName      string `json:"displayName" binding:"required,notblank,max=100"`
	Nationality      string `json:"nationality" binding:"required,iso3166_1_alpha2"`
	ResidenceCountry string `json:"residenceCountry" binding:"required,iso3166_1_alpha2"`
	Occupation       string `json:"occupation" binding:"required,notblank,max=100"`
	Bio              string `json:"bio" binding:"max=2000"`
	DirectoryVisible bool   `json:"directoryVisible"`
}

// DirectoryEntry is the public view of a member
type DirectoryEntry struct {
	ID               int64   `json:"id"`
	DisplayName      string  `json:"displayName"`
	AvatarURL        *string `json:"avatarUrl,omitempty"`
	Nationality      *string `json:"nationality,omitempty"`
	ResidenceCountry *string `json:"residenceCountry,omitempty"`
	Occupation       *string `json:"occupation,omitempty"`
	Bio              *string `json:"bio,omitempty"`
}

// ToDirectoryEntry strips private fields
func ToDirectoryEntry(p *models.Profile) DirectoryEntry {
	return DirectoryEntry{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		AvatarURL:        p.AvatarURL,
		Nationality:      p.Nationality,
		ResidenceCountry: p.ResidenceCountry,
		Occupation:       p.Occupation,
		Bio:              p.Bio,
	}
}
