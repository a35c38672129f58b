package models

// AdminStats aggregates back-office counters
type AdminStats struct {
	Members              int64                       `json:"members"`
	OnboardedMembers     int64                       `json:"onboardedMembers"`
	ActiveSubscriptions  int64                       `json:"activeSubscriptions"`
	ApplicationsByStatus map[ApplicationStatus]int64 `json:"applicationsByStatus"`
	PlansAwaitingReview  int64                       `json:"plansAwaitingReview"`
}
