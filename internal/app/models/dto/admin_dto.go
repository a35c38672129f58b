package dto

import "time"

// GrantRoleRequest assigns a back-office role
type GrantRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin staff"`
}

// IntegrationStatusResponse reports whether an OAuth integration is connected
type IntegrationStatusResponse struct {
	Service   string     `json:"service"`
	Enabled   bool       `json:"enabled"`
	Connected bool       `json:"connected"`
	Scope     string     `json:"scope,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// PurgeResponse reports how many cache entries were dropped
type PurgeResponse struct {
	Purged int `json:"purged"`
}
