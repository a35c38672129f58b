package models

import "time"

// OAuthToken is a stored credential for an outbound integration.
// Token fields hold sealed (encrypted) values.
type OAuthToken struct {
	Service              string
	RefreshToken         string
	AccessToken          *string
	AccessTokenExpiresAt *time.Time
	Scope                string
	UpdatedAt            time.Time
}

// OAuthState is a one-time value binding an authorization redirect to its callback
type OAuthState struct {
	State     string
	Service   string
	ReturnURL string
	ExpiresAt time.Time
	CreatedAt time.Time
}
