package models

// RoleType defines a back-office role
type RoleType string

const (
	RoleAdmin RoleType = "admin"
	RoleStaff RoleType = "staff"
)

// Valid reports whether r is a known role
func (r RoleType) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Service names used as keys in the refresh token store
const (
	ServiceDocuments = "documents"
)
