package domain

import "time"

// ClientOrganization groups external client accounts and scopes their
// tickets, conversations and embed tokens.
type ClientOrganization struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClientAccount is an external user belonging to a client organization.
type ClientAccount struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	PasswordHash   string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
