package domain

import "time"

// EmbedToken is an opaque capability credential that scopes ticket
// creation from external pages to one organization. An empty
// AllowedDomains list means any origin is permitted.
type EmbedToken struct {
	ID             string
	OrganizationID string
	Token          string
	Name           string
	AllowedDomains []string
	ExpiresAt      *time.Time
	IsActive       bool
	UsageCount     int64
	LastUsedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the token is past its expiry at the given time.
// Tokens without an expiry never expire.
func (t *EmbedToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
