package dto

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// EmbedTicketRequest is the anonymous widget payload. Any organization id
// a client attempts to smuggle in the body is ignored; the token decides.
type EmbedTicketRequest struct {
	Token        string                `json:"token"`
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	Category     string                `json:"category,omitempty"`
	Priority     domain.TicketPriority `json:"priority,omitempty"`
	ContactName  string                `json:"contactName,omitempty"`
	ContactEmail string                `json:"contactEmail,omitempty"`
	ContactPhone string                `json:"contactPhone,omitempty"`
	WebsiteURL   string                `json:"websiteUrl,omitempty"`
}

// EmbedTicketSuccessResponse is the 201 shape.
type EmbedTicketSuccessResponse struct {
	Success          bool   `json:"success"`
	TicketNumber     string `json:"ticketNumber"`
	TicketID         string `json:"ticketId"`
	OrganizationName string `json:"organizationName"`
	Message          string `json:"message"`
}

// EmbedErrorResponse is the denial shape.
type EmbedErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// CreateEmbedTokenRequest payload (admin).
type CreateEmbedTokenRequest struct {
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	AllowedDomains []string   `json:"allowed_domains"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// UpdateEmbedTokenRequest payload (admin).
type UpdateEmbedTokenRequest struct {
	Name           *string    `json:"name"`
	AllowedDomains []string   `json:"allowed_domains"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsActive       *bool      `json:"is_active"`
}

// EmbedTokenResponse is the admin-facing token representation.
type EmbedTokenResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Token          string     `json:"token"`
	Name           string     `json:"name"`
	AllowedDomains []string   `json:"allowed_domains"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsActive       bool       `json:"is_active"`
	UsageCount     int64      `json:"usage_count"`
	LastUsedAt     *time.Time `json:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// EmbedTokenFromDomain maps a domain token to its response shape.
func EmbedTokenFromDomain(token *domain.EmbedToken) EmbedTokenResponse {
	return EmbedTokenResponse{
		ID:             token.ID,
		OrganizationID: token.OrganizationID,
		Token:          token.Token,
		Name:           token.Name,
		AllowedDomains: token.AllowedDomains,
		ExpiresAt:      token.ExpiresAt,
		IsActive:       token.IsActive,
		UsageCount:     token.UsageCount,
		LastUsedAt:     token.LastUsedAt,
		CreatedAt:      token.CreatedAt,
	}
}
