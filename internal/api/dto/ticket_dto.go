package dto

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// CreateTicketRequest payload for authenticated clients.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// CreateGuestTicketRequest payload for the anonymous guest path.
type CreateGuestTicketRequest struct {
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	ContactName  string                `json:"contactName"`
	ContactEmail string                `json:"contactEmail"`
	ContactPhone string                `json:"contactPhone"`
}

// TrackGuestTicketRequest payload.
type TrackGuestTicketRequest struct {
	TicketNumber string `json:"ticketNumber"`
	Email        string `json:"email"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	StaffID string `json:"staff_id"`
}

// TransitionTicketRequest payload.
type TransitionTicketRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// EscalateTicketRequest payload.
type EscalateTicketRequest struct {
	Escalated bool `json:"escalated"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID              string                `json:"id"`
	TicketNumber    string                `json:"ticket_number"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	Category        string                `json:"category"`
	Priority        domain.TicketPriority `json:"priority"`
	Status          domain.TicketStatus   `json:"status"`
	Source          domain.TicketSource   `json:"source"`
	AssignedToStaff *string               `json:"assigned_to_staff"`
	OrganizationID  *string               `json:"organization_id"`
	GuestEmail      *string               `json:"guest_email,omitempty"`
	IsEscalated     bool                  `json:"is_escalated"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketFromDomain maps a domain ticket to its response shape.
func TicketFromDomain(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              ticket.ID,
		TicketNumber:    ticket.TicketNumber,
		Subject:         ticket.Subject,
		Description:     ticket.Description,
		Category:        ticket.Category,
		Priority:        ticket.Priority,
		Status:          ticket.Status,
		Source:          ticket.Source,
		AssignedToStaff: ticket.AssignedToStaff,
		OrganizationID:  ticket.OrganizationID,
		GuestEmail:      ticket.GuestEmail,
		IsEscalated:     ticket.IsEscalated,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.IdentityKind     `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}
