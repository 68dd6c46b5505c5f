package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketSource records which entry path created the ticket. The source
// determines the ticket number prefix used for triage.
type TicketSource string

const (
	TicketSourcePortal TicketSource = "PORTAL"
	TicketSourceEmbed  TicketSource = "EMBED"
	TicketSourceGuest  TicketSource = "GUEST"
)

// Ticket is the aggregate for support requests. A ticket is linked either
// to a client organization or to a guest email, never both empty.
type Ticket struct {
	ID              string
	TicketNumber    string
	Subject         string
	Description     string
	Category        string
	Priority        TicketPriority
	Status          TicketStatus
	Source          TicketSource
	AssignedToStaff *string
	OrganizationID  *string
	ClientAccountID *string
	GuestEmail      *string
	GuestName       *string
	GuestPhone      *string
	WebsiteURL      *string
	IsEscalated     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NumberPrefix returns the ticket number prefix for a source.
func (s TicketSource) NumberPrefix() string {
	switch s {
	case TicketSourceEmbed:
		return "EMB"
	case TicketSourceGuest:
		return "GST"
	default:
		return "TKT"
	}
}
