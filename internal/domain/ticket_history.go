package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus     TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee   TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeEscalation TicketChangeType = "ESCALATION_CHANGE"
)

// TicketHistory is an immutable audit trail entry for a ticket.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType IdentityKind
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
