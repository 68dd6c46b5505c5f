package domain

import "time"

// ConversationStatus enumerates live chat conversation states.
type ConversationStatus string

const (
	ConversationStatusUnassigned ConversationStatus = "UNASSIGNED"
	ConversationStatusAssigned   ConversationStatus = "ASSIGNED"
	ConversationStatusClosed     ConversationStatus = "CLOSED"
)

// Conversation is a live chat thread. ArchivedAt is orthogonal to Status:
// a set ArchivedAt hides the conversation from the live inbox regardless
// of state, and only a restore clears it.
type Conversation struct {
	ID                 string
	OrganizationID     *string
	ClientAccountID    *string
	GuestEmail         *string
	GuestName          *string
	Subject            string
	Status             ConversationStatus
	AssignedAgentID    *string
	ArchivedAt         *time.Time
	LastMessageAt      *time.Time
	LastMessagePreview string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// InInbox reports whether the conversation shows in the live inbox.
func (c *Conversation) InInbox() bool {
	return c.ArchivedAt == nil
}
