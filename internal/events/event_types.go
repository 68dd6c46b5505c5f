package events

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketAssigned          EventType = "ticket_assigned"
	EventTicketEscalated         EventType = "ticket_escalated"
	EventConversationClaimed     EventType = "conversation_claimed"
	EventConversationMessage     EventType = "conversation_message_added"
	EventConversationConverted   EventType = "conversation_converted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Kind    domain.IdentityKind `json:"kind"`
	ActorID *string             `json:"actor_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber   string                `json:"ticket_number"`
	Source         domain.TicketSource   `json:"source"`
	Priority       domain.TicketPriority `json:"priority"`
	Subject        string                `json:"subject"`
	OrganizationID *string               `json:"organization_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedToStaff *string `json:"assigned_to_staff,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Escalated bool `json:"escalated"`
}

// ConversationClaimedPayload payload.
type ConversationClaimedPayload struct {
	AgentID string `json:"agent_id"`
}

// ConversationMessagePayload payload.
type ConversationMessagePayload struct {
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	BodyPreview string            `json:"body_preview"`
}

// ConversationConvertedPayload payload.
type ConversationConvertedPayload struct {
	TicketID     string `json:"ticket_id"`
	TicketNumber string `json:"ticket_number"`
}
