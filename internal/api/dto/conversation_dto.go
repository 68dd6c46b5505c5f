package dto

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// StartConversationRequest payload.
type StartConversationRequest struct {
	Subject    string `json:"subject"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
}

// SendMessageRequest payload.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// BulkDeleteRequest payload.
type BulkDeleteRequest struct {
	ConversationIDs []string `json:"conversation_ids"`
}

// ConvertToTicketRequest payload.
type ConvertToTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// ConversationResponse is the conversation representation.
type ConversationResponse struct {
	ID                 string                    `json:"id"`
	OrganizationID     *string                   `json:"organization_id"`
	GuestEmail         *string                   `json:"guest_email,omitempty"`
	GuestName          *string                   `json:"guest_name,omitempty"`
	Subject            string                    `json:"subject"`
	Status             domain.ConversationStatus `json:"status"`
	AssignedAgentID    *string                   `json:"assigned_agent_id"`
	ArchivedAt         *time.Time                `json:"archived_at"`
	LastMessageAt      *time.Time                `json:"last_message_at"`
	LastMessagePreview string                    `json:"last_message_preview"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// ConversationFromDomain maps a domain conversation to its response shape.
func ConversationFromDomain(conv *domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:                 conv.ID,
		OrganizationID:     conv.OrganizationID,
		GuestEmail:         conv.GuestEmail,
		GuestName:          conv.GuestName,
		Subject:            conv.Subject,
		Status:             conv.Status,
		AssignedAgentID:    conv.AssignedAgentID,
		ArchivedAt:         conv.ArchivedAt,
		LastMessageAt:      conv.LastMessageAt,
		LastMessagePreview: conv.LastMessagePreview,
		CreatedAt:          conv.CreatedAt,
	}
}

// InboxItemResponse is a conversation in a staff listing, annotated with
// the number of unread counterpart messages.
type InboxItemResponse struct {
	ConversationResponse
	UnreadCount int64 `json:"unread_count"`
}

// MessageResponse is one thread entry.
type MessageResponse struct {
	ID         string            `json:"id"`
	SenderType domain.SenderType `json:"sender_type"`
	SenderID   *string           `json:"sender_id"`
	Body       string            `json:"body"`
	IsRead     bool              `json:"is_read"`
	CreatedAt  time.Time         `json:"created_at"`
}

// MessageFromDomain maps a domain message to its response shape.
func MessageFromDomain(msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		SenderType: msg.SenderType,
		SenderID:   msg.SenderID,
		Body:       msg.Body,
		IsRead:     msg.IsRead,
		CreatedAt:  msg.CreatedAt,
	}
}
