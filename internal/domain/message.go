package domain

import "time"

// SenderType indicates who authored a conversation message.
type SenderType string

const (
	SenderTypeAgent  SenderType = "AGENT"
	SenderTypeClient SenderType = "CLIENT"
	SenderTypeSystem SenderType = "SYSTEM"
)

// Message is one entry in a conversation. Messages are append-only;
// system messages mark lifecycle transitions and are never edited.
// Readers order by CreatedAt, then ID to break timestamp ties.
type Message struct {
	ID             string
	ConversationID string
	SenderType     SenderType
	SenderID       *string
	Body           string
	IsRead         bool
	CreatedAt      time.Time
}
