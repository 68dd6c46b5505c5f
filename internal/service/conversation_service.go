package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/events"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

const previewMaxLen = 120

// ConversationService owns the live chat lifecycle: claiming, messaging,
// closure, archival and conversion into tickets.
type ConversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	staff         repository.StaffRepository
	tickets       *TicketService
	dispatcher    events.Dispatcher
}

// ConversationDependencies bundles repositories for the service.
type ConversationDependencies struct {
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	StaffRepo        repository.StaffRepository
	TicketService    *TicketService
	Dispatcher       events.Dispatcher
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		staff:         deps.StaffRepo,
		tickets:       deps.TicketService,
		dispatcher:    deps.Dispatcher,
	}
}

// ConversationStartInput describes a new conversation.
type ConversationStartInput struct {
	Subject    string
	GuestName  string
	GuestEmail string
}

// StartForClient opens a new unassigned conversation for a client account.
func (s *ConversationService) StartForClient(ctx context.Context, client *domain.ClientAccount, subject string) (*domain.Conversation, error) {
	if client == nil {
		return nil, apperrors.NewUnauthorized("client account required")
	}
	orgID := client.OrganizationID
	clientID := client.ID
	conv := &domain.Conversation{
		OrganizationID:  &orgID,
		ClientAccountID: &clientID,
		Subject:         strings.TrimSpace(subject),
		Status:          domain.ConversationStatusUnassigned,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, apperrors.MapError(err)
	}
	return conv, nil
}

// StartForGuest opens a new unassigned conversation for a guest.
func (s *ConversationService) StartForGuest(ctx context.Context, input ConversationStartInput) (*domain.Conversation, error) {
	email := strings.ToLower(strings.TrimSpace(input.GuestEmail))
	if email == "" {
		return nil, apperrors.NewValidationError("guest email required", nil)
	}
	conv := &domain.Conversation{
		GuestEmail: &email,
		Subject:    strings.TrimSpace(input.Subject),
		Status:     domain.ConversationStatusUnassigned,
	}
	if name := strings.TrimSpace(input.GuestName); name != "" {
		conv.GuestName = &name
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, apperrors.MapError(err)
	}
	return conv, nil
}

// Claim takes ownership of an unassigned conversation for an agent. The
// update is conditional on the unassigned status, so of two racing claims
// exactly one succeeds and the other gets ALREADY_ASSIGNED.
func (s *ConversationService) Claim(ctx context.Context, perms domain.PermissionSet, agentID, conversationID string) (*domain.Conversation, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	agent, err := s.staff.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.IsActive {
		return nil, apperrors.NewConflict("agent inactive", map[string]any{"staff_id": agentID})
	}
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	claimed, err := s.conversations.Claim(ctx, conversationID, agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !claimed {
		return nil, apperrors.NewAlreadyAssigned(conversationID)
	}

	s.appendSystemMessage(ctx, conversationID, fmt.Sprintf("Conversation assigned to %s", agent.FullName))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventConversationClaimed,
		EntityID: conversationID,
		Actor:    events.Actor{Kind: domain.IdentityKindStaff, ActorID: &agentID},
		Payload:  events.ConversationClaimedPayload{AgentID: agentID},
	})
	return s.getConversation(ctx, conversationID)
}

// MessageSender identifies who is sending into a conversation.
type MessageSender struct {
	Type        domain.SenderType
	SenderID    *string
	Permissions domain.PermissionSet
	IsAdmin     bool
}

// SendMessage appends a message and updates the conversation preview.
// Agent sends are restricted to the assigned agent or an administrator;
// closed conversations refuse all sends.
func (s *ConversationService) SendMessage(ctx context.Context, sender MessageSender, conversationID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == domain.ConversationStatusClosed {
		return nil, apperrors.NewConflict("conversation is closed", map[string]any{"conversation_id": conversationID})
	}
	if sender.Type == domain.SenderTypeAgent && !sender.IsAdmin {
		if sender.SenderID == nil || conv.AssignedAgentID == nil || *conv.AssignedAgentID != *sender.SenderID {
			return nil, apperrors.NewForbidden("not the assigned agent")
		}
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderType:     sender.Type,
		SenderID:       sender.SenderID,
		Body:           body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.conversations.TouchLastMessage(ctx, conversationID, msg.CreatedAt, stringPreview(body, previewMaxLen)); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventConversationMessage,
		EntityID: conversationID,
		Actor:    events.Actor{Kind: senderKind(sender.Type), ActorID: sender.SenderID},
		Payload: events.ConversationMessagePayload{
			MessageID:   msg.ID,
			SenderType:  msg.SenderType,
			BodyPreview: stringPreview(body, previewMaxLen),
		},
	})
	return msg, nil
}

// Close moves the conversation to closed and records a system message.
func (s *ConversationService) Close(ctx context.Context, perms domain.PermissionSet, conversationID string) (*domain.Conversation, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == domain.ConversationStatusClosed {
		return nil, apperrors.NewInvalidTransition(string(conv.Status), string(domain.ConversationStatusClosed))
	}
	if err := s.conversations.UpdateStatus(ctx, conversationID, domain.ConversationStatusClosed, conv.AssignedAgentID); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendSystemMessage(ctx, conversationID, "Conversation closed")
	return s.getConversation(ctx, conversationID)
}

// Reopen moves a closed conversation back to unassigned. It never
// auto-assigns.
func (s *ConversationService) Reopen(ctx context.Context, perms domain.PermissionSet, conversationID string) (*domain.Conversation, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status != domain.ConversationStatusClosed {
		return nil, apperrors.NewInvalidTransition(string(conv.Status), string(domain.ConversationStatusUnassigned))
	}
	if err := s.conversations.UpdateStatus(ctx, conversationID, domain.ConversationStatusUnassigned, nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendSystemMessage(ctx, conversationID, "Conversation reopened")
	return s.getConversation(ctx, conversationID)
}

// Archive hides the conversation from the live inbox. The status is left
// untouched; archival is an orthogonal flag.
func (s *ConversationService) Archive(ctx context.Context, perms domain.PermissionSet, conversationID string) (*domain.Conversation, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.conversations.SetArchived(ctx, conversationID, &now); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.getConversation(ctx, conversationID)
}

// Restore returns an archived conversation to the live inbox.
func (s *ConversationService) Restore(ctx context.Context, perms domain.PermissionSet, conversationID string) (*domain.Conversation, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	if err := s.conversations.SetArchived(ctx, conversationID, nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.getConversation(ctx, conversationID)
}

// Delete permanently removes a conversation. This is a higher trust tier
// than close or archive and requires the delete permission.
func (s *ConversationService) Delete(ctx context.Context, perms domain.PermissionSet, conversationID string) error {
	if !perms.CanDeleteConversations {
		return apperrors.NewForbidden("not authorized")
	}
	if err := s.conversations.Delete(ctx, conversationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("conversation", map[string]any{"conversation_id": conversationID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// DeleteBulk permanently removes a batch of conversations.
func (s *ConversationService) DeleteBulk(ctx context.Context, perms domain.PermissionSet, conversationIDs []string) (int64, error) {
	if !perms.CanDeleteConversations {
		return 0, apperrors.NewForbidden("not authorized")
	}
	if len(conversationIDs) == 0 {
		return 0, apperrors.NewValidationError("no conversation ids provided", nil)
	}
	deleted, err := s.conversations.DeleteBulk(ctx, conversationIDs)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return deleted, nil
}

// ConvertToTicket creates a ticket seeded from the conversation's
// organization or guest identity and appends exactly one system message
// recording the new ticket number. The conversation's state is unchanged.
func (s *ConversationService) ConvertToTicket(ctx context.Context, perms domain.PermissionSet, actorStaffID *string, conversationID string, input TicketCreateInput) (*domain.Ticket, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	switch {
	case conv.OrganizationID != nil:
		ticket = &domain.Ticket{
			Subject:         strings.TrimSpace(input.Subject),
			Description:     strings.TrimSpace(input.Description),
			Category:        input.Category,
			Priority:        normalizePriority(input.Priority),
			Status:          domain.TicketStatusOpen,
			Source:          domain.TicketSourcePortal,
			OrganizationID:  conv.OrganizationID,
			ClientAccountID: conv.ClientAccountID,
		}
	case conv.GuestEmail != nil:
		ticket = &domain.Ticket{
			Subject:     strings.TrimSpace(input.Subject),
			Description: strings.TrimSpace(input.Description),
			Category:    input.Category,
			Priority:    normalizePriority(input.Priority),
			Status:      domain.TicketStatusOpen,
			Source:      domain.TicketSourceGuest,
			GuestEmail:  conv.GuestEmail,
			GuestName:   conv.GuestName,
		}
	default:
		return nil, apperrors.NewValidationError("conversation has no resolvable identity", nil)
	}
	if err := validateTicketInput(input); err != nil {
		return nil, err
	}

	created, err := s.tickets.create(ctx, ticket, events.Actor{Kind: domain.IdentityKindStaff, ActorID: actorStaffID})
	if err != nil {
		return nil, err
	}

	s.appendSystemMessage(ctx, conversationID, fmt.Sprintf("Converted to ticket %s", created.TicketNumber))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventConversationConverted,
		EntityID: conversationID,
		Actor:    events.Actor{Kind: domain.IdentityKindStaff, ActorID: actorStaffID},
		Payload: events.ConversationConvertedPayload{
			TicketID:     created.ID,
			TicketNumber: created.TicketNumber,
		},
	})
	return created, nil
}

// MarkRead marks messages from the counterpart side as read.
func (s *ConversationService) MarkRead(ctx context.Context, reader domain.SenderType, conversationID string) error {
	if _, err := s.getConversation(ctx, conversationID); err != nil {
		return err
	}
	var from []domain.SenderType
	if reader == domain.SenderTypeAgent {
		from = []domain.SenderType{domain.SenderTypeClient, domain.SenderTypeSystem}
	} else {
		from = []domain.SenderType{domain.SenderTypeAgent, domain.SenderTypeSystem}
	}
	return apperrors.MapError(s.messages.MarkRead(ctx, conversationID, from))
}

// ListMessages returns the ordered thread for a conversation, applying
// the same organization scoping as GetConversation.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID string, callerOrg *string) ([]domain.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID, callerOrg); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// InboxEntry pairs a conversation with its unread message count.
type InboxEntry struct {
	Conversation domain.Conversation
	UnreadCount  int64
}

// ListInbox returns live (non-archived) conversations for staff with
// unread counts.
func (s *ConversationService) ListInbox(ctx context.Context, perms domain.PermissionSet, filter repository.ConversationFilter) ([]InboxEntry, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	archived := false
	filter.Archived = &archived
	return s.listWithUnread(ctx, filter)
}

// ListArchived returns archived conversations for staff.
func (s *ConversationService) ListArchived(ctx context.Context, perms domain.PermissionSet, filter repository.ConversationFilter) ([]InboxEntry, error) {
	if !perms.CanManageConversations {
		return nil, apperrors.NewForbidden("not authorized")
	}
	archived := true
	filter.Archived = &archived
	return s.listWithUnread(ctx, filter)
}

func (s *ConversationService) listWithUnread(ctx context.Context, filter repository.ConversationFilter) ([]InboxEntry, error) {
	convs, err := s.conversations.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	entries := make([]InboxEntry, 0, len(convs))
	for i := range convs {
		unread, err := s.messages.CountUnread(ctx, convs[i].ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		entries = append(entries, InboxEntry{Conversation: convs[i], UnreadCount: unread})
	}
	return entries, nil
}

// GetConversation fetches one conversation. A non-nil callerOrg scopes
// the lookup: another organization's conversation reads as not found
// rather than forbidden, so the id space stays unenumerable.
func (s *ConversationService) GetConversation(ctx context.Context, conversationID string, callerOrg *string) (*domain.Conversation, error) {
	conv, err := s.getConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if outsideOrg(conv, callerOrg) {
		return nil, apperrors.NewNotFound("conversation", map[string]any{"conversation_id": conversationID})
	}
	return conv, nil
}

// outsideOrg reports whether an org-scoped caller is reaching into a
// different organization's conversation. Guest conversations carry no
// organization and stay reachable by id, which is the widget capability
// model.
func outsideOrg(conv *domain.Conversation, callerOrg *string) bool {
	return callerOrg != nil && conv.OrganizationID != nil && *conv.OrganizationID != *callerOrg
}

func (s *ConversationService) getConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("conversation", map[string]any{"conversation_id": conversationID})
		}
		return nil, apperrors.MapError(err)
	}
	return conv, nil
}

func (s *ConversationService) appendSystemMessage(ctx context.Context, conversationID, body string) {
	msg := &domain.Message{
		ConversationID: conversationID,
		SenderType:     domain.SenderTypeSystem,
		Body:           body,
	}
	// A failed system message must not fail the lifecycle transition.
	_ = s.messages.Create(ctx, msg)
}

func (s *ConversationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func senderKind(sender domain.SenderType) domain.IdentityKind {
	switch sender {
	case domain.SenderTypeAgent:
		return domain.IdentityKindStaff
	case domain.SenderTypeClient:
		return domain.IdentityKindClient
	default:
		return domain.IdentityKindGuest
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	cut := max
	if max > 3 {
		cut = max - 3
	}
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	if max <= 3 {
		return body[:cut]
	}
	return body[:cut] + "..."
}
