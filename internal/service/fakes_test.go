package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
)

// In-memory repository fakes backing the service tests. They return
// pgx.ErrNoRows for missing rows, matching what the pgx-backed
// implementations surface.

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	seq     int64
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("ticket-%d", len(r.tickets)+1)
	}
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	for _, ticket := range r.tickets {
		if ticket.TicketNumber == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) NextSequence(_ context.Context) (int64, error) {
	r.seq++
	return r.seq, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.OrganizationID != nil {
			if ticket.OrganizationID == nil || *ticket.OrganizationID != *filter.OrganizationID {
				continue
			}
		}
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeStaffRepo struct {
	members map[string]*domain.StaffMember
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{members: map[string]*domain.StaffMember{}}
}

func (r *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	if staff.ID == "" {
		staff.ID = fmt.Sprintf("staff-%d", len(r.members)+1)
	}
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	copied := *staff
	r.members[staff.ID] = &copied
	return nil
}

func (r *fakeStaffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	if _, ok := r.members[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *staff
	r.members[staff.ID] = &copied
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	staff, ok := r.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (r *fakeStaffRepo) GetByUserID(_ context.Context, userID string) (*domain.StaffMember, error) {
	for _, staff := range r.members {
		if staff.UserID != nil && *staff.UserID == userID {
			copied := *staff
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	for _, staff := range r.members {
		if filter.Active != nil && staff.IsActive != *filter.Active {
			continue
		}
		out = append(out, *staff)
	}
	return out, nil
}

type fakeOrgRepo struct {
	orgs map[string]*domain.ClientOrganization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: map[string]*domain.ClientOrganization{}}
}

func (r *fakeOrgRepo) Create(_ context.Context, org *domain.ClientOrganization) error {
	if org.ID == "" {
		org.ID = fmt.Sprintf("org-%d", len(r.orgs)+1)
	}
	copied := *org
	r.orgs[org.ID] = &copied
	return nil
}

func (r *fakeOrgRepo) GetByID(_ context.Context, id string) (*domain.ClientOrganization, error) {
	org, ok := r.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *org
	return &copied, nil
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	entry.ID = fmt.Sprintf("hist-%d", len(r.entries)+1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeConversationRepo struct {
	conversations map[string]*domain.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: map[string]*domain.Conversation{}}
}

func (r *fakeConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = fmt.Sprintf("conv-%d", len(r.conversations)+1)
	}
	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	copied := *conv
	r.conversations[conv.ID] = &copied
	return nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	conv, ok := r.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *conv
	return &copied, nil
}

// Claim mirrors the conditional UPDATE: it only succeeds while the
// conversation is still unassigned.
func (r *fakeConversationRepo) Claim(_ context.Context, conversationID, agentID string) (bool, error) {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return false, nil
	}
	if conv.Status != domain.ConversationStatusUnassigned {
		return false, nil
	}
	conv.Status = domain.ConversationStatusAssigned
	conv.AssignedAgentID = &agentID
	return true, nil
}

func (r *fakeConversationRepo) UpdateStatus(_ context.Context, conversationID string, status domain.ConversationStatus, agentID *string) error {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.Status = status
	conv.AssignedAgentID = agentID
	return nil
}

func (r *fakeConversationRepo) SetArchived(_ context.Context, conversationID string, archivedAt *time.Time) error {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.ArchivedAt = archivedAt
	return nil
}

func (r *fakeConversationRepo) TouchLastMessage(_ context.Context, conversationID string, at time.Time, preview string) error {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.LastMessageAt = &at
	conv.LastMessagePreview = preview
	return nil
}

func (r *fakeConversationRepo) Delete(_ context.Context, conversationID string) error {
	if _, ok := r.conversations[conversationID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.conversations, conversationID)
	return nil
}

func (r *fakeConversationRepo) DeleteBulk(_ context.Context, conversationIDs []string) (int64, error) {
	var deleted int64
	for _, id := range conversationIDs {
		if _, ok := r.conversations[id]; ok {
			delete(r.conversations, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeConversationRepo) ListWithFilter(_ context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	var out []domain.Conversation
	for _, conv := range r.conversations {
		if filter.Archived != nil {
			if *filter.Archived != (conv.ArchivedAt != nil) {
				continue
			}
		}
		out = append(out, *conv)
	}
	return out, nil
}

type fakeMessageRepo struct {
	messages []domain.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	msg.ID = fmt.Sprintf("msg-%d", len(r.messages)+1)
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, conversationID string, senderTypes []domain.SenderType) error {
	for i := range r.messages {
		if r.messages[i].ConversationID != conversationID {
			continue
		}
		for _, st := range senderTypes {
			if r.messages[i].SenderType == st {
				r.messages[i].IsRead = true
			}
		}
	}
	return nil
}

func (r *fakeMessageRepo) CountUnread(_ context.Context, conversationID string) (int64, error) {
	var count int64
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) systemMessages(conversationID string) []domain.Message {
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID && msg.SenderType == domain.SenderTypeSystem {
			out = append(out, msg)
		}
	}
	return out
}

type fakeEmbedTokenRepo struct {
	tokens map[string]*domain.EmbedToken
	usage  map[string]int
}

func newFakeEmbedTokenRepo() *fakeEmbedTokenRepo {
	return &fakeEmbedTokenRepo{tokens: map[string]*domain.EmbedToken{}, usage: map[string]int{}}
}

func (r *fakeEmbedTokenRepo) Create(_ context.Context, token *domain.EmbedToken) error {
	if token.ID == "" {
		token.ID = fmt.Sprintf("tok-%d", len(r.tokens)+1)
	}
	token.CreatedAt = time.Now()
	copied := *token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *fakeEmbedTokenRepo) Update(_ context.Context, token *domain.EmbedToken) error {
	if _, ok := r.tokens[token.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *fakeEmbedTokenRepo) GetByID(_ context.Context, id string) (*domain.EmbedToken, error) {
	token, ok := r.tokens[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *fakeEmbedTokenRepo) GetByToken(_ context.Context, secret string) (*domain.EmbedToken, error) {
	for _, token := range r.tokens {
		if token.Token == secret {
			copied := *token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeEmbedTokenRepo) ListByOrganization(_ context.Context, organizationID string) ([]domain.EmbedToken, error) {
	var out []domain.EmbedToken
	for _, token := range r.tokens {
		if token.OrganizationID == organizationID {
			out = append(out, *token)
		}
	}
	return out, nil
}

func (r *fakeEmbedTokenRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tokens[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tokens, id)
	return nil
}

func (r *fakeEmbedTokenRepo) RecordUsage(_ context.Context, id string, at time.Time) error {
	token, ok := r.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	token.UsageCount++
	token.LastUsedAt = &at
	r.usage[id]++
	return nil
}

type fakeUserRoleRepo struct {
	roles map[string]domain.Role
}

func newFakeUserRoleRepo() *fakeUserRoleRepo {
	return &fakeUserRoleRepo{roles: map[string]domain.Role{}}
}

func (r *fakeUserRoleRepo) GetRole(_ context.Context, userID string) (domain.Role, error) {
	role, ok := r.roles[userID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return role, nil
}

func (r *fakeUserRoleRepo) ReplaceRole(_ context.Context, userID string, role domain.Role) error {
	r.roles[userID] = role
	return nil
}

func (r *fakeUserRoleRepo) DeleteRole(_ context.Context, userID string) error {
	if _, ok := r.roles[userID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.roles, userID)
	return nil
}

func strPtr(s string) *string { return &s }
