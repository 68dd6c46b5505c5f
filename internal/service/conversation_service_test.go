package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

type conversationFixture struct {
	svc      *ConversationService
	tickets  *TicketService
	convs    *fakeConversationRepo
	messages *fakeMessageRepo
	staff    *fakeStaffRepo
}

func newConversationFixture(t *testing.T) *conversationFixture {
	t.Helper()
	convs := newFakeConversationRepo()
	messages := &fakeMessageRepo{}
	staff := newFakeStaffRepo()
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  newFakeTicketRepo(),
		StaffRepo:   staff,
		OrgRepo:     newFakeOrgRepo(),
		HistoryRepo: &fakeHistoryRepo{},
	})
	svc := NewConversationService(ConversationDependencies{
		ConversationRepo: convs,
		MessageRepo:      messages,
		StaffRepo:        staff,
		TicketService:    tickets,
	})
	return &conversationFixture{svc: svc, tickets: tickets, convs: convs, messages: messages, staff: staff}
}

func (f *conversationFixture) addAgent(t *testing.T, name string) *domain.StaffMember {
	t.Helper()
	agent := &domain.StaffMember{FullName: name, Email: strings.ToLower(name) + "@example.com", IsActive: true, CanReplyTickets: true}
	require.NoError(t, f.staff.Create(context.Background(), agent))
	return agent
}

func agentPerms() domain.PermissionSet {
	return domain.PermissionsFor(domain.RoleSupportAgent)
}

func adminPerms() domain.PermissionSet {
	return domain.PermissionsFor(domain.RoleAdmin)
}

func TestClaimAssignsUnassignedConversation(t *testing.T) {
	f := newConversationFixture(t)
	agent := f.addAgent(t, "Riley")
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	claimed, err := f.svc.Claim(context.Background(), agentPerms(), agent.ID, conv.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ConversationStatusAssigned, claimed.Status)
	require.NotNil(t, claimed.AssignedAgentID)
	assert.Equal(t, agent.ID, *claimed.AssignedAgentID)

	system := f.messages.systemMessages(conv.ID)
	require.Len(t, system, 1)
	assert.Contains(t, system[0].Body, agent.FullName)
}

func TestClaimRaceHasExactlyOneWinner(t *testing.T) {
	f := newConversationFixture(t)
	first := f.addAgent(t, "First")
	second := f.addAgent(t, "Second")
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Claim(context.Background(), agentPerms(), first.ID, conv.ID)
	require.NoError(t, err)

	_, err = f.svc.Claim(context.Background(), agentPerms(), second.ID, conv.ID)
	assert.True(t, apperrors.IsCode(err, "ALREADY_ASSIGNED"))

	stored, err := f.svc.GetConversation(context.Background(), conv.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedAgentID)
	assert.Equal(t, first.ID, *stored.AssignedAgentID, "the loser must not overwrite the winner")
}

func TestClaimRejectsInactiveAgent(t *testing.T) {
	f := newConversationFixture(t)
	inactive := &domain.StaffMember{FullName: "Gone", Email: "gone@example.com", IsActive: false}
	require.NoError(t, f.staff.Create(context.Background(), inactive))
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Claim(context.Background(), agentPerms(), inactive.ID, conv.ID)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestSendMessageUpdatesPreview(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeClient}, conv.ID, "Hello there")
	require.NoError(t, err)

	stored, err := f.svc.GetConversation(context.Background(), conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", stored.LastMessagePreview)
	assert.NotNil(t, stored.LastMessageAt)
}

func TestSendMessageTruncatesLongPreview(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	long := strings.Repeat("x", 500)
	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeClient}, conv.ID, long)
	require.NoError(t, err)

	stored, err := f.svc.GetConversation(context.Background(), conv.ID, nil)
	require.NoError(t, err)
	assert.Len(t, stored.LastMessagePreview, previewMaxLen)
	assert.True(t, strings.HasSuffix(stored.LastMessagePreview, "..."))
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	// place a two-byte rune straddling the preview cut point
	body := strings.Repeat("x", previewMaxLen-4) + "é" + strings.Repeat("y", 50)
	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeClient}, conv.ID, body)
	require.NoError(t, err)

	stored, err := f.svc.GetConversation(context.Background(), conv.ID, nil)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(stored.LastMessagePreview))
	assert.Equal(t, strings.Repeat("x", previewMaxLen-4)+"...", stored.LastMessagePreview)
}

func TestAgentSendRequiresAssignment(t *testing.T) {
	f := newConversationFixture(t)
	assigned := f.addAgent(t, "Assigned")
	other := f.addAgent(t, "Other")
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Claim(context.Background(), agentPerms(), assigned.ID, conv.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(context.Background(), MessageSender{
		Type:     domain.SenderTypeAgent,
		SenderID: &other.ID,
	}, conv.ID, "hi")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	// An administrator may send into any conversation.
	_, err = f.svc.SendMessage(context.Background(), MessageSender{
		Type:     domain.SenderTypeAgent,
		SenderID: &other.ID,
		IsAdmin:  true,
	}, conv.ID, "admin note")
	require.NoError(t, err)
}

func TestClosedConversationRefusesMessages(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), agentPerms(), conv.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeClient}, conv.ID, "anyone there?")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestCloseAndReopen(t *testing.T) {
	f := newConversationFixture(t)
	agent := f.addAgent(t, "Riley")
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Claim(context.Background(), agentPerms(), agent.ID, conv.ID)
	require.NoError(t, err)

	closed, err := f.svc.Close(context.Background(), agentPerms(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusClosed, closed.Status)

	// Closing twice is an invalid transition.
	_, err = f.svc.Close(context.Background(), agentPerms(), conv.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))

	reopened, err := f.svc.Reopen(context.Background(), agentPerms(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusUnassigned, reopened.Status)
	assert.Nil(t, reopened.AssignedAgentID, "reopening never auto-assigns")
}

func TestReopenRequiresClosedState(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Reopen(context.Background(), agentPerms(), conv.ID)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestArchiveIsOrthogonalToStatus(t *testing.T) {
	f := newConversationFixture(t)
	agent := f.addAgent(t, "Riley")
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Claim(context.Background(), agentPerms(), agent.ID, conv.ID)
	require.NoError(t, err)

	archived, err := f.svc.Archive(context.Background(), agentPerms(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusAssigned, archived.Status, "status untouched by archival")
	assert.NotNil(t, archived.ArchivedAt)
	assert.False(t, archived.InInbox())

	restored, err := f.svc.Restore(context.Background(), agentPerms(), conv.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.ArchivedAt)
	assert.True(t, restored.InInbox())
	assert.Equal(t, domain.ConversationStatusAssigned, restored.Status)
}

func TestInboxSplitsOnArchival(t *testing.T) {
	f := newConversationFixture(t)
	live, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "a@example.com"})
	require.NoError(t, err)
	hidden, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "b@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Archive(context.Background(), agentPerms(), hidden.ID)
	require.NoError(t, err)

	inbox, err := f.svc.ListInbox(context.Background(), agentPerms(), repository.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, live.ID, inbox[0].Conversation.ID)

	archived, err := f.svc.ListArchived(context.Background(), agentPerms(), repository.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, hidden.ID, archived[0].Conversation.ID)
}

func TestInboxReportsUnreadCounts(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeClient}, conv.ID, "first")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeClient}, conv.ID, "second")
	require.NoError(t, err)

	inbox, err := f.svc.ListInbox(context.Background(), agentPerms(), repository.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(2), inbox[0].UnreadCount)

	require.NoError(t, f.svc.MarkRead(context.Background(), domain.SenderTypeAgent, conv.ID))

	inbox, err = f.svc.ListInbox(context.Background(), agentPerms(), repository.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(0), inbox[0].UnreadCount)
}

func TestClientReadsScopedToOwnOrganization(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForClient(context.Background(), &domain.ClientAccount{
		ID:             "client-1",
		OrganizationID: "org-1",
	}, "billing question")
	require.NoError(t, err)

	otherOrg := "org-2"
	_, err = f.svc.GetConversation(context.Background(), conv.ID, &otherOrg)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"), "cross-org reads look like missing conversations")
	_, err = f.svc.ListMessages(context.Background(), conv.ID, &otherOrg)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	ownOrg := "org-1"
	stored, err := f.svc.GetConversation(context.Background(), conv.ID, &ownOrg)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, stored.ID)

	// guest conversations carry no organization and stay reachable by id
	guest, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)
	_, err = f.svc.GetConversation(context.Background(), guest.ID, &otherOrg)
	require.NoError(t, err)
}

func TestDeleteRequiresElevatedPermission(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), agentPerms(), conv.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"), "support agents cannot delete")

	err = f.svc.Delete(context.Background(), adminPerms(), conv.ID)
	require.NoError(t, err)

	_, err = f.svc.GetConversation(context.Background(), conv.ID, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestDeleteBulkReportsCount(t *testing.T) {
	f := newConversationFixture(t)
	first, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "a@example.com"})
	require.NoError(t, err)
	second, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "b@example.com"})
	require.NoError(t, err)

	deleted, err := f.svc.DeleteBulk(context.Background(), adminPerms(), []string{first.ID, second.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestConvertGuestConversationToTicket(t *testing.T) {
	f := newConversationFixture(t)
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{
		GuestName:  "Ana",
		GuestEmail: "ana@example.com",
	})
	require.NoError(t, err)

	ticket, err := f.svc.ConvertToTicket(context.Background(), agentPerms(), strPtr("staff-1"), conv.ID, TicketCreateInput{
		Subject:     "Escalated from chat",
		Description: "Transcript follows.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketSourceGuest, ticket.Source)
	require.NotNil(t, ticket.GuestEmail)
	assert.Equal(t, "ana@example.com", *ticket.GuestEmail)
	assert.True(t, strings.HasPrefix(ticket.TicketNumber, "GST-"))

	// Exactly one system message records the conversion, and the
	// conversation state is unchanged.
	system := f.messages.systemMessages(conv.ID)
	require.Len(t, system, 1)
	assert.Contains(t, system[0].Body, ticket.TicketNumber)

	stored, err := f.svc.GetConversation(context.Background(), conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusUnassigned, stored.Status)
}

func TestConvertClientConversationKeepsOrganization(t *testing.T) {
	f := newConversationFixture(t)
	client := &domain.ClientAccount{ID: "client-1", OrganizationID: "org-1"}
	conv, err := f.svc.StartForClient(context.Background(), client, "billing")
	require.NoError(t, err)

	ticket, err := f.svc.ConvertToTicket(context.Background(), agentPerms(), nil, conv.ID, TicketCreateInput{
		Subject:     "Billing follow-up",
		Description: "From chat.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketSourcePortal, ticket.Source)
	require.NotNil(t, ticket.OrganizationID)
	assert.Equal(t, "org-1", *ticket.OrganizationID)
	require.NotNil(t, ticket.ClientAccountID)
	assert.Equal(t, "client-1", *ticket.ClientAccountID)
}

func TestMarkReadFlipsCounterpartMessages(t *testing.T) {
	f := newConversationFixture(t)
	agent := f.addAgent(t, "Riley")
	conv, err := f.svc.StartForGuest(context.Background(), ConversationStartInput{GuestEmail: "g@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Claim(context.Background(), agentPerms(), agent.ID, conv.ID)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeClient}, conv.ID, "question")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(context.Background(), MessageSender{Type: domain.SenderTypeAgent, SenderID: &agent.ID}, conv.ID, "answer")
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkRead(context.Background(), domain.SenderTypeAgent, conv.ID))

	msgs, err := f.svc.ListMessages(context.Background(), conv.ID, nil)
	require.NoError(t, err)
	for _, msg := range msgs {
		switch msg.SenderType {
		case domain.SenderTypeClient, domain.SenderTypeSystem:
			assert.True(t, msg.IsRead, "counterpart messages marked read")
		case domain.SenderTypeAgent:
			assert.False(t, msg.IsRead, "own messages untouched")
		}
	}
}
