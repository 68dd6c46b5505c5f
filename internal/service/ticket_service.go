package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/events"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// TicketService owns the ticket lifecycle: creation from the three entry
// paths, status transitions, assignment and escalation. Callers pass their
// resolved permission set explicitly; the service never re-derives it.
type TicketService struct {
	tickets    repository.TicketRepository
	staff      repository.StaffRepository
	orgs       repository.ClientOrganizationRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	StaffRepo   repository.StaffRepository
	OrgRepo     repository.ClientOrganizationRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		staff:      deps.StaffRepo,
		orgs:       deps.OrgRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes common ticket creation fields.
type TicketCreateInput struct {
	Subject     string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// GuestContactInput identifies an anonymous requester.
type GuestContactInput struct {
	Name  string
	Email string
	Phone string
}

// CreateTicketForClient creates a ticket on behalf of an authenticated
// client account. The organization is taken from the account, never from
// the payload.
func (s *TicketService) CreateTicketForClient(ctx context.Context, client *domain.ClientAccount, input TicketCreateInput) (*domain.Ticket, error) {
	if client == nil {
		return nil, apperrors.NewUnauthorized("client account required")
	}
	if err := validateTicketInput(input); err != nil {
		return nil, err
	}
	orgID := client.OrganizationID
	clientID := client.ID
	ticket := &domain.Ticket{
		Subject:         strings.TrimSpace(input.Subject),
		Description:     strings.TrimSpace(input.Description),
		Category:        input.Category,
		Priority:        normalizePriority(input.Priority),
		Status:          domain.TicketStatusOpen,
		Source:          domain.TicketSourcePortal,
		OrganizationID:  &orgID,
		ClientAccountID: &clientID,
	}
	return s.create(ctx, ticket, events.Actor{Kind: domain.IdentityKindClient, ActorID: &clientID})
}

// CreateGuestTicket creates a ticket for an anonymous guest identified by
// email only.
func (s *TicketService) CreateGuestTicket(ctx context.Context, guest GuestContactInput, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateTicketInput(input); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(guest.Email))
	if email == "" {
		return nil, apperrors.NewValidationError("guest email required", nil)
	}
	ticket := &domain.Ticket{
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Priority:    normalizePriority(input.Priority),
		Status:      domain.TicketStatusOpen,
		Source:      domain.TicketSourceGuest,
		GuestEmail:  &email,
	}
	if name := strings.TrimSpace(guest.Name); name != "" {
		ticket.GuestName = &name
	}
	if phone := strings.TrimSpace(guest.Phone); phone != "" {
		ticket.GuestPhone = &phone
	}
	return s.create(ctx, ticket, events.Actor{Kind: domain.IdentityKindGuest})
}

// CreateFromEmbed creates a ticket on behalf of an embed-token-authorized
// request. The organization comes from the token's authorization context.
func (s *TicketService) CreateFromEmbed(ctx context.Context, organizationID string, guest GuestContactInput, websiteURL string, input TicketCreateInput) (*domain.Ticket, error) {
	if err := validateTicketInput(input); err != nil {
		return nil, err
	}
	if _, err := s.orgs.GetByID(ctx, organizationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": organizationID})
		}
		return nil, apperrors.MapError(err)
	}
	ticket := &domain.Ticket{
		Subject:        strings.TrimSpace(input.Subject),
		Description:    strings.TrimSpace(input.Description),
		Category:       input.Category,
		Priority:       normalizePriority(input.Priority),
		Status:         domain.TicketStatusOpen,
		Source:         domain.TicketSourceEmbed,
		OrganizationID: &organizationID,
	}
	if email := strings.ToLower(strings.TrimSpace(guest.Email)); email != "" {
		ticket.GuestEmail = &email
	}
	if name := strings.TrimSpace(guest.Name); name != "" {
		ticket.GuestName = &name
	}
	if phone := strings.TrimSpace(guest.Phone); phone != "" {
		ticket.GuestPhone = &phone
	}
	if url := strings.TrimSpace(websiteURL); url != "" {
		ticket.WebsiteURL = &url
	}
	return s.create(ctx, ticket, events.Actor{Kind: domain.IdentityKindGuest})
}

func (s *TicketService) create(ctx context.Context, ticket *domain.Ticket, actor events.Actor) (*domain.Ticket, error) {
	seq, err := s.tickets.NextSequence(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.TicketNumber = fmt.Sprintf("%s-%06d", ticket.Source.NumberPrefix(), seq)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			TicketNumber:   ticket.TicketNumber,
			Source:         ticket.Source,
			Priority:       ticket.Priority,
			Subject:        ticket.Subject,
			OrganizationID: ticket.OrganizationID,
		},
	})
	return ticket, nil
}

// AssignTicket sets the assigned staff member. Reassignment overwrites the
// previous assignee; the operation is idempotent.
func (s *TicketService) AssignTicket(ctx context.Context, perms domain.PermissionSet, actorStaffID *string, ticketID, staffID string) (*domain.Ticket, error) {
	if !perms.CanManageStaff && !perms.CanViewAllTickets {
		return nil, apperrors.NewForbidden("not authorized")
	}
	assignee, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.IsActive {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"staff_id": staffID})
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldAssignee := ticket.AssignedToStaff
	ticket.AssignedToStaff = &assignee.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAssigneeChange(ctx, actorStaffID, ticket.ID, oldAssignee, ticket.AssignedToStaff)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		EntityID: ticket.ID,
		Actor:    events.Actor{Kind: domain.IdentityKindStaff, ActorID: actorStaffID},
		Payload:  events.TicketAssignedPayload{AssignedToStaff: ticket.AssignedToStaff},
	})
	return ticket, nil
}

// Transition moves a ticket along a legal lifecycle edge. Entering open
// from any other state clears the assignment.
func (s *TicketService) Transition(ctx context.Context, perms domain.PermissionSet, actorKind domain.IdentityKind, actorID *string, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !perms.CanViewAllTickets {
		return nil, apperrors.NewForbidden("not authorized")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
	}
	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusOpen {
		ticket.AssignedToStaff = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordStatusChange(ctx, actorKind, actorID, ticket.ID, oldStatus, newStatus)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		EntityID: ticket.ID,
		Actor:    events.Actor{Kind: actorKind, ActorID: actorID},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// SetEscalation flips the escalation flag, independent of status.
func (s *TicketService) SetEscalation(ctx context.Context, perms domain.PermissionSet, actorStaffID *string, ticketID string, escalated bool) (*domain.Ticket, error) {
	if !perms.CanViewAllTickets {
		return nil, apperrors.NewForbidden("not authorized")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsEscalated == escalated {
		return ticket, nil
	}
	ticket.IsEscalated = escalated
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.history != nil {
		entry := &domain.TicketHistory{
			TicketID:      ticket.ID,
			ChangedByType: domain.IdentityKindStaff,
			ChangedByID:   actorStaffID,
			ChangeType:    domain.ChangeTypeEscalation,
			OldValue:      map[string]any{"is_escalated": !escalated},
			NewValue:      map[string]any{"is_escalated": escalated},
		}
		_ = s.history.Create(ctx, entry)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		EntityID: ticket.ID,
		Actor:    events.Actor{Kind: domain.IdentityKindStaff, ActorID: actorStaffID},
		Payload:  events.TicketEscalatedPayload{Escalated: escalated},
	})
	return ticket, nil
}

// TrackGuestTicket looks up a ticket for an anonymous caller. It requires
// an exact match on both the ticket number and the recorded email, and it
// answers a wrong email and an unknown number with the exact same
// not-found so existence is never leaked.
func (s *TicketService) TrackGuestTicket(ctx context.Context, ticketNumber, email string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, strings.TrimSpace(ticketNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, guestTicketNotFound()
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.GuestEmail == nil {
		return nil, guestTicketNotFound()
	}
	given := strings.ToLower(strings.TrimSpace(email))
	recorded := strings.ToLower(*ticket.GuestEmail)
	if subtle.ConstantTimeCompare([]byte(given), []byte(recorded)) != 1 {
		return nil, guestTicketNotFound()
	}
	return ticket, nil
}

// GetTicketForStaff fetches a ticket for staff viewing.
func (s *TicketService) GetTicketForStaff(ctx context.Context, perms domain.PermissionSet, ticketID string) (*domain.Ticket, error) {
	if !perms.CanViewAllTickets {
		return nil, apperrors.NewForbidden("not authorized")
	}
	return s.getTicket(ctx, ticketID)
}

// GetTicketForClient fetches a ticket ensuring organization ownership.
func (s *TicketService) GetTicketForClient(ctx context.Context, client *domain.ClientAccount, ticketID string) (*domain.Ticket, error) {
	if client == nil {
		return nil, apperrors.NewUnauthorized("client account required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OrganizationID == nil || *ticket.OrganizationID != client.OrganizationID {
		return nil, apperrors.NewForbidden("not authorized")
	}
	return ticket, nil
}

// ListStaffTickets returns tickets matching the filter for staff.
func (s *TicketService) ListStaffTickets(ctx context.Context, perms domain.PermissionSet, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if !perms.CanViewAllTickets {
		return nil, apperrors.NewForbidden("not authorized")
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// ListClientTickets returns the organization's tickets for a client.
func (s *TicketService) ListClientTickets(ctx context.Context, client *domain.ClientAccount, limit, offset int) ([]domain.Ticket, error) {
	if client == nil {
		return nil, apperrors.NewUnauthorized("client account required")
	}
	orgID := client.OrganizationID
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		OrganizationID: &orgID,
		Limit:          limit,
		Offset:         offset,
	})
}

// ListHistory returns the audit trail for a ticket.
func (s *TicketService) ListHistory(ctx context.Context, perms domain.PermissionSet, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if !perms.CanViewAllTickets {
		return nil, apperrors.NewForbidden("not authorized")
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketID, limit, offset)
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func guestTicketNotFound() error {
	// Identical shape for "unknown number" and "wrong email".
	return apperrors.NewNotFound("ticket", nil)
}

func validateTicketInput(input TicketCreateInput) error {
	if strings.TrimSpace(input.Subject) == "" {
		return apperrors.NewValidationError("subject required", map[string]any{"field": "subject"})
	}
	if strings.TrimSpace(input.Description) == "" {
		return apperrors.NewValidationError("description required", map[string]any{"field": "description"})
	}
	return nil
}

func normalizePriority(priority domain.TicketPriority) domain.TicketPriority {
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
		return priority
	default:
		return domain.TicketPriorityMedium
	}
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {domain.TicketStatusResolved, domain.TicketStatusOpen},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorKind domain.IdentityKind, actorID *string, ticketID string, oldStatus, newStatus domain.TicketStatus) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actorKind,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": oldStatus},
		NewValue:      map[string]any{"status": newStatus},
	}
	_ = s.history.Create(ctx, entry)
}

func (s *TicketService) recordAssigneeChange(ctx context.Context, actorStaffID *string, ticketID string, oldAssignee, newAssignee *string) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.IdentityKindStaff,
		ChangedByID:   actorStaffID,
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue:      map[string]any{"assigned_to_staff": oldAssignee},
		NewValue:      map[string]any{"assigned_to_staff": newAssignee},
	}
	_ = s.history.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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
