package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/dto"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
	"github.com/spec-kit/support-platform/internal/service"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// ConversationsHandler serves the live chat endpoints for guests, clients
// and the staff console.
type ConversationsHandler struct {
	service *service.ConversationService
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(conversationService *service.ConversationService) *ConversationsHandler {
	return &ConversationsHandler{service: conversationService}
}

// StartConversation POST /conversations. Authenticated clients start under
// their organization; anonymous guests supply contact details.
func (h *ConversationsHandler) StartConversation(c *fiber.Ctx) error {
	var req dto.StartConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.Identity != nil && principal.Identity.Client != nil {
		conv, err := h.service.StartForClient(c.UserContext(), principal.Identity.Client, req.Subject)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
	}
	conv, err := h.service.StartForGuest(c.UserContext(), service.ConversationStartInput{
		Subject:    req.Subject,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
}

// SendMessage POST /conversations/:id/messages.
func (h *ConversationsHandler) SendMessage(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sender := senderFromContext(c)
	msg, err := h.service.SendMessage(c.UserContext(), sender, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.MessageFromDomain(msg)})
}

// ListMessages GET /conversations/:id/messages.
func (h *ConversationsHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.service.ListMessages(c.UserContext(), c.Params("id"), callerOrgFromContext(c))
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, dto.MessageFromDomain(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /conversations/:id/read.
func (h *ConversationsHandler) MarkRead(c *fiber.Ctx) error {
	reader := domain.SenderTypeClient
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.StaffID() != nil {
		reader = domain.SenderTypeAgent
	}
	if err := h.service.MarkRead(c.UserContext(), reader, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClaimConversation POST /staff/conversations/:id/claim.
func (h *ConversationsHandler) ClaimConversation(c *fiber.Ctx) error {
	principal, staffID, err := requireStaff(c)
	if err != nil {
		return err
	}
	conv, err := h.service.Claim(c.UserContext(), principal.Permissions, staffID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
}

// CloseConversation POST /staff/conversations/:id/close.
func (h *ConversationsHandler) CloseConversation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	conv, err := h.service.Close(c.UserContext(), principal.Permissions, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
}

// ReopenConversation POST /staff/conversations/:id/reopen.
func (h *ConversationsHandler) ReopenConversation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	conv, err := h.service.Reopen(c.UserContext(), principal.Permissions, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
}

// ArchiveConversation POST /staff/conversations/:id/archive.
func (h *ConversationsHandler) ArchiveConversation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	conv, err := h.service.Archive(c.UserContext(), principal.Permissions, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
}

// RestoreConversation POST /staff/conversations/:id/restore.
func (h *ConversationsHandler) RestoreConversation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	conv, err := h.service.Restore(c.UserContext(), principal.Permissions, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
}

// DeleteConversation DELETE /staff/conversations/:id.
func (h *ConversationsHandler) DeleteConversation(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), principal.Permissions, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkDeleteConversations POST /staff/conversations/bulk-delete.
func (h *ConversationsHandler) BulkDeleteConversations(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	deleted, err := h.service.DeleteBulk(c.UserContext(), principal.Permissions, req.ConversationIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": deleted}})
}

// ConvertToTicket POST /staff/conversations/:id/convert.
func (h *ConversationsHandler) ConvertToTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ConvertToTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ConvertToTicket(c.UserContext(), principal.Permissions, principal.StaffID(), c.Params("id"), service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// ListInbox GET /staff/conversations.
func (h *ConversationsHandler) ListInbox(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseConversationQuery(c)
	entries, err := h.service.ListInbox(c.UserContext(), principal.Permissions, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": inboxResponses(entries)})
}

// ListArchived GET /staff/conversations/archived.
func (h *ConversationsHandler) ListArchived(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseConversationQuery(c)
	entries, err := h.service.ListArchived(c.UserContext(), principal.Permissions, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": inboxResponses(entries)})
}

// GetConversation GET /conversations/:id.
func (h *ConversationsHandler) GetConversation(c *fiber.Ctx) error {
	conv, err := h.service.GetConversation(c.UserContext(), c.Params("id"), callerOrgFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConversationFromDomain(conv)})
}

func requireStaff(c *fiber.Ctx) (*auth.Principal, string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, "", apperrors.NewUnauthorized("authentication required")
	}
	staffID := principal.StaffID()
	if staffID == nil {
		return nil, "", apperrors.NewForbidden("staff identity required")
	}
	return principal, *staffID, nil
}

func senderFromContext(c *fiber.Ctx) service.MessageSender {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Identity == nil {
		return service.MessageSender{Type: domain.SenderTypeClient}
	}
	if staffID := principal.StaffID(); staffID != nil || principal.Role == domain.RoleAdmin {
		return service.MessageSender{
			Type:        domain.SenderTypeAgent,
			SenderID:    staffID,
			Permissions: principal.Permissions,
			IsAdmin:     principal.Role == domain.RoleAdmin,
		}
	}
	if principal.Identity.Client != nil {
		clientID := principal.Identity.Client.ID
		return service.MessageSender{
			Type:     domain.SenderTypeClient,
			SenderID: &clientID,
		}
	}
	return service.MessageSender{Type: domain.SenderTypeClient}
}

func parseConversationQuery(c *fiber.Ctx) repository.ConversationFilter {
	filter := repository.ConversationFilter{}
	if orgID := c.Query("organization_id"); orgID != "" {
		filter.OrganizationID = &orgID
	}
	if agentID := c.Query("assigned_agent"); agentID != "" {
		filter.AssignedAgentID = &agentID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ConversationStatus(strings.TrimSpace(part)))
		}
	}
	filter.Limit, filter.Offset = parsePagination(c)
	return filter
}

// callerOrgFromContext returns the organization scope for reads on the
// shared conversation surface: set for resolved client principals,
// nil for anonymous guests and staff.
func callerOrgFromContext(c *fiber.Ctx) *string {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return principal.Identity.OrganizationID()
}

func inboxResponses(entries []service.InboxEntry) []dto.InboxItemResponse {
	items := make([]dto.InboxItemResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.InboxItemResponse{
			ConversationResponse: dto.ConversationFromDomain(&entries[i].Conversation),
			UnreadCount:          entries[i].UnreadCount,
		})
	}
	return items
}
