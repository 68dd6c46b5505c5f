package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/dto"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/observability"
	"github.com/spec-kit/support-platform/internal/ratelimit"
	"github.com/spec-kit/support-platform/internal/service"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// EmbedHandler serves the public widget intake endpoint and the
// administrative token CRUD. The widget endpoint uses its own response
// envelope instead of the standard error shape because external embed
// scripts consume it.
type EmbedHandler struct {
	service *service.EmbedService
	limiter *ratelimit.Limiter
	metrics *observability.Metrics
}

// NewEmbedHandler constructs handler.
func NewEmbedHandler(embedService *service.EmbedService, limiter *ratelimit.Limiter, metrics *observability.Metrics) *EmbedHandler {
	return &EmbedHandler{service: embedService, limiter: limiter, metrics: metrics}
}

// CreateTicket POST /embed/tickets.
func (h *EmbedHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.EmbedTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.EmbedErrorResponse{
			Error: "invalid payload",
		})
	}
	if req.Token == "" {
		h.metrics.RecordEmbedDenial(service.DenialInvalidToken)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.EmbedErrorResponse{
			Error: "token required",
			Code:  service.DenialInvalidToken,
		})
	}
	if !h.limiter.Allow(c.UserContext(), req.Token) {
		h.metrics.RecordEmbedDenial("RATE_LIMITED")
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.EmbedErrorResponse{
			Error: "too many requests",
			Code:  "RATE_LIMITED",
		})
	}

	origin := c.Get("X-Embed-Origin")
	if origin == "" {
		origin = c.Get("Origin")
	}

	ticket, orgCtx, denial, err := h.service.CreateTicket(c.UserContext(), req.Token, origin, service.EmbedTicketInput{
		Subject:      req.Subject,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		WebsiteURL:   req.WebsiteURL,
	})
	if denial != nil {
		h.metrics.RecordEmbedDenial(denial.Code)
		return c.Status(denial.HTTPStatus).JSON(dto.EmbedErrorResponse{
			Error: denial.Message,
			Code:  denial.Code,
		})
	}
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).JSON(dto.EmbedErrorResponse{
			Error: domainErr.Message,
			Code:  domainErr.Code,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.EmbedTicketSuccessResponse{
		Success:          true,
		TicketNumber:     ticket.TicketNumber,
		TicketID:         ticket.ID,
		OrganizationName: orgCtx.OrganizationName,
		Message:          "Your request has been received. Keep your ticket number to follow up.",
	})
}

// CreateToken POST /admin/embed-tokens.
func (h *EmbedHandler) CreateToken(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateEmbedTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OrganizationID == "" {
		return apperrors.NewValidationError("organization_id required", nil)
	}
	token, err := h.service.CreateToken(c.UserContext(), principal.Permissions, service.EmbedTokenInput{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		AllowedDomains: req.AllowedDomains,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.EmbedTokenFromDomain(token)})
}

// UpdateToken PUT /admin/embed-tokens/:id.
func (h *EmbedHandler) UpdateToken(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateEmbedTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	token, err := h.service.UpdateToken(c.UserContext(), principal.Permissions, c.Params("id"),
		req.Name, req.AllowedDomains, req.ExpiresAt, req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EmbedTokenFromDomain(token)})
}

// ListTokens GET /admin/embed-tokens.
func (h *EmbedHandler) ListTokens(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	orgID := c.Query("organization_id")
	if orgID == "" {
		return apperrors.NewValidationError("organization_id required", nil)
	}
	tokens, err := h.service.ListTokens(c.UserContext(), principal.Permissions, orgID)
	if err != nil {
		return err
	}
	items := make([]dto.EmbedTokenResponse, 0, len(tokens))
	for i := range tokens {
		items = append(items, dto.EmbedTokenFromDomain(&tokens[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteToken DELETE /admin/embed-tokens/:id.
func (h *EmbedHandler) DeleteToken(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteToken(c.UserContext(), principal.Permissions, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
