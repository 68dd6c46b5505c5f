package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/dto"
	"github.com/spec-kit/support-platform/internal/ratelimit"
	"github.com/spec-kit/support-platform/internal/service"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

const trackLookupTimeout = 2 * time.Second

// GuestHandler serves the anonymous guest ticket endpoints. Tracking is
// rate limited per client IP and runs under a hard lookup deadline; both
// protections fail closed.
type GuestHandler struct {
	service *service.TicketService
	limiter *ratelimit.Limiter
}

// NewGuestHandler constructs handler.
func NewGuestHandler(ticketService *service.TicketService, limiter *ratelimit.Limiter) *GuestHandler {
	return &GuestHandler{service: ticketService, limiter: limiter}
}

// CreateTicket POST /guest/tickets.
func (h *GuestHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateGuestTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateGuestTicket(c.UserContext(),
		service.GuestContactInput{
			Name:  req.ContactName,
			Email: req.ContactEmail,
			Phone: req.ContactPhone,
		},
		service.TicketCreateInput{
			Subject:     req.Subject,
			Description: req.Description,
			Category:    req.Category,
			Priority:    req.Priority,
		})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"ticketNumber": ticket.TicketNumber,
		"status":       ticket.Status,
		"createdAt":    ticket.CreatedAt,
	}})
}

// TrackTicket POST /guest/tickets/track.
func (h *GuestHandler) TrackTicket(c *fiber.Ctx) error {
	if !h.limiter.Allow(c.UserContext(), c.IP()) {
		return apperrors.NewRateLimited("too many tracking requests")
	}
	var req dto.TrackGuestTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketNumber == "" || req.Email == "" {
		return apperrors.NewValidationError("ticketNumber and email required", nil)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), trackLookupTimeout)
	defer cancel()

	ticket, err := h.service.TrackGuestTicket(ctx, req.TicketNumber, req.Email)
	if err != nil {
		if ctx.Err() != nil {
			// A slow lookup must not reveal more than an unknown one.
			return apperrors.NewNotFound("ticket", nil)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticketNumber": ticket.TicketNumber,
		"subject":      ticket.Subject,
		"status":       ticket.Status,
		"priority":     ticket.Priority,
		"createdAt":    ticket.CreatedAt,
		"updatedAt":    ticket.UpdatedAt,
	}})
}
