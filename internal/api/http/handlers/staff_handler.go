package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/dto"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/repository"
	"github.com/spec-kit/support-platform/internal/service"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// StaffHandler serves staff administration and the consistency audit.
type StaffHandler struct {
	staff *service.StaffService
	audit *service.AuditService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService, auditService *service.AuditService) *StaffHandler {
	return &StaffHandler{staff: staffService, audit: auditService}
}

// CreateStaff POST /admin/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.staff.CreateStaff(c.UserContext(), principal.Permissions, staffInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.StaffFromDomain(member)})
}

// UpdateStaff PUT /admin/staff/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.staff.UpdateStaff(c.UserContext(), principal.Permissions, c.Params("id"), staffInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StaffFromDomain(member)})
}

// ListStaff GET /admin/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.StaffFilter{}
	if activeStr := c.Query("active"); activeStr != "" {
		active := activeStr == "true"
		filter.Active = &active
	}
	filter.Limit, filter.Offset = parsePagination(c)
	members, err := h.staff.ListStaff(c.UserContext(), principal.Permissions, filter)
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		items = append(items, dto.StaffFromDomain(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// RunAudit GET /admin/staff/audit.
func (h *StaffHandler) RunAudit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !principal.Permissions.CanManageStaff {
		return apperrors.NewForbidden("not authorized")
	}
	issues, err := h.audit.Run(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuditReportFromDomain(issues)})
}

func staffInput(req dto.StaffRequest) service.StaffInput {
	return service.StaffInput{
		UserID:            req.UserID,
		FullName:          req.FullName,
		Email:             req.Email,
		IsActive:          req.IsActive,
		CanReplyTickets:   req.CanReplyTickets,
		CanManageContent:  req.CanManageContent,
		CanAttendMeetings: req.CanAttendMeetings,
	}
}
