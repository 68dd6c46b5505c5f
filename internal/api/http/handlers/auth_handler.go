package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/dto"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/service"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// AuthHandler serves login and role administration endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// LoginUser POST /auth/users/login.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	result, err := h.service.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

// LoginClient POST /auth/clients/login.
func (h *AuthHandler) LoginClient(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	result, err := h.service.LoginClient(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

// RegisterUser POST /auth/users/register.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	var req dto.RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.RegisterUser(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	}})
}

// ChangeRole PUT /admin/users/role.
func (h *AuthHandler) ChangeRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Identity.Kind != domain.IdentityKindPlatformUser {
		return apperrors.NewUnauthorized("platform user required")
	}
	var req dto.ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return apperrors.NewValidationError("userId required", nil)
	}
	err := h.service.ChangeRole(c.UserContext(), principal.Permissions,
		principal.Identity.PlatformUser.ID, req.UserID, domain.Role(req.NewRole))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"userId":  req.UserID,
		"newRole": req.NewRole,
	}})
}

func loginResponse(result *service.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Subject:   string(result.Subject),
		SubjectID: result.SubjectID,
	}
}
