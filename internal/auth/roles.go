package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/domain"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// RequireRole ensures the principal resolved to one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("not authorized")
		}
		return c.Next()
	}
}

// RequirePermission gates a route on a named capability from the
// principal's effective permission set.
func RequirePermission(check func(domain.PermissionSet) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !check(principal.Permissions) {
			return apperrors.NewForbidden("not authorized")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures the caller resolved to any identity.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
