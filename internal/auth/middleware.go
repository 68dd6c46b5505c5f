package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/domain"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller with its resolved role
// and effective permission set. Lifecycle services take the permission
// set as an explicit argument and never re-derive it.
type Principal struct {
	Identity    *domain.Identity
	Role        domain.Role
	Permissions domain.PermissionSet
}

// StaffID returns the staff record id when the principal is a staff member.
func (p *Principal) StaffID() *string {
	if p == nil || p.Identity == nil || p.Identity.Staff == nil {
		return nil
	}
	return &p.Identity.Staff.ID
}

// ActorID returns the id of the concrete identity record.
func (p *Principal) ActorID() string {
	if p == nil || p.Identity == nil {
		return ""
	}
	switch p.Identity.Kind {
	case domain.IdentityKindPlatformUser:
		return p.Identity.PlatformUser.ID
	case domain.IdentityKindStaff:
		return p.Identity.Staff.ID
	case domain.IdentityKindClient:
		return p.Identity.Client.ID
	default:
		return ""
	}
}

// AuthMiddleware validates bearer tokens and resolves principals through
// the identity chain.
type AuthMiddleware struct {
	tokens   *TokenManager
	resolver *ChainResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, resolver *ChainResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	resolution, ok := m.resolver.Resolve(c.Context(), claims.Subject, claims.SubjectID)
	if !ok {
		return apperrors.NewUnauthorized("identity not resolvable")
	}

	perms := domain.PermissionsFor(resolution.Role)
	if resolution.Identity.Kind == domain.IdentityKindStaff {
		perms = domain.EffectivePermissions(resolution.Role, resolution.Identity.Staff)
	}

	c.Locals(principalKey, &Principal{
		Identity:    resolution.Identity,
		Role:        resolution.Role,
		Permissions: perms,
	})
	return c.Next()
}

// HandleOptional resolves a principal when a valid bearer token is
// present and passes the request through anonymously otherwise. Used on
// surfaces shared by guests and authenticated clients.
func (m *AuthMiddleware) HandleOptional(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Next()
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return c.Next()
	}
	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return c.Next()
	}
	resolution, ok := m.resolver.Resolve(c.Context(), claims.Subject, claims.SubjectID)
	if !ok {
		return c.Next()
	}

	perms := domain.PermissionsFor(resolution.Role)
	if resolution.Identity.Kind == domain.IdentityKindStaff {
		perms = domain.EffectivePermissions(resolution.Role, resolution.Identity.Staff)
	}
	c.Locals(principalKey, &Principal{
		Identity:    resolution.Identity,
		Role:        resolution.Role,
		Permissions: perms,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
