package auth

import (
	"context"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
)

// Resolution is the outcome of identity resolution: the concrete identity
// and the coarse role it carries.
type Resolution struct {
	Identity *domain.Identity
	Role     domain.Role
}

// IdentityResolver resolves an authenticated subject to an identity and
// role. Implementations return ok=false for both "no matching record" and
// infrastructure failure: resolution never leaks errors across the trust
// boundary, and an unresolvable identity is simply denied.
type IdentityResolver interface {
	Resolve(ctx context.Context, subject domain.SubjectType, subjectID string) (*Resolution, bool)
}

// ChainResolver tries each resolver in order and returns the first match.
// The order is fixed: platform roles (admin/editor) outrank a staff record
// for the same account, which outranks any client record. The same login
// can legitimately exist in more than one table; admin intent wins.
type ChainResolver struct {
	resolvers []IdentityResolver
}

// NewChainResolver builds the fixed-priority resolution chain.
func NewChainResolver(users repository.PlatformUserRepository, roles repository.UserRoleRepository, staff repository.StaffRepository, clients repository.ClientAccountRepository) *ChainResolver {
	return &ChainResolver{
		resolvers: []IdentityResolver{
			&platformUserResolver{users: users, roles: roles},
			&staffResolver{staff: staff},
			&clientResolver{clients: clients},
		},
	}
}

// Resolve walks the chain.
func (c *ChainResolver) Resolve(ctx context.Context, subject domain.SubjectType, subjectID string) (*Resolution, bool) {
	for _, resolver := range c.resolvers {
		if resolution, ok := resolver.Resolve(ctx, subject, subjectID); ok {
			return resolution, true
		}
	}
	return nil, false
}

type platformUserResolver struct {
	users repository.PlatformUserRepository
	roles repository.UserRoleRepository
}

func (r *platformUserResolver) Resolve(ctx context.Context, subject domain.SubjectType, subjectID string) (*Resolution, bool) {
	if subject != domain.SubjectTypeUser {
		return nil, false
	}
	role, err := r.roles.GetRole(ctx, subjectID)
	if err != nil {
		return nil, false
	}
	if role != domain.RoleAdmin && role != domain.RoleEditor {
		return nil, false
	}
	user, err := r.users.GetByID(ctx, subjectID)
	if err != nil {
		return nil, false
	}
	return &Resolution{
		Identity: &domain.Identity{Kind: domain.IdentityKindPlatformUser, PlatformUser: user},
		Role:     role,
	}, true
}

type staffResolver struct {
	staff repository.StaffRepository
}

func (r *staffResolver) Resolve(ctx context.Context, subject domain.SubjectType, subjectID string) (*Resolution, bool) {
	if subject != domain.SubjectTypeUser {
		return nil, false
	}
	staff, err := r.staff.GetByUserID(ctx, subjectID)
	if err != nil {
		return nil, false
	}
	if !staff.IsActive {
		return nil, false
	}
	return &Resolution{
		Identity: &domain.Identity{Kind: domain.IdentityKindStaff, Staff: staff},
		Role:     domain.RoleSupportAgent,
	}, true
}

type clientResolver struct {
	clients repository.ClientAccountRepository
}

func (r *clientResolver) Resolve(ctx context.Context, subject domain.SubjectType, subjectID string) (*Resolution, bool) {
	if subject != domain.SubjectTypeClient {
		return nil, false
	}
	account, err := r.clients.GetByID(ctx, subjectID)
	if err != nil {
		return nil, false
	}
	if !account.IsActive {
		return nil, false
	}
	return &Resolution{
		Identity: &domain.Identity{Kind: domain.IdentityKindClient, Client: account},
		Role:     domain.RoleClient,
	}, true
}
