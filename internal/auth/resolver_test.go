package auth

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
)

type stubUserRepo struct {
	users map[string]*domain.PlatformUser
}

func (r *stubUserRepo) Create(context.Context, *domain.PlatformUser) error { return nil }

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.PlatformUser, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.PlatformUser, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type stubRoleRepo struct {
	roles map[string]domain.Role
}

func (r *stubRoleRepo) GetRole(_ context.Context, userID string) (domain.Role, error) {
	if role, ok := r.roles[userID]; ok {
		return role, nil
	}
	return "", pgx.ErrNoRows
}

func (r *stubRoleRepo) ReplaceRole(_ context.Context, userID string, role domain.Role) error {
	r.roles[userID] = role
	return nil
}

func (r *stubRoleRepo) DeleteRole(_ context.Context, userID string) error {
	delete(r.roles, userID)
	return nil
}

type stubStaffRepo struct {
	byUserID map[string]*domain.StaffMember
}

func (r *stubStaffRepo) Create(context.Context, *domain.StaffMember) error { return nil }
func (r *stubStaffRepo) Update(context.Context, *domain.StaffMember) error { return nil }

func (r *stubStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	for _, staff := range r.byUserID {
		if staff.ID == id {
			return staff, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubStaffRepo) GetByUserID(_ context.Context, userID string) (*domain.StaffMember, error) {
	if staff, ok := r.byUserID[userID]; ok {
		return staff, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubStaffRepo) List(context.Context, repository.StaffFilter) ([]domain.StaffMember, error) {
	return nil, nil
}

type stubClientRepo struct {
	accounts map[string]*domain.ClientAccount
}

func (r *stubClientRepo) Create(context.Context, *domain.ClientAccount) error { return nil }

func (r *stubClientRepo) GetByID(_ context.Context, id string) (*domain.ClientAccount, error) {
	if account, ok := r.accounts[id]; ok {
		return account, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubClientRepo) GetByEmail(_ context.Context, email string) (*domain.ClientAccount, error) {
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func newResolverFixture() (*ChainResolver, *stubUserRepo, *stubRoleRepo, *stubStaffRepo, *stubClientRepo) {
	users := &stubUserRepo{users: map[string]*domain.PlatformUser{}}
	roles := &stubRoleRepo{roles: map[string]domain.Role{}}
	staff := &stubStaffRepo{byUserID: map[string]*domain.StaffMember{}}
	clients := &stubClientRepo{accounts: map[string]*domain.ClientAccount{}}
	return NewChainResolver(users, roles, staff, clients), users, roles, staff, clients
}

func TestResolveAdminUser(t *testing.T) {
	resolver, users, roles, _, _ := newResolverFixture()
	users.users["u1"] = &domain.PlatformUser{ID: "u1", Email: "admin@example.com"}
	roles.roles["u1"] = domain.RoleAdmin

	resolution, ok := resolver.Resolve(context.Background(), domain.SubjectTypeUser, "u1")
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, resolution.Role)
	assert.Equal(t, domain.IdentityKindPlatformUser, resolution.Identity.Kind)
}

func TestResolveStaffWithoutRoleRow(t *testing.T) {
	resolver, users, _, staff, _ := newResolverFixture()
	users.users["u1"] = &domain.PlatformUser{ID: "u1", Email: "agent@example.com"}
	staff.byUserID["u1"] = &domain.StaffMember{ID: "s1", UserID: strPtr("u1"), IsActive: true}

	resolution, ok := resolver.Resolve(context.Background(), domain.SubjectTypeUser, "u1")
	require.True(t, ok)
	assert.Equal(t, domain.RoleSupportAgent, resolution.Role)
	assert.Equal(t, domain.IdentityKindStaff, resolution.Identity.Kind)
	assert.Equal(t, "s1", resolution.Identity.Staff.ID)
}

func TestResolveAdminOutranksStaffRecord(t *testing.T) {
	// The same login exists both as an admin role and a staff record;
	// the platform role wins.
	resolver, users, roles, staff, _ := newResolverFixture()
	users.users["u1"] = &domain.PlatformUser{ID: "u1", Email: "both@example.com"}
	roles.roles["u1"] = domain.RoleAdmin
	staff.byUserID["u1"] = &domain.StaffMember{ID: "s1", UserID: strPtr("u1"), IsActive: true}

	resolution, ok := resolver.Resolve(context.Background(), domain.SubjectTypeUser, "u1")
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, resolution.Role)
	assert.Equal(t, domain.IdentityKindPlatformUser, resolution.Identity.Kind)
}

func TestResolveInactiveStaffDenied(t *testing.T) {
	resolver, users, _, staff, _ := newResolverFixture()
	users.users["u1"] = &domain.PlatformUser{ID: "u1"}
	staff.byUserID["u1"] = &domain.StaffMember{ID: "s1", UserID: strPtr("u1"), IsActive: false}

	_, ok := resolver.Resolve(context.Background(), domain.SubjectTypeUser, "u1")
	assert.False(t, ok)
}

func TestResolveClientSubject(t *testing.T) {
	resolver, _, _, _, clients := newResolverFixture()
	clients.accounts["c1"] = &domain.ClientAccount{ID: "c1", OrganizationID: "org-1", IsActive: true}

	resolution, ok := resolver.Resolve(context.Background(), domain.SubjectTypeClient, "c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoleClient, resolution.Role)
	assert.Equal(t, domain.IdentityKindClient, resolution.Identity.Kind)
}

func TestResolveClientSubjectNeverMatchesUserStores(t *testing.T) {
	// A client-typed token must not resolve through the user stores even
	// when an id collides.
	resolver, users, roles, _, _ := newResolverFixture()
	users.users["x1"] = &domain.PlatformUser{ID: "x1"}
	roles.roles["x1"] = domain.RoleAdmin

	_, ok := resolver.Resolve(context.Background(), domain.SubjectTypeClient, "x1")
	assert.False(t, ok)
}

func TestResolveInactiveClientDenied(t *testing.T) {
	resolver, _, _, _, clients := newResolverFixture()
	clients.accounts["c1"] = &domain.ClientAccount{ID: "c1", IsActive: false}

	_, ok := resolver.Resolve(context.Background(), domain.SubjectTypeClient, "c1")
	assert.False(t, ok)
}

func TestResolveUnknownSubjectDenied(t *testing.T) {
	resolver, _, _, _, _ := newResolverFixture()
	_, ok := resolver.Resolve(context.Background(), domain.SubjectTypeUser, "missing")
	assert.False(t, ok)
}

func strPtr(s string) *string { return &s }
