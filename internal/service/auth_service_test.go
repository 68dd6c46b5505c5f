package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/config"
	"github.com/spec-kit/support-platform/internal/domain"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

type fakePlatformUserRepo struct {
	users map[string]*domain.PlatformUser
}

func newFakePlatformUserRepo() *fakePlatformUserRepo {
	return &fakePlatformUserRepo{users: map[string]*domain.PlatformUser{}}
}

func (r *fakePlatformUserRepo) Create(_ context.Context, user *domain.PlatformUser) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.users)+1)
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakePlatformUserRepo) GetByID(_ context.Context, id string) (*domain.PlatformUser, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakePlatformUserRepo) GetByEmail(_ context.Context, email string) (*domain.PlatformUser, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeClientAccountRepo struct {
	accounts map[string]*domain.ClientAccount
}

func newFakeClientAccountRepo() *fakeClientAccountRepo {
	return &fakeClientAccountRepo{accounts: map[string]*domain.ClientAccount{}}
}

func (r *fakeClientAccountRepo) Create(_ context.Context, account *domain.ClientAccount) error {
	if account.ID == "" {
		account.ID = fmt.Sprintf("client-%d", len(r.accounts)+1)
	}
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeClientAccountRepo) GetByID(_ context.Context, id string) (*domain.ClientAccount, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeClientAccountRepo) GetByEmail(_ context.Context, email string) (*domain.ClientAccount, error) {
	for _, account := range r.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type authFixture struct {
	svc     *AuthService
	users   *fakePlatformUserRepo
	roles   *fakeUserRoleRepo
	clients *fakeClientAccountRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakePlatformUserRepo()
	roles := newFakeUserRoleRepo()
	clients := newFakeClientAccountRepo()
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4,
		},
	}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo:   users,
		RoleRepo:   roles,
		ClientRepo: clients,
	})
	return &authFixture{svc: svc, users: users, roles: roles, clients: clients}
}

func (f *authFixture) addUser(t *testing.T, email, password string) *domain.PlatformUser {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	user := &domain.PlatformUser{Name: "User", Email: email, PasswordHash: hash}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestLoginUserIssuesToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.addUser(t, "admin@example.com", "hunter2")

	result, err := f.svc.LoginUser(context.Background(), " Admin@Example.com ", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, domain.SubjectTypeUser, result.Subject)
	assert.Equal(t, user.ID, result.SubjectID)

	claims, err := f.svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeUser, claims.Subject)
}

func TestLoginUserUniformFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "admin@example.com", "hunter2")

	_, wrongPassErr := f.svc.LoginUser(context.Background(), "admin@example.com", "wrong")
	_, unknownErr := f.svc.LoginUser(context.Background(), "nobody@example.com", "hunter2")

	require.Error(t, wrongPassErr)
	require.Error(t, unknownErr)
	// Wrong password and unknown email must be indistinguishable.
	assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
	assert.True(t, apperrors.IsCode(wrongPassErr, "UNAUTHORIZED"))
}

func TestLoginClientRejectsInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	hash, err := auth.HashPassword("secret", 4)
	require.NoError(t, err)
	account := &domain.ClientAccount{
		OrganizationID: "org-1",
		Email:          "client@example.com",
		PasswordHash:   hash,
		IsActive:       false,
	}
	require.NoError(t, f.clients.Create(context.Background(), account))

	_, err = f.svc.LoginClient(context.Background(), "client@example.com", "secret")
	assert.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestChangeRoleAssignsAndClears(t *testing.T) {
	f := newAuthFixture(t)
	actor := f.addUser(t, "admin@example.com", "pw")
	target := f.addUser(t, "target@example.com", "pw")

	err := f.svc.ChangeRole(context.Background(), adminPerms(), actor.ID, target.ID, domain.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, f.roles.roles[target.ID])

	// Empty role clears the assignment.
	err = f.svc.ChangeRole(context.Background(), adminPerms(), actor.ID, target.ID, "")
	require.NoError(t, err)
	_, ok := f.roles.roles[target.ID]
	assert.False(t, ok)

	// Clearing an already-empty assignment is not an error.
	err = f.svc.ChangeRole(context.Background(), adminPerms(), actor.ID, target.ID, "")
	require.NoError(t, err)
}

func TestChangeRoleRejectsSelfModification(t *testing.T) {
	f := newAuthFixture(t)
	actor := f.addUser(t, "admin@example.com", "pw")
	f.roles.roles[actor.ID] = domain.RoleAdmin

	err := f.svc.ChangeRole(context.Background(), adminPerms(), actor.ID, actor.ID, domain.RoleEditor)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	assert.Equal(t, domain.RoleAdmin, f.roles.roles[actor.ID], "role unchanged")
}

func TestChangeRoleRestrictsRoleSpace(t *testing.T) {
	f := newAuthFixture(t)
	actor := f.addUser(t, "admin@example.com", "pw")
	target := f.addUser(t, "target@example.com", "pw")

	err := f.svc.ChangeRole(context.Background(), adminPerms(), actor.ID, target.ID, domain.RoleClient)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	err = f.svc.ChangeRole(context.Background(), adminPerms(), actor.ID, target.ID, domain.Role("OWNER"))
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestChangeRoleRequiresManageUsers(t *testing.T) {
	f := newAuthFixture(t)
	actor := f.addUser(t, "agent@example.com", "pw")
	target := f.addUser(t, "target@example.com", "pw")

	err := f.svc.ChangeRole(context.Background(), domain.PermissionsFor(domain.RoleSupportAgent), actor.ID, target.ID, domain.RoleEditor)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestChangeRoleUnknownTarget(t *testing.T) {
	f := newAuthFixture(t)
	actor := f.addUser(t, "admin@example.com", "pw")

	err := f.svc.ChangeRole(context.Background(), adminPerms(), actor.ID, "missing", domain.RoleEditor)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestRegisterUserValidatesInput(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.RegisterUser(context.Background(), "", "a@example.com", "pw")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	user, err := f.svc.RegisterUser(context.Background(), "Ana", " Ana@Example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "pw", user.PasswordHash)
}
