package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/config"
	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// AuthService handles logins for the separate credential stores and the
// administrative role change flow.
type AuthService struct {
	cfg     config.Config
	users   repository.PlatformUserRepository
	roles   repository.UserRoleRepository
	clients repository.ClientAccountRepository
	tokens  *auth.TokenManager
}

// AuthDependencies bundles repositories for auth flows.
type AuthDependencies struct {
	UserRepo   repository.PlatformUserRepository
	RoleRepo   repository.UserRoleRepository
	ClientRepo repository.ClientAccountRepository
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		cfg:     cfg,
		users:   deps.UserRepo,
		roles:   deps.RoleRepo,
		clients: deps.ClientRepo,
		tokens:  auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the session token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries an issued session token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Subject   domain.SubjectType
	SubjectID string
}

// LoginUser authenticates against the platform user credential store.
// Admins, editors and staff members log in through this path.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user.ID, domain.SubjectTypeUser)
}

// LoginClient authenticates against the client account store.
func (s *AuthService) LoginClient(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.clients.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !account.IsActive {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(account.ID, domain.SubjectTypeClient)
}

func (s *AuthService) issue(subjectID string, subject domain.SubjectType) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(subjectID, subject)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Subject:   subject,
		SubjectID: subjectID,
	}, nil
}

// ChangeRole replaces a platform user's role assignment. The swap is a
// delete followed by an insert so "no role" stays representable, and an
// administrator can never change their own role.
func (s *AuthService) ChangeRole(ctx context.Context, perms domain.PermissionSet, actorUserID, targetUserID string, newRole domain.Role) error {
	if !perms.CanManageUsers {
		return apperrors.NewForbidden("not authorized")
	}
	if actorUserID == targetUserID {
		return apperrors.NewForbidden("cannot change your own role")
	}
	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": targetUserID})
		}
		return apperrors.MapError(err)
	}

	if newRole == "" {
		if err := s.roles.DeleteRole(ctx, targetUserID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperrors.MapError(err)
		}
		return nil
	}
	if newRole != domain.RoleAdmin && newRole != domain.RoleEditor {
		return apperrors.NewValidationError("role must be ADMIN or EDITOR", map[string]any{"role": newRole})
	}
	return apperrors.MapError(s.roles.ReplaceRole(ctx, targetUserID, newRole))
}

// RegisterUser creates a platform user credential record.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.PlatformUser, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email, password required", nil)
	}
	hash, err := auth.HashPassword(password, s.cfg.Auth.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.PlatformUser{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
