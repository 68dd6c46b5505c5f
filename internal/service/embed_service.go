package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-platform/internal/config"
	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// Embed denial codes surfaced to the widget.
const (
	DenialInvalidToken     = "INVALID_TOKEN"
	DenialTokenExpired     = "TOKEN_EXPIRED"
	DenialDomainNotAllowed = "DOMAIN_NOT_ALLOWED"
)

// EmbedDenial is a typed authorization denial. The guard returns denials
// instead of errors: callers must check explicitly, and nothing about the
// failure reason beyond the coarse code crosses the trust boundary.
type EmbedDenial struct {
	Code       string
	Message    string
	HTTPStatus int
}

// OrganizationContext is the authorization context granted by a valid
// embed token. Ticket creation uses this organization; a caller-supplied
// organization id is never honored.
type OrganizationContext struct {
	TokenID          string
	OrganizationID   string
	OrganizationName string
}

// EmbedService validates embed capability tokens and creates tickets on
// behalf of external widget requests.
type EmbedService struct {
	tokens  repository.EmbedTokenRepository
	orgs    repository.ClientOrganizationRepository
	tickets *TicketService
	cfg     config.EmbedConfig
	logger  *zap.Logger
	now     func() time.Time
}

// EmbedDependencies bundles dependencies for the embed service.
type EmbedDependencies struct {
	TokenRepo     repository.EmbedTokenRepository
	OrgRepo       repository.ClientOrganizationRepository
	TicketService *TicketService
	Config        config.EmbedConfig
	Logger        *zap.Logger
}

// NewEmbedService constructs the service.
func NewEmbedService(deps EmbedDependencies) *EmbedService {
	return &EmbedService{
		tokens:  deps.TokenRepo,
		orgs:    deps.OrgRepo,
		tickets: deps.TicketService,
		cfg:     deps.Config,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

// Authorize validates an inbound embed token against its active flag,
// expiry and domain allow-list. Infrastructure failures deny: this path
// fails closed. On success the usage counter is bumped best-effort.
func (s *EmbedService) Authorize(ctx context.Context, tokenStr, origin string) (*OrganizationContext, *EmbedDenial) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, invalidTokenDenial()
	}

	token, err := s.tokens.GetByToken(ctx, tokenStr)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("embed token lookup failed", zap.Error(err))
		}
		return nil, invalidTokenDenial()
	}
	if !token.IsActive {
		return nil, invalidTokenDenial()
	}
	if token.Expired(s.now()) {
		return nil, &EmbedDenial{
			Code:       DenialTokenExpired,
			Message:    "token expired",
			HTTPStatus: http.StatusUnauthorized,
		}
	}

	if len(token.AllowedDomains) > 0 {
		host := NormalizeOrigin(origin)
		if host == "" || !domainAllowed(token.AllowedDomains, host) {
			return nil, &EmbedDenial{
				Code:       DenialDomainNotAllowed,
				Message:    "origin not allowed for this token",
				HTTPStatus: http.StatusForbidden,
			}
		}
	} else {
		// Empty allow-list means any origin; deliberate product default.
		s.logger.Debug("unrestricted embed token used", zap.String("token_id", token.ID))
	}

	org, err := s.orgs.GetByID(ctx, token.OrganizationID)
	if err != nil {
		s.logger.Error("embed token organization lookup failed", zap.Error(err))
		return nil, invalidTokenDenial()
	}

	if err := s.tokens.RecordUsage(ctx, token.ID, s.now()); err != nil {
		// A counting miss is acceptable; a wrongful grant is not.
		s.logger.Warn("embed token usage counting failed", zap.Error(err))
	}

	return &OrganizationContext{
		TokenID:          token.ID,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
	}, nil
}

// EmbedTicketInput is the widget's ticket creation payload.
type EmbedTicketInput struct {
	Subject      string
	Description  string
	Category     string
	Priority     domain.TicketPriority
	ContactName  string
	ContactEmail string
	ContactPhone string
	WebsiteURL   string
}

// CreateTicket authorizes the token and creates the ticket under the
// token's organization. Subject and description are truncated server-side
// regardless of client input.
func (s *EmbedService) CreateTicket(ctx context.Context, tokenStr, origin string, input EmbedTicketInput) (*domain.Ticket, *OrganizationContext, *EmbedDenial, error) {
	orgCtx, denial := s.Authorize(ctx, tokenStr, origin)
	if denial != nil {
		return nil, nil, denial, nil
	}

	input.Subject = truncate(strings.TrimSpace(input.Subject), s.cfg.SubjectMaxLen)
	input.Description = truncate(strings.TrimSpace(input.Description), s.cfg.DescriptionMaxLen)

	ticket, err := s.tickets.CreateFromEmbed(ctx, orgCtx.OrganizationID,
		GuestContactInput{
			Name:  input.ContactName,
			Email: input.ContactEmail,
			Phone: input.ContactPhone,
		},
		input.WebsiteURL,
		TicketCreateInput{
			Subject:     input.Subject,
			Description: input.Description,
			Category:    input.Category,
			Priority:    input.Priority,
		})
	if err != nil {
		return nil, orgCtx, nil, err
	}
	return ticket, orgCtx, nil, nil
}

// EmbedTokenInput describes administrator-driven token creation.
type EmbedTokenInput struct {
	OrganizationID string
	Name           string
	AllowedDomains []string
	ExpiresAt      *time.Time
}

// CreateToken mints a new opaque embed token for an organization.
func (s *EmbedService) CreateToken(ctx context.Context, perms domain.PermissionSet, input EmbedTokenInput) (*domain.EmbedToken, error) {
	if !perms.CanManageEmbedTokens {
		return nil, apperrors.NewForbidden("not authorized")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if _, err := s.orgs.GetByID(ctx, input.OrganizationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": input.OrganizationID})
		}
		return nil, apperrors.MapError(err)
	}

	secret, err := generateTokenSecret(s.cfg.TokenBytes)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token := &domain.EmbedToken{
		OrganizationID: input.OrganizationID,
		Token:          secret,
		Name:           strings.TrimSpace(input.Name),
		AllowedDomains: normalizeDomains(input.AllowedDomains),
		ExpiresAt:      input.ExpiresAt,
		IsActive:       true,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	return token, nil
}

// UpdateToken edits name, allow-list, expiry or active flag.
func (s *EmbedService) UpdateToken(ctx context.Context, perms domain.PermissionSet, tokenID string, name *string, domains []string, expiresAt *time.Time, active *bool) (*domain.EmbedToken, error) {
	if !perms.CanManageEmbedTokens {
		return nil, apperrors.NewForbidden("not authorized")
	}
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("embed token", map[string]any{"token_id": tokenID})
		}
		return nil, apperrors.MapError(err)
	}
	if name != nil && strings.TrimSpace(*name) != "" {
		token.Name = strings.TrimSpace(*name)
	}
	if domains != nil {
		token.AllowedDomains = normalizeDomains(domains)
	}
	if expiresAt != nil {
		token.ExpiresAt = expiresAt
	}
	if active != nil {
		token.IsActive = *active
	}
	if err := s.tokens.Update(ctx, token); err != nil {
		return nil, apperrors.MapError(err)
	}
	return token, nil
}

// ListTokens returns an organization's embed tokens.
func (s *EmbedService) ListTokens(ctx context.Context, perms domain.PermissionSet, organizationID string) ([]domain.EmbedToken, error) {
	if !perms.CanManageEmbedTokens {
		return nil, apperrors.NewForbidden("not authorized")
	}
	tokens, err := s.tokens.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tokens, nil
}

// DeleteToken revokes a token permanently.
func (s *EmbedService) DeleteToken(ctx context.Context, perms domain.PermissionSet, tokenID string) error {
	if !perms.CanManageEmbedTokens {
		return apperrors.NewForbidden("not authorized")
	}
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("embed token", map[string]any{"token_id": tokenID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func invalidTokenDenial() *EmbedDenial {
	return &EmbedDenial{
		Code:       DenialInvalidToken,
		Message:    "invalid token",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NormalizeOrigin reduces an origin header value to a bare lowercase
// hostname: scheme and port are stripped, bare hostnames pass through.
func NormalizeOrigin(origin string) string {
	origin = strings.TrimSpace(strings.ToLower(origin))
	if origin == "" {
		return ""
	}
	if strings.Contains(origin, "://") {
		parsed, err := url.Parse(origin)
		if err != nil {
			return ""
		}
		return parsed.Hostname()
	}
	// Bare host, possibly with a port or path.
	if idx := strings.IndexAny(origin, "/"); idx >= 0 {
		origin = origin[:idx]
	}
	if idx := strings.LastIndex(origin, ":"); idx >= 0 && !strings.Contains(origin, "]") {
		origin = origin[:idx]
	}
	return origin
}

// domainAllowed tests allow-list membership. A `*.` entry matches the
// suffix itself and any subdomain of it.
func domainAllowed(allowed []string, host string) bool {
	for _, entry := range allowed {
		entry = strings.TrimSpace(strings.ToLower(entry))
		if entry == "" {
			continue
		}
		if wild, ok := strings.CutPrefix(entry, "*."); ok {
			if host == wild || strings.HasSuffix(host, "."+wild) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(strings.ToLower(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func generateTokenSecret(bytes int) (string, error) {
	if bytes <= 0 {
		bytes = 24
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "emb_" + hex.EncodeToString(buf), nil
}

// truncate caps value at max bytes without splitting a multi-byte rune.
func truncate(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
