package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// Audit issue codes.
const (
	IssueNoLinkedIdentity = "NO_LINKED_IDENTITY"
	IssueRoleOutOfSpace   = "ROLE_OUT_OF_SPACE"
	IssueNoCapabilities   = "NO_CAPABILITIES"
	IssueAgentCannotAct   = "AGENT_CANNOT_ACT"
	IssueEditorCannotEdit = "EDITOR_CANNOT_EDIT"
	IssueInactiveWithRole = "INACTIVE_WITH_ROLE"
)

// StaffAuditEntry pairs a staff record with its resolved role, if any.
type StaffAuditEntry struct {
	Staff domain.StaffMember
	Role  *domain.Role
}

// AuditStaff cross-checks staff records against their resolved roles and
// capability flags. Stateless and side-effect free; safe to run
// repeatedly. Findings are advisory: correction is a separate explicit
// administrative action.
func AuditStaff(entries []StaffAuditEntry) []domain.AuditIssue {
	var issues []domain.AuditIssue
	add := func(staff domain.StaffMember, severity domain.IssueSeverity, code, message string) {
		issues = append(issues, domain.AuditIssue{
			StaffID:   staff.ID,
			StaffName: staff.FullName,
			Severity:  severity,
			Code:      code,
			Message:   message,
		})
	}

	for _, entry := range entries {
		staff := entry.Staff

		if staff.UserID == nil {
			add(staff, domain.SeverityError, IssueNoLinkedIdentity,
				"staff member has no linked identity and cannot authenticate")
		}
		if entry.Role == nil {
			continue
		}
		role := *entry.Role

		if role != domain.RoleSupportAgent && role != domain.RoleAdmin && role != domain.RoleEditor {
			add(staff, domain.SeverityError, IssueRoleOutOfSpace,
				"resolved role is outside the staff role space")
		}
		if !staff.IsActive {
			add(staff, domain.SeverityWarning, IssueInactiveWithRole,
				"staff member is inactive but still holds a role")
		}

		switch role {
		case domain.RoleSupportAgent:
			if !staff.CanReplyTickets && !staff.CanAttendMeetings {
				add(staff, domain.SeverityWarning, IssueAgentCannotAct,
					"support agent can neither reply to tickets nor attend meetings")
				continue
			}
		case domain.RoleEditor:
			if !staff.CanManageContent {
				add(staff, domain.SeverityWarning, IssueEditorCannotEdit,
					"editor role without the content management flag")
				continue
			}
		}
		if !staff.HasAnyCapability() {
			add(staff, domain.SeverityWarning, IssueNoCapabilities,
				"role grants access but no capability flag is set")
		}
	}
	return issues
}

// AuditService loads staff records, resolves their roles and runs the
// consistency audit.
type AuditService struct {
	staff repository.StaffRepository
	roles repository.UserRoleRepository
}

// NewAuditService constructs the service.
func NewAuditService(staff repository.StaffRepository, roles repository.UserRoleRepository) *AuditService {
	return &AuditService{staff: staff, roles: roles}
}

// Run audits all staff members and returns the findings.
func (s *AuditService) Run(ctx context.Context) ([]domain.AuditIssue, error) {
	members, err := s.staff.List(ctx, repository.StaffFilter{Limit: 1000})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	entries := make([]StaffAuditEntry, 0, len(members))
	for _, member := range members {
		entry := StaffAuditEntry{Staff: member}
		if member.UserID != nil {
			role, err := s.roles.GetRole(ctx, *member.UserID)
			switch {
			case err == nil:
				entry.Role = &role
			case errors.Is(err, pgx.ErrNoRows):
				// No platform role row: a linked staff login resolves
				// to the agent role through the identity chain.
				agent := domain.RoleSupportAgent
				entry.Role = &agent
			default:
				return nil, apperrors.MapError(err)
			}
		}
		entries = append(entries, entry)
	}
	return AuditStaff(entries), nil
}
