package dto

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// StaffRequest covers staff creation and updates.
type StaffRequest struct {
	UserID            *string `json:"user_id"`
	FullName          string  `json:"full_name"`
	Email             string  `json:"email"`
	IsActive          bool    `json:"is_active"`
	CanReplyTickets   bool    `json:"can_reply_tickets"`
	CanManageContent  bool    `json:"can_manage_content"`
	CanAttendMeetings bool    `json:"can_attend_meetings"`
}

// StaffResponse is the API representation of a staff member.
type StaffResponse struct {
	ID                string    `json:"id"`
	UserID            *string   `json:"user_id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	IsActive          bool      `json:"is_active"`
	CanReplyTickets   bool      `json:"can_reply_tickets"`
	CanManageContent  bool      `json:"can_manage_content"`
	CanAttendMeetings bool      `json:"can_attend_meetings"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// StaffFromDomain maps a staff member to its response shape.
func StaffFromDomain(member *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:                member.ID,
		UserID:            member.UserID,
		FullName:          member.FullName,
		Email:             member.Email,
		IsActive:          member.IsActive,
		CanReplyTickets:   member.CanReplyTickets,
		CanManageContent:  member.CanManageContent,
		CanAttendMeetings: member.CanAttendMeetings,
		CreatedAt:         member.CreatedAt,
		UpdatedAt:         member.UpdatedAt,
	}
}

// AuditIssueResponse is one consistency audit finding.
type AuditIssueResponse struct {
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name"`
	Severity  string `json:"severity"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// AuditReportResponse wraps a full audit run.
type AuditReportResponse struct {
	Issues   []AuditIssueResponse `json:"issues"`
	Errors   int                  `json:"errors"`
	Warnings int                  `json:"warnings"`
}

// AuditReportFromDomain maps audit findings to the response shape.
func AuditReportFromDomain(issues []domain.AuditIssue) AuditReportResponse {
	out := AuditReportResponse{Issues: make([]AuditIssueResponse, 0, len(issues))}
	for _, issue := range issues {
		out.Issues = append(out.Issues, AuditIssueResponse{
			StaffID:   issue.StaffID,
			StaffName: issue.StaffName,
			Severity:  string(issue.Severity),
			Code:      issue.Code,
			Message:   issue.Message,
		})
		switch issue.Severity {
		case domain.SeverityError:
			out.Errors++
		case domain.SeverityWarning:
			out.Warnings++
		}
	}
	return out
}
