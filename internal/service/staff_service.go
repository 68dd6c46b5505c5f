package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// StaffService manages staff records and their capability flags.
type StaffService struct {
	staff repository.StaffRepository
}

// NewStaffService constructs the service.
func NewStaffService(staff repository.StaffRepository) *StaffService {
	return &StaffService{staff: staff}
}

// StaffInput describes staff creation and update fields.
type StaffInput struct {
	UserID            *string
	FullName          string
	Email             string
	IsActive          bool
	CanReplyTickets   bool
	CanManageContent  bool
	CanAttendMeetings bool
}

// CreateStaff adds a staff member.
func (s *StaffService) CreateStaff(ctx context.Context, perms domain.PermissionSet, input StaffInput) (*domain.StaffMember, error) {
	if !perms.CanManageStaff {
		return nil, apperrors.NewForbidden("not authorized")
	}
	name := strings.TrimSpace(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("full name and email required", nil)
	}
	member := &domain.StaffMember{
		UserID:            input.UserID,
		FullName:          name,
		Email:             email,
		IsActive:          input.IsActive,
		CanReplyTickets:   input.CanReplyTickets,
		CanManageContent:  input.CanManageContent,
		CanAttendMeetings: input.CanAttendMeetings,
	}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// UpdateStaff edits a staff member, including the capability flags.
func (s *StaffService) UpdateStaff(ctx context.Context, perms domain.PermissionSet, staffID string, input StaffInput) (*domain.StaffMember, error) {
	if !perms.CanManageStaff {
		return nil, apperrors.NewForbidden("not authorized")
	}
	member, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	if name := strings.TrimSpace(input.FullName); name != "" {
		member.FullName = name
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
		member.Email = email
	}
	member.UserID = input.UserID
	member.IsActive = input.IsActive
	member.CanReplyTickets = input.CanReplyTickets
	member.CanManageContent = input.CanManageContent
	member.CanAttendMeetings = input.CanAttendMeetings
	if err := s.staff.Update(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// ListStaff returns staff records.
func (s *StaffService) ListStaff(ctx context.Context, perms domain.PermissionSet, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	if !perms.CanManageStaff && !perms.CanViewAllTickets {
		return nil, apperrors.NewForbidden("not authorized")
	}
	members, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}
