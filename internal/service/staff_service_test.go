package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

func TestCreateStaffNormalizesInput(t *testing.T) {
	svc := NewStaffService(newFakeStaffRepo())

	member, err := svc.CreateStaff(context.Background(), adminPerms(), StaffInput{
		FullName:        "  Jordan Miles ",
		Email:           " Jordan@Example.COM ",
		IsActive:        true,
		CanReplyTickets: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jordan Miles", member.FullName)
	assert.Equal(t, "jordan@example.com", member.Email)
	assert.NotEmpty(t, member.ID)
}

func TestCreateStaffRequiresNameAndEmail(t *testing.T) {
	svc := NewStaffService(newFakeStaffRepo())

	_, err := svc.CreateStaff(context.Background(), adminPerms(), StaffInput{FullName: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateStaffRequiresManagePermission(t *testing.T) {
	svc := NewStaffService(newFakeStaffRepo())

	_, err := svc.CreateStaff(context.Background(), agentPerms(), StaffInput{
		FullName: "Jordan Miles",
		Email:    "jordan@example.com",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestUpdateStaffTogglesCapabilityFlags(t *testing.T) {
	repo := newFakeStaffRepo()
	svc := NewStaffService(repo)

	member, err := svc.CreateStaff(context.Background(), adminPerms(), StaffInput{
		FullName:        "Jordan Miles",
		Email:           "jordan@example.com",
		IsActive:        true,
		CanReplyTickets: true,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStaff(context.Background(), adminPerms(), member.ID, StaffInput{
		IsActive:          true,
		CanReplyTickets:   false,
		CanManageContent:  true,
		CanAttendMeetings: true,
	})
	require.NoError(t, err)
	assert.False(t, updated.CanReplyTickets)
	assert.True(t, updated.CanManageContent)
	assert.True(t, updated.CanAttendMeetings)
	// blank name and email keep the stored values
	assert.Equal(t, "Jordan Miles", updated.FullName)
	assert.Equal(t, "jordan@example.com", updated.Email)
}

func TestUpdateStaffUnknownID(t *testing.T) {
	svc := NewStaffService(newFakeStaffRepo())

	_, err := svc.UpdateStaff(context.Background(), adminPerms(), "missing", StaffInput{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListStaffFiltersByActive(t *testing.T) {
	repo := newFakeStaffRepo()
	svc := NewStaffService(repo)

	_, err := svc.CreateStaff(context.Background(), adminPerms(), StaffInput{
		FullName: "Active One", Email: "a@example.com", IsActive: true,
	})
	require.NoError(t, err)
	_, err = svc.CreateStaff(context.Background(), adminPerms(), StaffInput{
		FullName: "Inactive One", Email: "b@example.com",
	})
	require.NoError(t, err)

	active := true
	members, err := svc.ListStaff(context.Background(), adminPerms(), repository.StaffFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Active One", members[0].FullName)
}

func TestListStaffDeniedForClients(t *testing.T) {
	svc := NewStaffService(newFakeStaffRepo())

	_, err := svc.ListStaff(context.Background(), domain.PermissionsFor(domain.RoleClient), repository.StaffFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}
