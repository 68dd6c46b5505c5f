package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsForReturnsCopies(t *testing.T) {
	perms := PermissionsFor(RoleAdmin)
	perms.CanManageUsers = false

	// Mutating a returned set must not leak back into the registry.
	assert.True(t, PermissionsFor(RoleAdmin).CanManageUsers)
}

func TestPermissionsForUnknownRoleIsZero(t *testing.T) {
	assert.Equal(t, PermissionSet{}, PermissionsFor(Role("SUPERUSER")))
}

func TestValidRole(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleEditor, RoleSupportAgent, RoleClient} {
		assert.True(t, ValidRole(role), "role %s", role)
	}
	assert.False(t, ValidRole(Role("")))
	assert.False(t, ValidRole(Role("GUEST")))
}

func TestRoleGrants(t *testing.T) {
	admin := PermissionsFor(RoleAdmin)
	assert.True(t, admin.CanManageUsers)
	assert.True(t, admin.CanDeleteConversations)
	assert.True(t, admin.CanManageEmbedTokens)

	editor := PermissionsFor(RoleEditor)
	assert.True(t, editor.CanManageContent)
	assert.False(t, editor.CanViewAllTickets)
	assert.False(t, editor.CanManageUsers)

	agent := PermissionsFor(RoleSupportAgent)
	assert.True(t, agent.CanViewAllTickets)
	assert.True(t, agent.CanManageConversations)
	assert.False(t, agent.CanDeleteConversations)
	assert.False(t, agent.CanManageUsers)

	client := PermissionsFor(RoleClient)
	assert.True(t, client.CanCreateTickets)
	assert.True(t, client.CanViewOwnTickets)
	assert.False(t, client.CanViewAllTickets)
}

func TestEffectivePermissionsNarrowsByFlags(t *testing.T) {
	staff := &StaffMember{
		CanReplyTickets:   false,
		CanManageContent:  false,
		CanAttendMeetings: true,
	}
	perms := EffectivePermissions(RoleSupportAgent, staff)

	assert.False(t, perms.CanReplyTickets, "flag off removes the grant")
	assert.True(t, perms.CanAttendMeetings)
	assert.True(t, perms.CanViewAllTickets, "non-flag permissions keep the role ceiling")
}

func TestEffectivePermissionsNeverWidens(t *testing.T) {
	// An editor with the reply flag set does not gain ticket access; the
	// role is the ceiling.
	staff := &StaffMember{CanReplyTickets: true, CanManageContent: true}
	perms := EffectivePermissions(RoleEditor, staff)

	assert.False(t, perms.CanReplyTickets)
	assert.True(t, perms.CanManageContent)
}

func TestEffectivePermissionsNilStaff(t *testing.T) {
	assert.Equal(t, PermissionsFor(RoleAdmin), EffectivePermissions(RoleAdmin, nil))
}
