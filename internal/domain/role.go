package domain

// Role is the coarse label an identity resolves to.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleEditor       Role = "EDITOR"
	RoleSupportAgent Role = "SUPPORT_AGENT"
	RoleClient       Role = "CLIENT"
)

// PermissionSet enumerates named capabilities granted by a role.
type PermissionSet struct {
	CanManageUsers          bool
	CanManageStaff          bool
	CanManageContent        bool
	CanViewAllTickets       bool
	CanReplyTickets         bool
	CanManageConversations  bool
	CanDeleteConversations  bool
	CanManageEmbedTokens    bool
	CanAttendMeetings       bool
	CanCreateTickets        bool
	CanViewOwnTickets       bool
}

// roleRegistry is the single definition of role → permissions. Call sites
// must go through PermissionsFor rather than rebuilding subsets ad hoc.
var roleRegistry = map[Role]PermissionSet{
	RoleAdmin: {
		CanManageUsers:         true,
		CanManageStaff:         true,
		CanManageContent:       true,
		CanViewAllTickets:      true,
		CanReplyTickets:        true,
		CanManageConversations: true,
		CanDeleteConversations: true,
		CanManageEmbedTokens:   true,
		CanAttendMeetings:      true,
		CanCreateTickets:       true,
		CanViewOwnTickets:      true,
	},
	RoleEditor: {
		CanManageContent: true,
	},
	RoleSupportAgent: {
		CanViewAllTickets:      true,
		CanReplyTickets:        true,
		CanManageConversations: true,
		CanAttendMeetings:      true,
		CanViewOwnTickets:      true,
	},
	RoleClient: {
		CanCreateTickets:  true,
		CanViewOwnTickets: true,
	},
}

// PermissionsFor returns the static permission set for a role. Unknown
// roles yield the zero set.
func PermissionsFor(role Role) PermissionSet {
	return roleRegistry[role]
}

// ValidRole reports whether the role is part of the registry.
func ValidRole(role Role) bool {
	_, ok := roleRegistry[role]
	return ok
}

// EffectivePermissions narrows a role's permission set by a staff record's
// capability flags. The flags are the source of truth for staff; the role
// only grants the ceiling.
func EffectivePermissions(role Role, staff *StaffMember) PermissionSet {
	perms := PermissionsFor(role)
	if staff == nil {
		return perms
	}
	if !staff.CanReplyTickets {
		perms.CanReplyTickets = false
	}
	if !staff.CanManageContent {
		perms.CanManageContent = false
	}
	if !staff.CanAttendMeetings {
		perms.CanAttendMeetings = false
	}
	return perms
}
