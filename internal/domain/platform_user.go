package domain

import "time"

// PlatformUser is the credential-bearing account for administrators,
// editors and staff logins. Clients authenticate through ClientAccount.
type PlatformUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRoleAssignment links a platform user to a platform role. Absence of
// a row means "no role"; the admin role-change flow deletes then inserts
// so that state stays representable.
type UserRoleAssignment struct {
	UserID    string
	Role      Role
	CreatedAt time.Time
}
