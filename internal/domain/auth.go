package domain

import "time"

// SubjectType differentiates credential stores behind a session token.
// Platform users (admins, editors, staff logins) and client accounts
// authenticate against separate tables.
type SubjectType string

const (
	SubjectTypeUser   SubjectType = "USER"
	SubjectTypeClient SubjectType = "CLIENT"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	ExpiresAt time.Time
	IssuedAt  time.Time
}
