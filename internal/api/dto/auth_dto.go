package dto

import "time"

// LoginRequest is shared by the user and client login endpoints.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries an issued session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Subject   string    `json:"subject"`
	SubjectID string    `json:"subject_id"`
}

// RegisterUserRequest creates a platform user credential.
type RegisterUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangeRoleRequest assigns or clears a platform user's role. An empty
// NewRole clears the assignment.
type ChangeRoleRequest struct {
	UserID  string `json:"userId"`
	NewRole string `json:"newRole"`
}
