package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// HasPermission reports whether r satisfies the minimum required role.
func (r Role) HasPermission(min Role) bool {
	if min == RoleAdmin {
		return r == RoleAdmin
	}
	return r.IsValid()
}

// User is an account keyed by username. PasswordHash is a bcrypt hash;
// plaintext passwords are never persisted. The hash travels with the
// persisted snapshot, so HTTP handlers must respond with DTOs, never
// with this struct directly.
type User struct {
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
