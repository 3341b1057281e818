package model

import "time"

// User account states.  Inactive users cannot authenticate; deletion is a
// soft transition to inactive.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a row in the `users` table.  Each user has exactly one
// role.  RoleName is populated by the repository via a join with the
// roles table so callers never hand-roll the lookup.  PasswordHash holds
// the bcrypt hash; the plaintext is never stored.
type User struct {
	ID           uint64     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name,omitempty"`
	Status       string     `json:"status"`
	RoleID       uint64     `json:"role_id"`
	RoleName     string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Role represents a row in the `roles` table.  Permissions are attached
// through the role_permissions association table.
type Role struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Permission is an opaque capability token of the form "<verb>:<resource>",
// e.g. "read:stores" or "write:users".
type Permission struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token is stored; the raw value goes back to the
// client once and is never persisted.
//
// A token is usable until it is revoked or its expiry passes, whichever
// comes first.  Expiry is a logical state computed at check time.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
