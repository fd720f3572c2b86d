package model

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Tel          string    `json:"tel,omitempty"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RefreshToken is a stored refresh token. Only the SHA-256 hash of the raw
// token is kept.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Identity is the authenticated caller resolved from an access token.
type Identity struct {
	ID   uint64
	Role string
}

// IsAdmin reports whether the caller has the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
