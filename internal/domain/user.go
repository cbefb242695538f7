package domain

import (
	"time"
)

// Role constants define the allowed user roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered account: the credential record read at login.
// Email comparison is case-sensitive and the email column is unique.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public-facing data attached to a user account.
type Profile struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	AvatarURL      string    `json:"avatar_url"`
	Points         int       `json:"points"`
	Bio            string    `json:"bio"`
	SkillsCanHelp  []string  `json:"skills_can_help"`
	SkillsNeedHelp []string  `json:"skills_need_help"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StartingPoints is the point balance granted to every new profile.
const StartingPoints = 10

// RefreshToken is a stored refresh token record. Only the SHA-256 digest of
// the raw token is persisted; rotation flips RevokedAt on the old record and
// inserts a new one, so revoked rows accumulate as an audit trail and allow
// reuse detection.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the token has been revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token is expired at the given instant.
// Expiry is exclusive: a token presented exactly at ExpiresAt is invalid.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenPair holds a freshly minted access token and the raw refresh token.
// The raw refresh value exists only here and in the client cookie; it is
// never persisted or returned in a JSON body.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
