package domain

import "time"

// Role is the authorization level carried in every token.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleUser:
		return true
	}
	return false
}

// IdentityKind differentiates single-password sessions from user-record sessions.
type IdentityKind string

const (
	IdentityLocal IdentityKind = "local"
	IdentityDB    IdentityKind = "db"
)

// Identity is the claim embedded in access and refresh tokens. Username is empty only for
// local identities.
type Identity struct {
	Username string
	Role     Role
	Kind     IdentityKind
}

// Local reports whether the identity came from single-password login.
func (i Identity) Local() bool {
	return i.Kind == IdentityLocal
}

// RefreshRecord is the server-side entry that keeps a refresh token honorable.
type RefreshRecord struct {
	Token     string
	Identity  Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r RefreshRecord) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// Remaining returns the lifetime left at now.
func (r RefreshRecord) Remaining(now time.Time) time.Duration {
	return r.ExpiresAt.Sub(now)
}
