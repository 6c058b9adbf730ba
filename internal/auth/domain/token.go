package domain

import "time"

// TokenPair is what a successful login or refresh returns: the short-lived
// signed access token plus the opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}

// RefreshToken models the stored refresh credential. Each account owns at
// most one non-revoked record; issuing a new one replaces the old row, so a
// superseded token fails redemption simply by no longer being the stored
// fingerprint.
type RefreshToken struct {
	ID        string
	AccountID string
	TokenHash string // base64url SHA-256 fingerprint of the opaque token
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record's expiry is in the past relative to
// the caller-supplied now.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
