package domain

import "time"

// Role is the account's authorization level. There are exactly two: the
// admin branch of request validation adds one extra session check, which is
// handled as an explicit branch rather than a type hierarchy.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Account is a store account as this service sees it: identity, credential
// hash, and the auth-trust fields it owns. Everything else about a customer
// lives with the rest of the shop backend.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // argon2id PHC encoded
	Role         Role

	// FailedLoginAttempts counts consecutive failed logins. Reset to zero on
	// any successful login; mutated only by the session service.
	FailedLoginAttempts uint

	// LockedUntil is set when FailedLoginAttempts reaches the lockout
	// threshold. While in the future, all login attempts are rejected before
	// any password comparison. Nil when the account has never been locked or
	// the lock was cleared.
	LockedUntil *time.Time

	// ActiveAdminSession is the opaque marker of the admin's single live
	// session. Non-empty only for admin accounts with a login newer than the
	// last invalidation. Every admin access token carries a copy; tokens
	// whose copy no longer matches are dead regardless of expiry.
	ActiveAdminSession string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account's lockout window covers now.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
