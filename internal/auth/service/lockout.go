package service

import (
	"time"

	"github.com/shophub/auth/internal/auth/domain"
)

const (
	// DefaultLockoutThreshold is the number of consecutive failed logins
	// that locks an account.
	DefaultLockoutThreshold = 5

	// DefaultLockoutWindow is how long a locked account stays locked.
	DefaultLockoutWindow = 15 * time.Minute
)

// LockoutPolicy decides when repeated credential failures lock an account
// out. It is pure bookkeeping over the account's auth fields; persisting the
// mutated account is the caller's job.
type LockoutPolicy struct {
	Threshold uint
	Window    time.Duration
}

// DefaultLockoutPolicy returns the stock 5-failures / 15-minute policy.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: DefaultLockoutThreshold,
		Window:    DefaultLockoutWindow,
	}
}

// RecordFailure bumps the failed-attempt counter and sets the lock deadline
// once the threshold is reached. Counting continues past the threshold; the
// caller short-circuits locked accounts before ever calling this, so extra
// increments only happen if the window lapsed between check and record.
func (p LockoutPolicy) RecordFailure(a *domain.Account, now time.Time) {
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts >= p.Threshold {
		until := now.Add(p.Window)
		a.LockedUntil = &until
	}
}

// Reset clears the counter and any lock. Called on successful login and
// when a lapsed lock is observed.
func (p LockoutPolicy) Reset(a *domain.Account) {
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
}
