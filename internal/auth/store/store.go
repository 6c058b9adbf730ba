package store

import (
	"context"
	"errors"

	"github.com/shophub/auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy; services never write
// a refresh row or account auth field except through these operations.
type Store interface {
	Accounts() Accounts
	RefreshTokens() RefreshTokens
	StepUpTokens() StepUpTokens
	AuditLog() AuditLog

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back when fn errors
	// and committing otherwise. Multi-step operations that must be atomic
	// (step-up redemption, refresh rotation) go through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// GetAccountByEmail is the login-path lookup.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// CreateAccount inserts a new account (id provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	// SaveAuthState persists the auth-trust fields (failed attempt counter,
	// lockout deadline, admin session marker) and bumps updated_at. Other
	// account fields are untouched.
	SaveAuthState(ctx context.Context, a domain.Account) error

	// DeleteAccount cascades to refresh tokens (per schema).
	DeleteAccount(ctx context.Context, id string) error
}

type RefreshTokens interface {
	// UpsertRefreshToken stores a refresh record, replacing any existing row
	// for the same account. The single-refresh-per-account policy lives
	// here: the superseded fingerprint simply stops existing.
	UpsertRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by token fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken atomically revokes and returns the record,
	// conditional on it not being revoked already. Under concurrent
	// redemption of the same token exactly one caller gets the record; the
	// rest get ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshTokenByHash removes the record if present. Deleting a
	// fingerprint that does not exist is not an error (idempotent logout).
	DeleteRefreshTokenByHash(ctx context.Context, hash string) error

	// DeleteRefreshTokensByAccount removes the account's record outright
	// (account deletion, server-initiated revoke).
	DeleteRefreshTokensByAccount(ctx context.Context, accountID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type StepUpTokens interface {
	// CreateStepUpToken stores a freshly minted confirmation token.
	CreateStepUpToken(ctx context.Context, t domain.StepUpToken) error

	// GetStepUpToken fetches a token by id regardless of state; the service
	// decides which failure to report.
	GetStepUpToken(ctx context.Context, id string) (domain.StepUpToken, error)

	// MarkStepUpTokenUsed flips used, conditional on the token being
	// unused. ErrNotFound when the token is missing or already consumed, so
	// a double redemption always loses.
	MarkStepUpTokenUsed(ctx context.Context, id string) error

	// DeleteExpiredStepUpTokens is housekeeping.
	DeleteExpiredStepUpTokens(ctx context.Context) error
}

type AuditLog interface {
	// AppendAuditEntry writes one audit row.
	AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error

	// ListRecentAuditEntries returns the newest entries, most recent first.
	ListRecentAuditEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
