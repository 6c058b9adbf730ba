package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/store"
	"github.com/shophub/auth/pkg/cryptox"
	"github.com/shophub/auth/pkg/idx"
	"github.com/shophub/auth/pkg/jwtx"
	"github.com/shophub/auth/pkg/slogx"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidRole        = errors.New("invalid_role")
)

// SessionService orchestrates login, logout, refresh rotation and
// registration. It is the only component that writes the account's
// auth-trust fields (failed attempts, lock deadline, admin session marker).
type SessionService struct {
	Codec      *jwtx.Codec
	Store      store.Store
	Lockout    LockoutPolicy
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time

	// VerifyPassword overrides the credential check. Nil means
	// cryptox.VerifyPassword.
	VerifyPassword func(password, encodedHash string) error
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SessionService) verifyPassword(password, encodedHash string) error {
	if s.VerifyPassword != nil {
		return s.VerifyPassword(password, encodedHash)
	}
	return cryptox.VerifyPassword(password, encodedHash)
}

// Register creates a new account with a freshly hashed credential.
func (s *SessionService) Register(
	ctx context.Context,
	name, email, password string,
	role domain.Role,
) (domain.Account, error) {
	if !role.Valid() {
		return domain.Account{}, ErrInvalidRole
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:           idx.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.Store.Accounts().CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, err
	}

	return account, nil
}

// Login verifies credentials and issues a token pair.
//
// Lockout rules: a locked account is rejected before any password
// comparison. An unknown email returns ErrInvalidCredentials without
// touching any counter (there is no account to count against), externally
// indistinguishable from a wrong password. A lapsed lock is cleared before
// the attempt is evaluated, so the account gets a fresh run of attempts.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if account.Locked(now) {
		l.Info("login rejected, account locked",
			slog.String("account_id", account.ID),
			slog.Time("locked_until", *account.LockedUntil))
		return nil, ErrAccountLocked
	}

	// The lock window lapsed; start counting from zero again.
	if account.LockedUntil != nil {
		s.Lockout.Reset(&account)
	}

	if err := s.verifyPassword(password, account.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			return nil, err
		}

		s.Lockout.RecordFailure(&account, now)

		// Persist the counter even though the request fails. Best effort:
		// a write error must not leak a different response shape to the
		// caller, but it is worth a log line.
		if err := s.Store.Accounts().SaveAuthState(ctx, account); err != nil {
			l.Error("failed to persist login failure counter",
				slog.String("account_id", account.ID),
				slog.Any("error", err))
		}

		if account.Locked(now) {
			l.Warn("account locked after repeated failures",
				slog.String("account_id", account.ID),
				slog.Uint64("failed_attempts", uint64(account.FailedLoginAttempts)))
		}
		return nil, ErrInvalidCredentials
	}

	s.Lockout.Reset(&account)

	// A fresh admin login mints a new session marker, which kills every
	// previously issued admin access token for this account on its next
	// authenticated request.
	if account.Role == domain.RoleAdmin {
		account.ActiveAdminSession = uuid.NewString()
	}

	if err := s.Store.Accounts().SaveAuthState(ctx, account); err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(ctx, s.Store, account, now)
	if err != nil {
		return nil, err
	}

	l.Info("login succeeded",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)))
	return pair, nil
}

// Refresh redeems a refresh token and rotates it: the presented token is
// consumed and a brand-new pair is issued. Reuse of an already rotated
// token fails closed with ErrInvalidRefresh, and concurrent redemptions of
// the same token have exactly one winner.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	now := s.now()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefresh
	}
	fingerprint := cryptox.FingerprintToken(refreshToken)

	var pair *domain.TokenPair

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		if record.Expired(now) {
			return ErrInvalidRefresh
		}

		account, err := tx.Accounts().GetAccountByID(ctx, record.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		pair, err = s.issueTokens(ctx, tx, account, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes the presented refresh token. A blank token is a no-op
// success, as is a token that was never stored: logout is idempotent and
// never tells the caller whether the token existed.
//
// Logout is also an invalidation event for the admin session marker: when
// the revoked token belongs to an admin account, the marker is cleared in
// the same transaction, so outstanding admin access tokens stop
// authenticating immediately instead of riding out their natural expiry.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	fingerprint := cryptox.FingerprintToken(refreshToken)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}

		if err := tx.RefreshTokens().DeleteRefreshTokenByHash(ctx, fingerprint); err != nil {
			return err
		}

		account, err := tx.Accounts().GetAccountByID(ctx, record.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		if account.ActiveAdminSession != "" {
			account.ActiveAdminSession = ""
			return tx.Accounts().SaveAuthState(ctx, account)
		}
		return nil
	})
}

// ActiveAdminSession reports the account's live admin session marker. It
// backs the per-request admin token cross-check.
func (s *SessionService) ActiveAdminSession(ctx context.Context, accountID string) (string, bool, error) {
	account, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if account.ActiveAdminSession == "" {
		return "", false, nil
	}
	return account.ActiveAdminSession, true, nil
}

// issueTokens signs a new access token and mints + stores a new opaque
// refresh token for the account. The upsert enforces the
// one-refresh-per-account policy. st is either the root store or an open
// transaction.
func (s *SessionService) issueTokens(
	ctx context.Context,
	st store.Store,
	account domain.Account,
	now time.Time,
) (*domain.TokenPair, error) {
	access, err := s.Codec.Issue(account.ID, string(account.Role), jwtx.KindAccess, s.AccessTTL, account.ActiveAdminSession)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		AccountID: account.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt: now.Add(s.RefreshTTL),
	}
	if err := st.RefreshTokens().UpsertRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}
