package sqlite

import (
	"context"
	"database/sql"

	"github.com/shophub/auth/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshColumns = `id, account_id, token_hash, expires_at, revoked, created_at, updated_at`

func (r *refreshTokensRepo) UpsertRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	// One row per account: a new login or a rotation replaces whatever
	// record the account had before.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, account_id, token_hash, expires_at, revoked)
		VALUES (?, ?, ?, ?, FALSE)
		ON CONFLICT (account_id) DO UPDATE SET
			id = excluded.id,
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at,
			revoked = FALSE,
			updated_at = CURRENT_TIMESTAMP`,
		t.ID, t.AccountID, t.TokenHash, t.ExpiresAt,
	)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refreshColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) ConsumeRefreshToken(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	// Conditional revoke: the RETURNING row only comes back for the caller
	// whose UPDATE actually flipped the flag, so concurrent redemptions of
	// the same token produce exactly one winner.
	row := r.db.QueryRowContext(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE token_hash = ? AND revoked = FALSE
		RETURNING `+refreshColumns,
		hash,
	)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) DeleteRefreshTokenByHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ?`, hash)
	return err
}

func (r *refreshTokensRepo) DeleteRefreshTokensByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE account_id = ?`, accountID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < CURRENT_TIMESTAMP`)
	return err
}

func scanRefreshToken(row *sql.Row) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := row.Scan(
		&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt,
		&t.Revoked, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}
