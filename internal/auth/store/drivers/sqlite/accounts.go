package sqlite

import (
	"context"
	"database/sql"

	"github.com/shophub/auth/internal/auth/domain"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, name, email, password_hash, role, failed_attempts,
	locked_until, active_admin_session, created_at, updated_at`

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role),
	)
	if err != nil {
		return mapConflict(err)
	}
	return nil
}

func (r *accountsRepo) SaveAuthState(ctx context.Context, a domain.Account) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET failed_attempts = ?,
		    locked_until = ?,
		    active_admin_session = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		a.FailedLoginAttempts,
		mapOptionalTime(a.LockedUntil),
		mapStringNull(a.ActiveAdminSession),
		a.ID,
	)
	return err
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	return err
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var (
		a           domain.Account
		role        string
		lockedUntil sql.NullTime
		session     sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role,
		&a.FailedLoginAttempts, &lockedUntil, &session,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.Role = domain.Role(role)
	a.LockedUntil = mapNullTimePtr(lockedUntil)
	a.ActiveAdminSession = mapNullString(session)
	return a, nil
}
