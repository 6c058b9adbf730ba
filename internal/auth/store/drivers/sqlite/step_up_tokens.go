package sqlite

import (
	"context"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/store"
)

type stepUpTokensRepo struct {
	db dbtx
}

func (r *stepUpTokensRepo) CreateStepUpToken(ctx context.Context, t domain.StepUpToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO step_up_tokens (id, issuer_id, action, expires_at, used)
		VALUES (?, ?, ?, ?, FALSE)`,
		t.ID, t.IssuerID, t.Action, t.ExpiresAt,
	)
	if err != nil {
		return mapConflict(err)
	}
	return nil
}

func (r *stepUpTokensRepo) GetStepUpToken(ctx context.Context, id string) (domain.StepUpToken, error) {
	var t domain.StepUpToken
	err := r.db.QueryRowContext(ctx, `
		SELECT id, issuer_id, action, expires_at, used, created_at
		FROM step_up_tokens WHERE id = ?`, id,
	).Scan(&t.ID, &t.IssuerID, &t.Action, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		return domain.StepUpToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *stepUpTokensRepo) MarkStepUpTokenUsed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE step_up_tokens SET used = TRUE
		WHERE id = ? AND used = FALSE`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *stepUpTokensRepo) DeleteExpiredStepUpTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM step_up_tokens WHERE expires_at < CURRENT_TIMESTAMP`)
	return err
}
