package sqlite

import (
	"context"

	"github.com/shophub/auth/internal/auth/domain"
)

type auditLogRepo struct {
	db dbtx
}

func (r *auditLogRepo) AppendAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, resource, source_addr)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ActorID, e.Action, e.Resource, e.SourceAddr,
	)
	return err
}

func (r *auditLogRepo) ListRecentAuditEntries(
	ctx context.Context,
	limit int,
) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_id, action, resource, source_addr, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Resource, &e.SourceAddr, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
