package service

import (
	"context"
	"log/slog"

	"github.com/shophub/auth/internal/auth/domain"
	"github.com/shophub/auth/internal/auth/store"
	"github.com/shophub/auth/pkg/idx"
	"github.com/shophub/auth/pkg/slogx"
)

// AuditService records privileged actions. Recording is deliberately
// best-effort: a failed audit write is logged but never fails the operation
// being audited.
type AuditService struct {
	Store store.Store
}

// Record appends one audit entry.
func (s *AuditService) Record(ctx context.Context, actorID, action, resource, sourceAddr string) {
	entry := domain.AuditEntry{
		ID:         idx.New().String(),
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		SourceAddr: sourceAddr,
	}
	if err := s.Store.AuditLog().AppendAuditEntry(ctx, entry); err != nil {
		slogx.FromContext(ctx).Error("failed to append audit entry",
			slog.String("action", action),
			slog.Any("error", err))
	}
}

// List returns the most recent audit entries, newest first.
func (s *AuditService) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Store.AuditLog().ListRecentAuditEntries(ctx, limit)
}
