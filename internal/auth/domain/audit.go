package domain

import "time"

// AuditEntry records an admin-relevant action. Writing one is fire and
// forget; an audit failure never changes the outcome of the action itself.
type AuditEntry struct {
	ID         string
	ActorID    string
	Action     string
	Resource   string
	SourceAddr string
	CreatedAt  time.Time
}
