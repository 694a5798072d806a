package audit

import (
	"context"
	"time"

	"keeper/internal/domain"
)

// Query bounds a read of the most recent audit entries.
// Limit is applied to the newest rows before any other condition.
type Query struct {
	Limit      int
	ActionType string
	UserID     int
	Since      time.Time
}

// Repository defines persistence operations for audit logs.
type Repository interface {
	WriteAuditLog(ctx context.Context, entry domain.AuditLog) (int64, error)
	ListRecentAuditLogs(ctx context.Context, query Query) ([]domain.AuditLogView, error)
	ListAllAuditLogs(ctx context.Context) ([]domain.AuditLogView, error)
	CountAuditLogs(ctx context.Context) (int, error)
	DeleteAllAuditLogs(ctx context.Context) (int, error)
}
