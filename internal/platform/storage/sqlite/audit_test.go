package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"keeper/internal/contracts/audit"
	"keeper/internal/domain"
)

func writeAudit(t *testing.T, db *sql.DB, userID int, action string, performedBy int) {
	t.Helper()
	entry := domain.AuditLog{UserID: userID, ActionType: action, Details: action}
	if performedBy > 0 {
		entry.PerformedBy = sql.NullInt64{Int64: int64(performedBy), Valid: true}
	}
	if _, err := WriteAuditLog(context.Background(), db, entry); err != nil {
		t.Fatalf("write audit log: %v", err)
	}
}

func TestAuditJoinsSurviveUserDeletion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO user (id, email, role, password_hash, totp_secret, created_at) VALUES (11, 'subject@example.com', 'member', 'h', 's', '2026-01-01T00:00:00Z'), (12, 'actor@example.com', 'admin', 'h', 's', '2026-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert users: %v", err)
	}
	writeAudit(t, db, 11, domain.ActionRoleChanged, 12)
	if err := DeleteUser(ctx, db, 12); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	logs, err := ListRecentAuditLogs(ctx, db, audit.Query{Limit: 10})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(logs))
	}
	if logs[0].User == nil || logs[0].User.Email != "subject@example.com" {
		t.Fatalf("expected subject to be joined, got %+v", logs[0].User)
	}
	if logs[0].Performer != nil {
		t.Fatalf("expected dangling performer to resolve to nil, got %+v", logs[0].Performer)
	}
	if !logs[0].PerformedBy.Valid || logs[0].PerformedBy.Int64 != 12 {
		t.Fatalf("expected performer reference to be kept, got %+v", logs[0].PerformedBy)
	}
}

func TestAuditCreatedAtIsStrictlyIncreasing(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 20; i++ {
		writeAudit(t, db, 1, "tick", 0)
	}
	logs, err := ListAllAuditLogs(context.Background(), db)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	for i := 1; i < len(logs); i++ {
		if !logs[i].CreatedAt.After(logs[i-1].CreatedAt) {
			t.Fatalf("entry %d not after entry %d: %s vs %s", i, i-1, logs[i].CreatedAt, logs[i-1].CreatedAt)
		}
	}
}

func TestListRecentAuditLogsLimitsBeforeFiltering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	// oldest three are the only "match" entries
	for i := 0; i < 3; i++ {
		writeAudit(t, db, 1, "match", 0)
	}
	for i := 0; i < 5; i++ {
		writeAudit(t, db, 1, fmt.Sprintf("other-%d", i), 0)
	}

	logs, err := ListRecentAuditLogs(ctx, db, audit.Query{Limit: 5, ActionType: "match"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected filter to apply within the 5 most recent only, got %d", len(logs))
	}

	logs, err = ListRecentAuditLogs(ctx, db, audit.Query{Limit: 6, ActionType: "match"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly the newest match inside the window, got %d", len(logs))
	}
}

func TestListRecentAuditLogsFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	writeAudit(t, db, 1, "a", 0)
	writeAudit(t, db, 2, "a", 0)
	writeAudit(t, db, 2, "b", 0)

	logs, err := ListRecentAuditLogs(ctx, db, audit.Query{UserID: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 || logs[0].ActionType != "b" {
		t.Fatalf("expected newest-first entries for user 2, got %+v", logs)
	}

	logs, err = ListRecentAuditLogs(ctx, db, audit.Query{UserID: 2, ActionType: "a"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected conjunctive filters, got %d", len(logs))
	}

	logs, err = ListRecentAuditLogs(ctx, db, audit.Query{Since: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected nothing after a future cutoff, got %d", len(logs))
	}
}

func TestDeleteAllAuditLogs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	writeAudit(t, db, 1, "a", 0)
	writeAudit(t, db, 1, "b", 0)

	n, err := DeleteAllAuditLogs(ctx, db)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	count, err := CountAuditLogs(ctx, db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty log, got %d", count)
	}
}
