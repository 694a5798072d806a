package maintenance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"keeper/internal/contracts"
	auditstore "keeper/internal/contracts/audit"
	"keeper/internal/domain"
	kt "keeper/internal/testutil"
)

func seedSession(t *testing.T, repos contracts.Repos, id string, userID int) {
	t.Helper()
	now := time.Now()
	if err := repos.Sessions.CreateSession(context.Background(), domain.Session{ID: id, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("seed session %s: %v", id, err)
	}
}

func TestRunRemovesOnlyDanglingSessions(t *testing.T) {
	repos := kt.NewRepos(t)
	ctx := context.Background()
	admin := kt.SeedUser(t, repos, "admin@example.com", domain.RoleAdmin)
	member := kt.SeedUser(t, repos, "member@example.com", domain.RoleMember)

	for i := 0; i < 5; i++ {
		owner := admin.Subject
		if i%2 == 1 {
			owner = member.Subject
		}
		seedSession(t, repos, fmt.Sprintf("valid-%d", i), owner)
	}
	seedSession(t, repos, "dangling-1", 9001)
	seedSession(t, repos, "dangling-2", 9002)

	removed, err := NewReconciler(repos, nil, nil).Run(ctx, admin)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	left, err := repos.Sessions.ListAllSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(left) != 5 {
		t.Fatalf("expected 5 sessions left, got %d", len(left))
	}

	logs, err := repos.Audit.ListRecentAuditLogs(ctx, auditstore.Query{})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(logs))
	}
	entry := logs[0]
	if entry.ActionType != domain.ActionAuthCleanup || !strings.Contains(entry.Details, "2") {
		t.Fatalf("unexpected audit entry: %+v", entry.AuditLog)
	}
	if entry.UserID != admin.Subject || int(entry.PerformedBy.Int64) != admin.Subject {
		t.Fatalf("audit entry should name the admin, got %+v", entry.AuditLog)
	}
}

func TestRunRemovesPasskeysOfDeletedUsers(t *testing.T) {
	repos := kt.NewRepos(t)
	ctx := context.Background()
	admin := kt.SeedUser(t, repos, "admin@example.com", domain.RoleAdmin)
	gone := kt.SeedUser(t, repos, "gone@example.com", domain.RoleMember)

	for i, owner := range []int{admin.Subject, gone.Subject, gone.Subject} {
		cred := webauthn.Credential{ID: []byte(fmt.Sprintf("cred-%d", i)), PublicKey: []byte("pk")}
		if err := repos.Passkeys.InsertPasskey(ctx, owner, fmt.Sprintf("key %d", i), cred); err != nil {
			t.Fatalf("insert passkey: %v", err)
		}
	}
	seedSession(t, repos, "gone-session", gone.Subject)
	if err := repos.Users.DeleteUser(ctx, gone.Subject); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	removed, err := NewReconciler(repos, nil, nil).Run(ctx, admin)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	left, err := repos.Passkeys.ListAllPasskeys(ctx)
	if err != nil {
		t.Fatalf("list passkeys: %v", err)
	}
	if len(left) != 1 || left[0].UserID != admin.Subject {
		t.Fatalf("expected only the admin passkey left, got %+v", left)
	}
	logs, err := repos.Audit.ListRecentAuditLogs(ctx, auditstore.Query{Limit: 1})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	want := "Removed 3 orphaned auth records (1 sessions, 2 credentials)"
	if len(logs) != 1 || logs[0].Details != want {
		t.Fatalf("expected details %q, got %+v", want, logs)
	}

	removed, err = NewReconciler(repos, nil, nil).Run(ctx, admin)
	if err != nil || removed != 0 {
		t.Fatalf("second run: removed=%d err=%v", removed, err)
	}
}

func TestRunRequiresAdmin(t *testing.T) {
	repos := kt.NewRepos(t)
	member := kt.SeedUser(t, repos, "member@example.com", domain.RoleMember)
	seedSession(t, repos, "dangling", 77)

	if _, err := NewReconciler(repos, nil, nil).Run(context.Background(), member); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	left, err := repos.Sessions.ListAllSessions(context.Background())
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(left) != 1 {
		t.Fatalf("forbidden run must not delete anything")
	}
}

func TestAuthCleanupHandler(t *testing.T) {
	srv := kt.NewServer(t)
	repos := srv.Repos()
	mux := http.NewServeMux()
	Register(mux, srv, srv, NewReconciler(repos, nil, srv.Metrics()))
	admin := kt.SeedUser(t, repos, "admin@example.com", domain.RoleAdmin)
	cookie := kt.SessionCookie(t, srv, domain.User{ID: admin.Subject, Email: admin.Email})
	seedSession(t, repos, "dangling", 4242)

	req := httptest.NewRequest(http.MethodPost, "/admin/maintenance/auth-cleanup", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"removed":1`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRunFindsOrphansAfterNewUserIsCreated(t *testing.T) {
	repos := kt.NewRepos(t)
	ctx := context.Background()
	admin := kt.SeedUser(t, repos, "admin@example.com", domain.RoleAdmin)
	gone := kt.SeedUser(t, repos, "gone@example.com", domain.RoleMember)
	seedSession(t, repos, "gone-session", gone.Subject)
	if err := repos.Users.DeleteUser(ctx, gone.Subject); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	kt.SeedUser(t, repos, "fresh@example.com", domain.RoleAdmin)

	removed, err := NewReconciler(repos, nil, nil).Run(ctx, admin)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected the deleted user's session to be removed, got %d", removed)
	}
}
