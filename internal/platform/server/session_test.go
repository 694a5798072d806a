package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/testutil"
)

func TestResolveCurrentIdentity(t *testing.T) {
	srv := testutil.NewServer(t)
	user := domain.User{ID: 7, Email: "alice@example.com"}
	cookie := testutil.SessionCookie(t, srv, user)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	identity, err := srv.ResolveCurrentIdentity(req)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity == nil || identity.Subject != 7 || identity.Email != "alice@example.com" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	anon, err := srv.ResolveCurrentIdentity(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || anon != nil {
		t.Fatalf("expected nil identity without cookie, got %+v err=%v", anon, err)
	}
}

func TestResolveCurrentIdentityExpired(t *testing.T) {
	srv := testutil.NewServer(t)
	cookie := testutil.SessionCookie(t, srv, domain.User{ID: 3, Email: "bob@example.com"})

	sessions, err := srv.Repos().Sessions.ListAllSessions(context.Background())
	if err != nil || len(sessions) != 1 {
		t.Fatalf("list sessions: %v (%d)", err, len(sessions))
	}
	expired := sessions[0]
	if err := srv.Repos().Sessions.DeleteSession(context.Background(), expired.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	if err := srv.Repos().Sessions.CreateSession(context.Background(), expired); err != nil {
		t.Fatalf("recreate session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	identity, err := srv.ResolveCurrentIdentity(req)
	if err != nil || identity != nil {
		t.Fatalf("expired session should resolve to nil, got %+v err=%v", identity, err)
	}
}

func TestRequireSessionRejectsMissingCookie(t *testing.T) {
	srv := testutil.NewServer(t)
	called := false
	h := srv.RequireSession(func(w http.ResponseWriter, r *http.Request) { called = true })
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/admin/audit-log", nil))
	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected 401 without calling next, got %d called=%v", rec.Code, called)
	}
}

func TestDeletedUserSessionNotInheritedByNewUser(t *testing.T) {
	srv := testutil.NewServer(t)
	ctx := context.Background()
	repos := srv.Repos()
	testutil.SeedUser(t, repos, "admin@example.com", domain.RoleAdmin)
	gone := testutil.SeedUser(t, repos, "gone@example.com", domain.RoleMember)
	cookie := testutil.SessionCookie(t, srv, domain.User{ID: gone.Subject, Email: gone.Email})

	if err := repos.Users.DeleteUser(ctx, gone.Subject); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	fresh := testutil.SeedUser(t, repos, "fresh@example.com", domain.RoleAdmin)
	if fresh.Subject == gone.Subject {
		t.Fatalf("new user reused deleted id %d", gone.Subject)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	identity, err := srv.ResolveCurrentIdentity(req)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := authz.NewGate(repos.Users).Authenticate(ctx, identity); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("stale session must not authenticate, got %v", err)
	}
}
