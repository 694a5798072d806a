package passkeys

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-webauthn/webauthn/webauthn"
	"keeper/internal/domain"
	kt "keeper/internal/testutil"
)

func TestListAndDeleteOwnPasskeys(t *testing.T) {
	srv := kt.NewServer(t)
	repos := srv.Repos()
	ctx := context.Background()
	mux := http.NewServeMux()
	Register(mux, srv, srv, repos, nil)

	alice := kt.SeedUser(t, repos, "alice@example.com", domain.RoleMember)
	bob := kt.SeedUser(t, repos, "bob@example.com", domain.RoleMember)
	for _, owner := range []int{alice.Subject, bob.Subject} {
		cred := webauthn.Credential{ID: []byte("cred-" + strconv.Itoa(owner))}
		if err := repos.Passkeys.InsertPasskey(ctx, owner, "laptop", cred); err != nil {
			t.Fatalf("insert passkey: %v", err)
		}
	}
	bobKeys, err := repos.Passkeys.ListPasskeys(ctx, bob.Subject)
	if err != nil || len(bobKeys) != 1 {
		t.Fatalf("list bob keys: %v", err)
	}
	aliceKeys, err := repos.Passkeys.ListPasskeys(ctx, alice.Subject)
	if err != nil || len(aliceKeys) != 1 {
		t.Fatalf("list alice keys: %v", err)
	}
	cookie := kt.SessionCookie(t, srv, domain.User{ID: alice.Subject, Email: alice.Email})

	do := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/auth/passkeys")
	if rec.Code != http.StatusOK || strings.Count(rec.Body.String(), `"name":"laptop"`) != 1 {
		t.Fatalf("list: got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodDelete, "/auth/passkeys/"+strconv.Itoa(bobKeys[0].ID)); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", rec.Code)
	}
	if rec := do(http.MethodDelete, "/auth/passkeys/"+strconv.Itoa(aliceKeys[0].ID)); rec.Code != http.StatusNoContent {
		t.Fatalf("own delete: expected 204, got %d", rec.Code)
	}
	all, err := repos.Passkeys.ListAllPasskeys(ctx)
	if err != nil || len(all) != 1 || all[0].UserID != bob.Subject {
		t.Fatalf("expected only bob's key left, got %+v err=%v", all, err)
	}
}
