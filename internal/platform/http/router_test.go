package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"keeper/internal/domain"
	keeperhttp "keeper/internal/platform/http"
	"keeper/internal/testutil"
)

func TestRoutesHealthAndHeaders(t *testing.T) {
	srv := testutil.NewServer(t)
	handler := keeperhttp.Routes(srv)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "keeper_audit_wipes_total") {
		t.Fatalf("expected metrics output, got %d", rec.Code)
	}
}

func TestRoutesRequireSession(t *testing.T) {
	handler := keeperhttp.Routes(testutil.NewServer(t))
	for _, target := range []string{"/admin/audit-log", "/deletion-requests", "/admin/users"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, rec.Code)
		}
	}
}

func TestLoginThenAdminFlow(t *testing.T) {
	srv := testutil.NewServer(t)
	handler := keeperhttp.Routes(srv)
	ctx := context.Background()

	secret := "JBSWY3DPEHPK3PXP"
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := srv.Repos().Users.CreateUser(ctx, domain.User{Email: "admin@example.com", Role: domain.RoleAdmin, PasswordHash: string(hash), TOTPSecret: secret}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("totp: %v", err)
	}

	rec := httptest.NewRecorder()
	body := `{"email":"admin@example.com","password":"pw","totp":"` + code + `"}`
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}

	entityID := testutil.SeedEntity(t, srv.Repos(), domain.EntityCategory, "Transport")
	req := httptest.NewRequest(http.MethodPost, "/entities/category/"+strconv.Itoa(entityID)+"/delete", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/audit-log?action_type=entity_deleted", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"action_type":"entity_deleted"`) {
		t.Fatalf("audit list: got %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/audit-log", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", rec.Code)
	}
}
