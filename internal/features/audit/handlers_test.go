package audit

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"keeper/internal/domain"
	kt "keeper/internal/testutil"
)

func newAuditMux(t *testing.T) (*http.ServeMux, *http.Cookie, *http.Cookie, *Service) {
	t.Helper()
	srv := kt.NewServer(t)
	repos := srv.Repos()
	svc := NewService(repos)
	mux := http.NewServeMux()
	Register(mux, srv, srv, svc)
	admin := kt.SeedUser(t, repos, "admin@example.com", domain.RoleAdmin)
	member := kt.SeedUser(t, repos, "member@example.com", domain.RoleMember)
	for _, action := range []string{domain.ActionDeletionRequested, domain.ActionDeletionApproved} {
		if err := svc.Append(context.Background(), domain.AuditLog{
			UserID:      member.Subject,
			ActionType:  action,
			Details:     "Food Bank, \"main\"",
			PerformedBy: sql.NullInt64{Int64: int64(admin.Subject), Valid: true},
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	adminCookie := kt.SessionCookie(t, srv, domain.User{ID: admin.Subject, Email: admin.Email})
	memberCookie := kt.SessionCookie(t, srv, domain.User{ID: member.Subject, Email: member.Email})
	return mux, adminCookie, memberCookie, svc
}

func serve(mux *http.ServeMux, method, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestListHandler(t *testing.T) {
	mux, adminCookie, memberCookie, _ := newAuditMux(t)

	if rec := serve(mux, http.MethodGet, "/admin/audit-log", memberCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("member: expected 403, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/admin/audit-log?date_range=decade", adminCookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad range: expected 400, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/admin/audit-log?limit=-1", adminCookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", rec.Code)
	}

	rec := serve(mux, http.MethodGet, "/admin/audit-log?action_type=deletion_approved&date_range=today", adminCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Entries []entryResponse `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].User == nil || body.Entries[0].User.Email != "member@example.com" {
		t.Fatalf("unexpected entries: %+v", body.Entries)
	}
	if body.Entries[0].Performer == nil || body.Entries[0].Performer.Email != "admin@example.com" {
		t.Fatalf("expected joined performer, got %+v", body.Entries[0].Performer)
	}
}

func TestDownloadFormats(t *testing.T) {
	mux, adminCookie, memberCookie, _ := newAuditMux(t)

	if rec := serve(mux, http.MethodGet, "/admin/audit-log/download", memberCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("member: expected 403, got %d", rec.Code)
	}
	if rec := serve(mux, http.MethodGet, "/admin/audit-log/download?format=xml", adminCookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("xml: expected 400, got %d", rec.Code)
	}

	rec := serve(mux, http.MethodGet, "/admin/audit-log/download", adminCookie)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("csv: got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 || records[1][2] != domain.ActionDeletionRequested || records[1][5] != "Food Bank, \"main\"" {
		t.Fatalf("unexpected csv: %v", records)
	}

	rec = serve(mux, http.MethodGet, "/admin/audit-log/download?format=txt", adminCookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "by admin@example.com") {
		t.Fatalf("txt: got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(mux, http.MethodGet, "/admin/audit-log/download?format=json", adminCookie)
	var entries []entryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil || len(entries) != 2 {
		t.Fatalf("json: entries=%d err=%v", len(entries), err)
	}
}

func TestWipeHandler(t *testing.T) {
	mux, adminCookie, memberCookie, svc := newAuditMux(t)

	if rec := serve(mux, http.MethodPost, "/admin/audit-log/wipe", memberCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("member: expected 403, got %d", rec.Code)
	}
	rec := serve(mux, http.MethodPost, "/admin/audit-log/wipe", adminCookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"deleted":2`) {
		t.Fatalf("wipe: got %d %s", rec.Code, rec.Body.String())
	}
	logs, err := svc.List(context.Background(), Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty log, got %d", len(logs))
	}
}
