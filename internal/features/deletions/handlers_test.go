package deletions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"keeper/internal/domain"
	kt "keeper/internal/testutil"
)

func TestHandlersWorkflow(t *testing.T) {
	srv := kt.NewServer(t)
	repos := srv.Repos()
	mux := http.NewServeMux()
	Register(mux, srv, srv, NewRegistry(repos, nil, srv.Metrics()))

	admin := kt.SeedUser(t, repos, "admin@example.com", domain.RoleAdmin)
	member := kt.SeedUser(t, repos, "member@example.com", domain.RoleMember)
	adminCookie := kt.SessionCookie(t, srv, domain.User{ID: admin.Subject, Email: admin.Email})
	memberCookie := kt.SessionCookie(t, srv, domain.User{ID: member.Subject, Email: member.Email})
	id := kt.SeedEntity(t, repos, domain.EntityService, "Food Bank")

	do := func(method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodPost, "/entities/service/"+strconv.Itoa(id)+"/delete", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: expected 401, got %d", rec.Code)
	}

	rec := do(http.MethodPost, "/entities/service/"+strconv.Itoa(id)+"/delete", `{"reason":"closed"}`, memberCookie)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("member delete: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		Deleted bool            `json:"deleted"`
		Request requestResponse `json:"request"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.Deleted || accepted.Request.Status != "pending" || accepted.Request.EntityName != "Food Bank" {
		t.Fatalf("unexpected response: %+v", accepted)
	}

	if rec := do(http.MethodGet, "/deletion-requests", "", memberCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("member list: expected 403, got %d", rec.Code)
	}
	rec = do(http.MethodGet, "/deletion-requests?status=pending", "", adminCookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"entity_name":"Food Bank"`) {
		t.Fatalf("admin list: got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodGet, "/deletion-requests?status=bogus", "", adminCookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status: expected 400, got %d", rec.Code)
	}

	approve := "/deletion-requests/" + strconv.Itoa(accepted.Request.ID) + "/approve"
	if rec := do(http.MethodPost, approve, "", memberCookie); rec.Code != http.StatusForbidden {
		t.Fatalf("member approve: expected 403, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, approve, "", adminCookie); rec.Code != http.StatusOK {
		t.Fatalf("admin approve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, approve, "", adminCookie); rec.Code != http.StatusConflict {
		t.Fatalf("second approve: expected 409, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/deletion-requests/999/reject", "", adminCookie); rec.Code != http.StatusNotFound {
		t.Fatalf("missing request: expected 404, got %d", rec.Code)
	}
	if _, err := repos.Entities.GetEntity(context.Background(), domain.EntityService, id); err == nil {
		t.Fatalf("entity should be deleted after approval")
	}
}

func TestCreateHandlerValidatesInput(t *testing.T) {
	srv := kt.NewServer(t)
	repos := srv.Repos()
	mux := http.NewServeMux()
	Register(mux, srv, srv, NewRegistry(repos, nil, nil))
	member := kt.SeedUser(t, repos, "member@example.com", domain.RoleMember)
	cookie := kt.SessionCookie(t, srv, domain.User{ID: member.Subject, Email: member.Email})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown field", `{"entity_type":"service","entity_id":1,"extra":true}`, http.StatusBadRequest},
		{"missing id", `{"entity_type":"service"}`, http.StatusBadRequest},
		{"bad type", `{"entity_type":"widget","entity_id":1}`, http.StatusBadRequest},
		{"missing entity", `{"entity_type":"service","entity_id":42}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/deletion-requests", strings.NewReader(tt.body))
			req.AddCookie(cookie)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
