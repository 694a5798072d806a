package testutil

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"keeper/internal/config"
	"keeper/internal/contracts"
	"keeper/internal/domain"
	platformserver "keeper/internal/platform/server"
	sqlitestore "keeper/internal/platform/storage/sqlite"
)

func TestConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:               "test",
		SecretKey:         []byte("test-secret-test-secret-test-sec"),
		DBPath:            filepath.Join(t.TempDir(), "keeper.db"),
		CookieSameSite:    http.SameSiteLaxMode,
		SessionTTL:        time.Hour,
		AuditDefaultLimit: 50,
		MetricsEnabled:    true,
	}
}

// NewDB opens an initialized in-memory database.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := sqlitestore.InitDB(db); err != nil {
		t.Fatalf("init db: %v", err)
	}
	return db
}

func NewRepos(t *testing.T) contracts.Repos {
	t.Helper()
	return sqlitestore.NewRepos(NewDB(t))
}

func NewServer(t *testing.T, opts ...platformserver.Option) *platformserver.Server {
	t.Helper()
	srv, err := platformserver.NewServer(TestConfig(t), NewDB(t), opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

// SeedUser inserts a user with placeholder credentials and returns its identity.
func SeedUser(t *testing.T, repos contracts.Repos, email string, role domain.Role) *domain.Identity {
	t.Helper()
	id, err := repos.Users.CreateUser(context.Background(), domain.User{
		Email:        email,
		Role:         role,
		PasswordHash: "hash",
		TOTPSecret:   "secret",
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return &domain.Identity{Subject: int(id), Email: email}
}

func SeedEntity(t *testing.T, repos contracts.Repos, entityType domain.EntityType, name string) int {
	t.Helper()
	id, err := repos.Entities.CreateEntity(context.Background(), entityType, name)
	if err != nil {
		t.Fatalf("seed %s %q: %v", entityType, name, err)
	}
	return int(id)
}

// SessionCookie starts a server-side session for user and returns the cookie.
func SessionCookie(t *testing.T, srv *platformserver.Server, user domain.User) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	rec := httptest.NewRecorder()
	if err := srv.StartSession(rec, req, user); err != nil {
		t.Fatalf("start session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no session cookie set")
	}
	return cookies[0]
}
