package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"keeper/internal/config"
	"keeper/internal/contracts"
	"keeper/internal/domain"
	"keeper/internal/platform/core"
	"keeper/internal/platform/forensics"
	"keeper/internal/platform/logging"
	"keeper/internal/platform/metrics"
	sqlitestore "keeper/internal/platform/storage/sqlite"
)

// Server bundles dependencies for HTTP handlers.
type Server struct {
	cfg     config.Config
	db      *sql.DB
	store   *sessions.CookieStore
	repos   contracts.Repos
	logger  *zap.Logger
	metrics *metrics.Metrics
	sink    forensics.Sink
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logging.OrNop(logger) }
}

// WithForensicSink sets where audit wipes are recorded before they happen.
func WithForensicSink(sink forensics.Sink) Option {
	return func(s *Server) { s.sink = sink }
}

// NewServer configures dependencies for handlers using the default SQLite-backed repositories.
func NewServer(cfg config.Config, db *sql.DB, opts ...Option) (*Server, error) {
	return NewServerWithRepos(cfg, db, sqlitestore.NewRepos(db), opts...)
}

// NewServerWithRepos constructs a new server with repos.
func NewServerWithRepos(cfg config.Config, db *sql.DB, repos contracts.Repos, opts ...Option) (*Server, error) {
	store := sessions.NewCookieStore(cfg.SecretKey)
	maxAge := int(cfg.SessionTTL / time.Second)
	if maxAge <= 0 {
		maxAge = 86400 * 30
	}
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
	}

	s := &Server{
		cfg:    cfg,
		db:     db,
		store:  store,
		repos:  repos,
		logger: zap.NewNop(),
	}
	if cfg.MetricsEnabled {
		s.metrics = metrics.New()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterRoute registers routes and handlers for route.
func (s *Server) RegisterRoute(mux *http.ServeMux, pattern string, handler http.Handler) {
	mux.Handle(pattern, handler)
}

// WithSecurityHeaders wraps the handler with additional behavior.
func (s *Server) WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// WithRequestLogging logs one line per request.
func (s *Server) WithRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Config returns a copy of the server configuration.
func (s *Server) Config() config.Config {
	return s.cfg
}

// Repos returns the repository bundle for storage access.
func (s *Server) Repos() contracts.Repos {
	return s.repos
}

func (s *Server) DB() *sql.DB {
	return s.db
}

func (s *Server) Logger() *zap.Logger {
	return s.logger
}

// Metrics returns the workflow counters, or nil when metrics are disabled.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// ForensicSink returns the configured sink, or nil.
func (s *Server) ForensicSink() forensics.Sink {
	return s.sink
}

// RequireSession rejects requests that carry no session cookie.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.store.Get(r, core.SessionName)
		if _, ok := core.SessionID(session); !ok {
			core.WriteError(w, domain.ErrUnauthenticated)
			return
		}
		next(w, r)
	}
}
