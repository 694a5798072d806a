package http

import (
	"net/http"

	"keeper/internal/features/audit"
	"keeper/internal/features/auth"
	"keeper/internal/features/checklists"
	"keeper/internal/features/deletions"
	"keeper/internal/features/health"
	"keeper/internal/features/maintenance"
	"keeper/internal/features/passkeys"
	"keeper/internal/features/users"
	keeperserver "keeper/internal/platform/server"
	"keeper/internal/platform/wiring"
)

// Routes builds the HTTP mux with every feature registered.
func Routes(s *keeperserver.Server) http.Handler {
	mux := http.NewServeMux()
	deps := wiring.NewDeps(s)

	health.Register(mux, s, s.DB())
	auth.Register(mux, s, deps)
	deletions.Register(mux, s, deps, deps.Registry())
	audit.Register(mux, s, deps, deps.Audit())
	maintenance.Register(mux, s, deps, deps.Reconciler())
	checklists.Register(mux, s, deps, deps.Checklists())
	users.Register(mux, s, deps, deps.Users())
	passkeys.Register(mux, s, deps, s.Repos(), s.Logger())
	if m := s.Metrics(); m != nil {
		s.RegisterRoute(mux, "GET /metrics", m.Handler())
	}

	return s.WithSecurityHeaders(s.WithRequestLogging(mux))
}
