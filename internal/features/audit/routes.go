package audit

import (
	"net/http"

	"keeper/internal/features/authz"
	"keeper/internal/platform/transport"
)

// Register registers routes and handlers.
func Register(mux *http.ServeMux, reg transport.Registrar, identities authz.IdentityResolver, service *Service) {
	register := func(pattern string, handler http.Handler) {
		reg.RegisterRoute(mux, pattern, handler)
	}
	handler := NewHandler(identities, service)

	register("GET /admin/audit-log", http.HandlerFunc(reg.RequireSession(handler.List)))
	register("GET /admin/audit-log/download", http.HandlerFunc(reg.RequireSession(handler.Download)))
	register("POST /admin/audit-log/wipe", http.HandlerFunc(reg.RequireSession(handler.Wipe)))
}
