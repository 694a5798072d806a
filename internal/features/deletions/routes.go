package deletions

import (
	"net/http"

	"keeper/internal/features/authz"
	"keeper/internal/platform/transport"
)

// Register registers routes and handlers.
func Register(mux *http.ServeMux, reg transport.Registrar, identities authz.IdentityResolver, registry *Registry) {
	register := func(pattern string, handler http.Handler) {
		reg.RegisterRoute(mux, pattern, handler)
	}
	handler := NewHandler(identities, registry)

	register("POST /entities/{type}/{id}/delete", http.HandlerFunc(reg.RequireSession(handler.DeleteEntity)))
	register("POST /deletion-requests", http.HandlerFunc(reg.RequireSession(handler.Create)))
	register("GET /deletion-requests", http.HandlerFunc(reg.RequireSession(handler.List)))
	register("POST /deletion-requests/{id}/approve", http.HandlerFunc(reg.RequireSession(handler.Approve)))
	register("POST /deletion-requests/{id}/reject", http.HandlerFunc(reg.RequireSession(handler.Reject)))
}
