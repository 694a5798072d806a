package users

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

	register("GET /admin/users", http.HandlerFunc(reg.RequireSession(handler.Users)))
	register("POST /admin/users/{id}/role", http.HandlerFunc(reg.RequireSession(handler.ChangeRole)))
	register("DELETE /admin/users/{id}", http.HandlerFunc(reg.RequireSession(handler.Delete)))
}
