package checklists

import (
	"net/http"

	"keeper/internal/features/authz"
	"keeper/internal/platform/transport"
)

// Register registers routes and handlers.
func Register(mux *http.ServeMux, reg transport.Registrar, identities authz.IdentityResolver, service *Service) {
	handler := NewHandler(identities, service)
	reg.RegisterRoute(mux, "DELETE /checklists/items/{id}", http.HandlerFunc(reg.RequireSession(handler.DeleteItem)))
}
