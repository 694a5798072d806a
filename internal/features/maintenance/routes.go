package maintenance

import (
	"net/http"

	"keeper/internal/features/authz"
	"keeper/internal/platform/transport"
)

// Register registers routes and handlers.
func Register(mux *http.ServeMux, reg transport.Registrar, identities authz.IdentityResolver, reconciler *Reconciler) {
	handler := NewHandler(identities, reconciler)
	reg.RegisterRoute(mux, "POST /admin/maintenance/auth-cleanup", http.HandlerFunc(reg.RequireSession(handler.AuthCleanup)))
}
