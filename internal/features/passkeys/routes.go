package passkeys

import (
	"net/http"

	"go.uber.org/zap"
	"keeper/internal/contracts"
	"keeper/internal/features/authz"
	"keeper/internal/platform/transport"
)

// Register registers routes and handlers.
func Register(mux *http.ServeMux, reg transport.Registrar, identities authz.IdentityResolver, repos contracts.Repos, logger *zap.Logger) {
	register := func(pattern string, handler http.Handler) {
		reg.RegisterRoute(mux, pattern, handler)
	}
	handler := NewHandler(identities, repos.Users, repos.Passkeys, logger)

	register("GET /auth/passkeys", http.HandlerFunc(reg.RequireSession(handler.List)))
	register("DELETE /auth/passkeys/{id}", http.HandlerFunc(reg.RequireSession(handler.Delete)))
}
