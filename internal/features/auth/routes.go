package auth

import (
	"net/http"
	"time"

	"keeper/internal/platform/transport"
)

// Register registers routes and handlers.
func Register(mux *http.ServeMux, reg transport.Registrar, deps Dependencies) {
	register := func(pattern string, handler http.Handler) {
		reg.RegisterRoute(mux, pattern, handler)
	}

	handler := NewHandler(deps)
	throttle := NewThrottle(10, time.Minute)
	register("POST /auth/login", throttle.Wrap(handler.Login))
	register("POST /auth/logout", http.HandlerFunc(handler.Logout))
}
