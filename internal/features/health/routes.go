package health

import (
	"net/http"

	"keeper/internal/platform/transport"
)

// Register wires health check endpoints.
func Register(mux *http.ServeMux, reg transport.Registrar, db Pinger) {
	handler := NewHandler(db)
	reg.RegisterRoute(mux, "GET /healthz", http.HandlerFunc(handler.Health))
}
