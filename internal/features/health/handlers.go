package health

import (
	"context"
	"net/http"
	"time"

	"keeper/internal/platform/core"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db Pinger
}

// NewHandler builds a health handler over the record store.
func NewHandler(db Pinger) Handler {
	return Handler{db: db}
}

// Health reports whether the database answers within two seconds.
func (h Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		core.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
