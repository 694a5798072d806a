package maintenance

import (
	"net/http"

	"keeper/internal/features/authz"
	"keeper/internal/platform/core"
)

type Handler struct {
	identities authz.IdentityResolver
	reconciler *Reconciler
}

// NewHandler constructs a new handler.
func NewHandler(identities authz.IdentityResolver, reconciler *Reconciler) Handler {
	return Handler{identities: identities, reconciler: reconciler}
}

// AuthCleanup runs the orphan reconciler as the calling admin.
func (h Handler) AuthCleanup(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	removed, err := h.reconciler.Run(r.Context(), identity)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
