package checklists

import (
	"net/http"

	"keeper/internal/features/authz"
	"keeper/internal/platform/core"
)

type Handler struct {
	identities authz.IdentityResolver
	service    *Service
}

// NewHandler constructs a new handler.
func NewHandler(identities authz.IdentityResolver, service *Service) Handler {
	return Handler{identities: identities, service: service}
}

func (h Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	id, err := core.PathID(r, "id")
	if err != nil {
		core.WriteError(w, err)
		return
	}
	if err := h.service.DeleteItem(r.Context(), identity, id); err != nil {
		core.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
