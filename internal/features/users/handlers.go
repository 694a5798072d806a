package users

import (
	"net/http"
	"time"

	"keeper/internal/domain"
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

type userResponse struct {
	ID          int       `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func toResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

// Users lists accounts.
func (h Handler) Users(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	users, err := h.service.List(r.Context(), identity)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}

type roleBody struct {
	Role string `json:"role"`
}

func (h Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
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
	var body roleBody
	if err := core.DecodeJSON(r, &body); err != nil {
		core.WriteError(w, err)
		return
	}
	user, err := h.service.ChangeRole(r.Context(), identity, id, body.Role)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, toResponse(user))
}

func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		core.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
