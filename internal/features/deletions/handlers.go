package deletions

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/platform/core"
)

type Handler struct {
	identities authz.IdentityResolver
	registry   *Registry
}

// NewHandler constructs a new handler.
func NewHandler(identities authz.IdentityResolver, registry *Registry) Handler {
	return Handler{identities: identities, registry: registry}
}

type requestResponse struct {
	ID          int        `json:"id"`
	EntityType  string     `json:"entity_type"`
	EntityID    int        `json:"entity_id"`
	EntityName  string     `json:"entity_name"`
	Status      string     `json:"status"`
	RequestedBy int        `json:"requested_by"`
	Reason      string     `json:"reason,omitempty"`
	ResolvedBy  *int       `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toResponse(req domain.DeletionRequest) requestResponse {
	out := requestResponse{
		ID:          req.ID,
		EntityType:  string(req.EntityType),
		EntityID:    req.EntityID,
		EntityName:  req.EntityName,
		Status:      string(req.Status),
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
		CreatedAt:   req.CreatedAt.UTC(),
	}
	if req.ResolvedBy.Valid {
		id := int(req.ResolvedBy.Int64)
		out.ResolvedBy = &id
	}
	if req.ResolvedAt.Valid {
		at := req.ResolvedAt.Time.UTC()
		out.ResolvedAt = &at
	}
	return out
}

type deleteEntityBody struct {
	Reason string `json:"reason"`
}

// DeleteEntity applies the deletion policy for the caller's role.
func (h Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	entityType, err := domain.ParseEntityType(r.PathValue("type"))
	if err != nil {
		core.WriteError(w, err)
		return
	}
	id, err := core.PathID(r, "id")
	if err != nil {
		core.WriteError(w, err)
		return
	}
	var body deleteEntityBody
	if r.ContentLength > 0 {
		if err := core.DecodeJSON(r, &body); err != nil {
			core.WriteError(w, err)
			return
		}
	}
	outcome, err := h.registry.DeleteEntity(r.Context(), identity, entityType, id, body.Reason)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	if outcome.Deleted {
		core.WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
		return
	}
	core.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"deleted": false,
		"request": toResponse(*outcome.Request),
	})
}

type createBody struct {
	EntityType string `json:"entity_type"`
	EntityID   int    `json:"entity_id"`
	Reason     string `json:"reason"`
}

// Create files a deletion request on behalf of the caller.
func (h Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	user, err := authz.NewGate(h.registry.repos.Users).RequireMember(r.Context(), identity)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	var body createBody
	if err := core.DecodeJSON(r, &body); err != nil {
		core.WriteError(w, err)
		return
	}
	if body.EntityID <= 0 {
		core.WriteError(w, fmt.Errorf("%w: entity_id is required", core.ErrBadRequest))
		return
	}
	req, err := h.registry.RequestDeletion(r.Context(), RequestInput{
		EntityType:  domain.EntityType(body.EntityType),
		EntityID:    body.EntityID,
		RequestedBy: user.ID,
		Reason:      body.Reason,
	})
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusCreated, toResponse(req))
}

// List returns requests filtered by status or entity type. Only admins may
// review the queue.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	if _, err := authz.NewGate(h.registry.repos.Users).RequireAdmin(r.Context(), identity); err != nil {
		core.WriteError(w, err)
		return
	}
	q := r.URL.Query()
	var reqs []domain.DeletionRequest
	if raw := strings.TrimSpace(q.Get("entity_type")); raw != "" {
		reqs, err = h.registry.ListByEntityType(r.Context(), domain.EntityType(raw))
	} else {
		status := domain.DeletionStatus(strings.ToLower(strings.TrimSpace(q.Get("status"))))
		switch status {
		case "":
			reqs, err = h.registry.ListPending(r.Context())
		case domain.DeletionPending, domain.DeletionApproved, domain.DeletionRejected:
			reqs, err = h.registry.ListByStatus(r.Context(), status)
		default:
			err = fmt.Errorf("%w: unknown status %q", core.ErrBadRequest, status)
		}
	}
	if err != nil {
		core.WriteError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toResponse(req))
	}
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"requests": out})
}

// Approve resolves a pending request and deletes its entity.
func (h Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, domain.DeletionApproved)
}

// Reject resolves a pending request and keeps its entity.
func (h Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, domain.DeletionRejected)
}

func (h Handler) resolve(w http.ResponseWriter, r *http.Request, decision domain.DeletionStatus) {
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
	req, err := h.registry.ResolveRequest(r.Context(), identity, id, decision)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, toResponse(req))
}
