package passkeys

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/platform/core"
	"keeper/internal/platform/logging"
)

// Store is the subset of the passkey repository the handlers use.
type Store interface {
	ListPasskeys(ctx context.Context, userID int) ([]domain.Passkey, error)
	DeletePasskeyByID(ctx context.Context, id int) error
}

type Handler struct {
	identities authz.IdentityResolver
	gate       authz.Gate
	store      Store
	logger     *zap.Logger
}

func NewHandler(identities authz.IdentityResolver, users authz.UserStore, store Store, logger *zap.Logger) Handler {
	return Handler{identities: identities, gate: authz.NewGate(users), store: store, logger: logging.OrNop(logger)}
}

type passkeyResponse struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	CredentialID string     `json:"credential_id"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}

// List returns the caller's own passkeys.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	user, err := h.caller(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	keys, err := h.store.ListPasskeys(r.Context(), user.ID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	out := make([]passkeyResponse, 0, len(keys))
	for _, pk := range keys {
		item := passkeyResponse{ID: pk.ID, Name: pk.Name, CredentialID: pk.CredentialID, CreatedAt: pk.CreatedAt}
		if pk.LastUsedAt.Valid {
			at := pk.LastUsedAt.Time
			item.LastUsedAt = &at
		}
		out = append(out, item)
	}
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{"passkeys": out})
}

// Delete removes one of the caller's passkeys. Someone else's id is reported
// as not found.
func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.caller(r)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	id, err := core.PathID(r, "id")
	if err != nil {
		core.WriteError(w, err)
		return
	}
	keys, err := h.store.ListPasskeys(r.Context(), user.ID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	owned := false
	for _, pk := range keys {
		if pk.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		core.WriteError(w, domain.ErrEntityNotFound)
		return
	}
	if err := h.store.DeletePasskeyByID(r.Context(), id); err != nil {
		core.WriteError(w, err)
		return
	}
	h.logger.Info("passkey deleted", zap.Int("passkey_id", id), zap.Int("user_id", user.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (h Handler) caller(r *http.Request) (domain.User, error) {
	identity, err := h.identities.ResolveCurrentIdentity(r)
	if err != nil {
		return domain.User{}, err
	}
	return h.gate.Authenticate(r.Context(), identity)
}
