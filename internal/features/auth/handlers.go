package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"keeper/internal/domain"
	"keeper/internal/platform/core"
)

type Dependencies interface {
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	StartSession(w http.ResponseWriter, r *http.Request, user domain.User) error
	EndSession(w http.ResponseWriter, r *http.Request) error
}

type Handler struct {
	deps Dependencies
}

func NewHandler(deps Dependencies) Handler {
	return Handler{deps: deps}
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTP     string `json:"totp"`
}

// Login checks password and one-time code and starts a server-side session.
// Every credential failure gets the same 401 so accounts cannot be probed.
func (h Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := core.DecodeJSON(r, &body); err != nil {
		core.WriteError(w, err)
		return
	}
	user, err := h.deps.GetUserByEmail(r.Context(), strings.TrimSpace(body.Email))
	if err != nil {
		core.WriteError(w, domain.ErrUnauthenticated)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		core.WriteError(w, domain.ErrUnauthenticated)
		return
	}
	if !totp.Validate(strings.TrimSpace(body.TOTP), user.TOTPSecret) {
		core.WriteError(w, domain.ErrUnauthenticated)
		return
	}
	if err := h.deps.StartSession(w, r, user); err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
	})
}

// Logout ends the stored session and clears the cookie.
func (h Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.EndSession(w, r); err != nil {
		core.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
