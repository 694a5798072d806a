package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/sessions"
	"keeper/internal/domain"
)

// SessionName is the cookie carrying the server-side session id.
const SessionName = "keeper_session"

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// WriteJSON marshals JSON responses and sets the content type.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(data)
}

// WriteError maps policy errors to HTTP statuses and writes an error body.
// Unknown errors are reported as 500 without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	WriteJSON(w, status, map[string]string{"error": msg})
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEntityNotFound), errors.Is(err, domain.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrLastItemProtected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidDecision), errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidEntityType), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrBadRequest marks malformed client input.
var ErrBadRequest = errors.New("bad request")

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(r.PathValue(name)))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}
	return id, nil
}

func SessionID(session *sessions.Session) (string, bool) {
	id, ok := session.Values["session_id"].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
