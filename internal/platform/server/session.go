package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"keeper/internal/domain"
	"keeper/internal/platform/core"
)

// ResolveCurrentIdentity maps the session cookie to its stored session. A
// missing, unknown or expired session yields a nil identity.
func (s *Server) ResolveCurrentIdentity(r *http.Request) (*domain.Identity, error) {
	session, _ := s.store.Get(r, core.SessionName)
	id, ok := core.SessionID(session)
	if !ok {
		return nil, nil
	}
	stored, err := s.repos.Sessions.GetSession(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !stored.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	email, _ := session.Values["email"].(string)
	return &domain.Identity{Subject: stored.UserID, Email: email, SessionID: stored.ID}, nil
}

// StartSession stores a new server-side session for user and sets the cookie.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request, user domain.User) error {
	now := time.Now()
	stored := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL()),
	}
	if err := s.repos.Sessions.CreateSession(r.Context(), stored); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session, _ := s.store.Get(r, core.SessionName)
	session.Values["session_id"] = stored.ID
	session.Values["email"] = user.Email
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	s.logger.Info("session started", zap.Int("user_id", user.ID))
	return nil
}

// EndSession deletes the stored session and clears the cookie.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, core.SessionName)
	if id, ok := core.SessionID(session); ok {
		if err := s.repos.Sessions.DeleteSession(r.Context(), id); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func (s *Server) sessionTTL() time.Duration {
	if s.cfg.SessionTTL > 0 {
		return s.cfg.SessionTTL
	}
	return 30 * 24 * time.Hour
}
