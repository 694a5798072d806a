package maintenance

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
	"go.uber.org/zap"
	"keeper/internal/contracts"
	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/platform/logging"
	"keeper/internal/platform/metrics"
)

// Reconciler removes sessions and passkeys whose owning user no longer exists.
type Reconciler struct {
	repos   contracts.Repos
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewReconciler(repos contracts.Repos, logger *zap.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{repos: repos, logger: logging.OrNop(logger), metrics: m}
}

// Run scans every session and passkey, deletes those pointing at a missing
// user and records one auth_cleanup entry. It returns the number removed.
// Rows deleted concurrently are skipped; a failure partway leaves earlier
// deletions in place, and a re-run picks up the rest.
func (r *Reconciler) Run(ctx context.Context, identity *domain.Identity) (int, error) {
	admin, err := authz.NewGate(r.repos.Users).RequireAdmin(ctx, identity)
	if err != nil {
		return 0, err
	}
	owners := ownerCache{users: r.repos.Users, known: map[int]bool{}}

	sessions, err := r.repos.Sessions.ListAllSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	removedSessions := 0
	for _, s := range sessions {
		exists, err := owners.exists(ctx, s.UserID)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}
		err = r.repos.Sessions.DeleteSession(ctx, s.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("delete session %s: %w", s.ID, err)
		}
		r.logger.Debug("removed orphaned session", zap.String("session_id", s.ID), zap.Int("user_id", s.UserID))
		removedSessions++
	}

	passkeys, err := r.repos.Passkeys.ListAllPasskeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list passkeys: %w", err)
	}
	removedCredentials := 0
	for _, p := range passkeys {
		exists, err := owners.exists(ctx, p.UserID)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}
		err = r.repos.Passkeys.DeletePasskeyByID(ctx, p.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("delete passkey %d: %w", p.ID, err)
		}
		r.logger.Debug("removed orphaned passkey",
			zap.Int("passkey_id", p.ID),
			zap.Int("user_id", p.UserID),
			zap.String("credential_id", credentialID(p)),
		)
		removedCredentials++
	}

	total := removedSessions + removedCredentials
	_, err = r.repos.Audit.WriteAuditLog(ctx, domain.AuditLog{
		UserID:      admin.ID,
		ActionType:  domain.ActionAuthCleanup,
		Details:     fmt.Sprintf("Removed %d orphaned auth records (%d sessions, %d credentials)", total, removedSessions, removedCredentials),
		PerformedBy: sql.NullInt64{Int64: int64(admin.ID), Valid: true},
	})
	if err != nil {
		return 0, fmt.Errorf("write audit log: %w", err)
	}
	r.metrics.OrphansRemoved("session", removedSessions)
	r.metrics.OrphansRemoved("credential", removedCredentials)
	r.logger.Info("auth cleanup finished",
		zap.Int("admin_id", admin.ID),
		zap.Int("sessions", removedSessions),
		zap.Int("credentials", removedCredentials),
	)
	return total, nil
}

// ownerCache memoizes user existence for a single run.
type ownerCache struct {
	users authz.UserStore
	known map[int]bool
}

func (c ownerCache) exists(ctx context.Context, userID int) (bool, error) {
	if ok, seen := c.known[userID]; seen {
		return ok, nil
	}
	_, err := c.users.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.known[userID] = false
	case err != nil:
		return false, fmt.Errorf("load user %d: %w", userID, err)
	default:
		c.known[userID] = true
	}
	return c.known[userID], nil
}

// credentialID decodes the stored credential for logging only.
func credentialID(p domain.Passkey) string {
	var cred webauthn.Credential
	if err := json.Unmarshal([]byte(p.CredentialJSON), &cred); err != nil || len(cred.ID) == 0 {
		return p.CredentialID
	}
	return base64.RawURLEncoding.EncodeToString(cred.ID)
}
