package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"keeper/internal/domain"
)

// IdentityResolver resolves the caller of an HTTP request. A nil identity
// with a nil error means the request carries no login.
type IdentityResolver interface {
	ResolveCurrentIdentity(r *http.Request) (*domain.Identity, error)
}

// UserStore is the subset of the users repository the gate reads.
type UserStore interface {
	GetUserByID(ctx context.Context, id int) (domain.User, error)
}

// Gate maps identities to users and enforces roles. It never caches, so a
// role change is visible to the next check.
type Gate struct {
	users UserStore
}

func NewGate(users UserStore) Gate {
	return Gate{users: users}
}

// Authenticate resolves identity to its stored user.
func (g Gate) Authenticate(ctx context.Context, identity *domain.Identity) (domain.User, error) {
	if identity == nil || identity.Subject <= 0 {
		return domain.User{}, domain.ErrUnauthenticated
	}
	user, err := g.users.GetUserByID(ctx, identity.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user %d: %w", identity.Subject, err)
	}
	return user, nil
}

// RequireAdmin returns the caller when they hold the admin role.
func (g Gate) RequireAdmin(ctx context.Context, identity *domain.Identity) (domain.User, error) {
	user, err := g.Authenticate(ctx, identity)
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsAdmin() {
		return domain.User{}, domain.ErrForbidden
	}
	return user, nil
}

// RequireMember returns the caller unless their account is still pending.
func (g Gate) RequireMember(ctx context.Context, identity *domain.Identity) (domain.User, error) {
	user, err := g.Authenticate(ctx, identity)
	if err != nil {
		return domain.User{}, err
	}
	switch user.Role {
	case domain.RoleMember, domain.RoleAdmin:
		return user, nil
	default:
		return domain.User{}, domain.ErrForbidden
	}
}
