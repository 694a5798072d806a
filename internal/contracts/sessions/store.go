package sessions

import (
	"context"

	"keeper/internal/domain"
)

// Repository defines persistence operations for server-side sessions.
type Repository interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	ListAllSessions(ctx context.Context) ([]domain.Session, error)
	DeleteSession(ctx context.Context, id string) error
}
