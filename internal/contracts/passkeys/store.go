package passkeys

import (
	"context"

	"github.com/go-webauthn/webauthn/webauthn"
	"keeper/internal/domain"
)

// Repository defines persistence operations for passkeys.
type Repository interface {
	ListPasskeys(ctx context.Context, userID int) ([]domain.Passkey, error)
	ListAllPasskeys(ctx context.Context) ([]domain.Passkey, error)
	InsertPasskey(ctx context.Context, userID int, name string, credential webauthn.Credential) error
	DeletePasskeyByID(ctx context.Context, id int) error
}
