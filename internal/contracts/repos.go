package contracts

import (
	"context"

	"keeper/internal/contracts/audit"
	"keeper/internal/contracts/checklists"
	"keeper/internal/contracts/deletions"
	"keeper/internal/contracts/entities"
	"keeper/internal/contracts/passkeys"
	"keeper/internal/contracts/sessions"
	"keeper/internal/contracts/users"
)

// Repos groups feature-specific repositories for injection into services and handlers.
type Repos struct {
	Users      users.Repository
	Sessions   sessions.Repository
	Passkeys   passkeys.Repository
	Entities   entities.Repository
	Deletions  deletions.Repository
	Checklists checklists.Repository
	Audit      audit.Repository
	Tx         Transactor
}

// Transactor runs fn against repositories bound to a single atomic transaction.
// fn's error rolls the transaction back; a nil return commits it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Repos) error) error
}
