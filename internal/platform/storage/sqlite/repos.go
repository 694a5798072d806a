package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
	"keeper/internal/contracts"
	"keeper/internal/contracts/audit"
	"keeper/internal/domain"
)

type repos struct {
	db   DBTX
	root *sql.DB
}

// NewRepos wires sqlite-backed repositories for the app layer.
func NewRepos(db *sql.DB) contracts.Repos {
	return bind(repos{db: db, root: db})
}

func bind(r repos) contracts.Repos {
	return contracts.Repos{
		Users:      r,
		Sessions:   r,
		Passkeys:   r,
		Entities:   r,
		Deletions:  r,
		Checklists: r,
		Audit:      r,
		Tx:         r,
	}
}

// WithinTx runs fn inside one SQLite transaction. Calls made on an already
// transactional bundle join the outer transaction.
func (r repos) WithinTx(ctx context.Context, fn func(tx contracts.Repos) error) error {
	if _, ok := r.db.(*sql.Tx); ok {
		return fn(bind(r))
	}
	tx, err := r.root.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(bind(repos{db: tx, root: r.root})); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UsersStore
func (r repos) GetUserByID(ctx context.Context, id int) (domain.User, error) {
	return GetUserByID(ctx, r.db, id)
}

func (r repos) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return GetUserByEmail(ctx, r.db, email)
}

func (r repos) ListUsers(ctx context.Context) ([]domain.User, error) {
	return ListUsers(ctx, r.db)
}

func (r repos) HasAdmin(ctx context.Context) (bool, error) {
	return HasAdmin(ctx, r.db)
}

func (r repos) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	return CreateUser(ctx, r.db, u)
}

func (r repos) UpdateUserRole(ctx context.Context, userID int, role domain.Role) error {
	return UpdateUserRole(ctx, r.db, userID, role)
}

func (r repos) DeleteUser(ctx context.Context, userID int) error {
	return DeleteUser(ctx, r.db, userID)
}

// SessionsStore
func (r repos) CreateSession(ctx context.Context, session domain.Session) error {
	return CreateSession(ctx, r.db, session)
}

func (r repos) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return GetSession(ctx, r.db, id)
}

func (r repos) ListAllSessions(ctx context.Context) ([]domain.Session, error) {
	return ListAllSessions(ctx, r.db)
}

func (r repos) DeleteSession(ctx context.Context, id string) error {
	return DeleteSession(ctx, r.db, id)
}

// PasskeysStore
func (r repos) ListPasskeys(ctx context.Context, userID int) ([]domain.Passkey, error) {
	return ListPasskeys(ctx, r.db, userID)
}

func (r repos) ListAllPasskeys(ctx context.Context) ([]domain.Passkey, error) {
	return ListAllPasskeys(ctx, r.db)
}

func (r repos) InsertPasskey(ctx context.Context, userID int, name string, credential webauthn.Credential) error {
	return InsertPasskey(ctx, r.db, userID, name, credential)
}

func (r repos) DeletePasskeyByID(ctx context.Context, id int) error {
	return DeletePasskeyByID(ctx, r.db, id)
}

// EntitiesStore
func (r repos) GetEntity(ctx context.Context, entityType domain.EntityType, id int) (domain.Entity, error) {
	return GetEntity(ctx, r.db, entityType, id)
}

func (r repos) ListEntities(ctx context.Context, entityType domain.EntityType) ([]domain.Entity, error) {
	return ListEntities(ctx, r.db, entityType)
}

func (r repos) CreateEntity(ctx context.Context, entityType domain.EntityType, name string) (int64, error) {
	return CreateEntity(ctx, r.db, entityType, name)
}

func (r repos) RenameEntity(ctx context.Context, entityType domain.EntityType, id int, name string) error {
	return RenameEntity(ctx, r.db, entityType, id, name)
}

func (r repos) DeleteEntity(ctx context.Context, entityType domain.EntityType, id int) error {
	return DeleteEntity(ctx, r.db, entityType, id)
}

// DeletionsStore
func (r repos) InsertDeletionRequest(ctx context.Context, req domain.DeletionRequest) (int64, error) {
	return InsertDeletionRequest(ctx, r.db, req)
}

func (r repos) GetDeletionRequest(ctx context.Context, id int) (domain.DeletionRequest, error) {
	return GetDeletionRequest(ctx, r.db, id)
}

func (r repos) ResolveDeletionRequest(ctx context.Context, id int, status domain.DeletionStatus, resolvedBy int) (bool, error) {
	return ResolveDeletionRequest(ctx, r.db, id, status, resolvedBy)
}

func (r repos) ListDeletionRequestsByStatus(ctx context.Context, status domain.DeletionStatus) ([]domain.DeletionRequest, error) {
	return ListDeletionRequestsByStatus(ctx, r.db, status)
}

func (r repos) ListDeletionRequestsByEntityType(ctx context.Context, entityType domain.EntityType) ([]domain.DeletionRequest, error) {
	return ListDeletionRequestsByEntityType(ctx, r.db, entityType)
}

// ChecklistsStore
func (r repos) CreateChecklist(ctx context.Context, name string) (int64, error) {
	return CreateChecklist(ctx, r.db, name)
}

func (r repos) AddChecklistItem(ctx context.Context, checklistID int, label string) (int64, error) {
	return AddChecklistItem(ctx, r.db, checklistID, label)
}

func (r repos) GetChecklistItem(ctx context.Context, id int) (domain.ChecklistItem, error) {
	return GetChecklistItem(ctx, r.db, id)
}

func (r repos) ListChecklistItems(ctx context.Context, checklistID int) ([]domain.ChecklistItem, error) {
	return ListChecklistItems(ctx, r.db, checklistID)
}

func (r repos) CountChecklistItems(ctx context.Context, checklistID int) (int, error) {
	return CountChecklistItems(ctx, r.db, checklistID)
}

func (r repos) DeleteChecklistItem(ctx context.Context, id int) error {
	return DeleteChecklistItem(ctx, r.db, id)
}

// AuditStore
func (r repos) WriteAuditLog(ctx context.Context, entry domain.AuditLog) (int64, error) {
	return WriteAuditLog(ctx, r.db, entry)
}

func (r repos) ListRecentAuditLogs(ctx context.Context, query audit.Query) ([]domain.AuditLogView, error) {
	return ListRecentAuditLogs(ctx, r.db, query)
}

func (r repos) ListAllAuditLogs(ctx context.Context) ([]domain.AuditLogView, error) {
	return ListAllAuditLogs(ctx, r.db)
}

func (r repos) CountAuditLogs(ctx context.Context) (int, error) {
	return CountAuditLogs(ctx, r.db)
}

func (r repos) DeleteAllAuditLogs(ctx context.Context) (int, error) {
	return DeleteAllAuditLogs(ctx, r.db)
}
