package domain

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RolePending Role = "pending"
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
)

// ErrInvalidRole is returned when a role string is not one of the known roles.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole validates raw role input.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RolePending:
		return RolePending, nil
	case RoleMember:
		return RoleMember, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// User is an account that can sign in and act on records.
type User struct {
	ID           int
	Email        string
	DisplayName  string
	Role         Role
	PasswordHash string
	TOTPSecret   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the authenticated caller as seen by the identity provider.
type Identity struct {
	Subject   int
	Email     string
	SessionID string
}

// Session is a server-side login session bound to a user.
type Session struct {
	ID        string
	UserID    int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Passkey is a stored WebAuthn credential bound to a user.
type Passkey struct {
	ID             int
	UserID         int
	Name           string
	CredentialID   string
	CredentialJSON string
	CreatedAt      time.Time
	LastUsedAt     sql.NullTime
}

// EntityType tags which record kind a deletion targets.
type EntityType string

const (
	EntityService   EntityType = "service"
	EntityCategory  EntityType = "category"
	EntityProgram   EntityType = "program"
	EntityInventory EntityType = "inventory"
)

// ErrInvalidEntityType is returned for unknown entity kinds.
var ErrInvalidEntityType = errors.New("invalid entity type")

// ParseEntityType validates raw entity type input.
func ParseEntityType(raw string) (EntityType, error) {
	switch EntityType(strings.ToLower(strings.TrimSpace(raw))) {
	case EntityService:
		return EntityService, nil
	case EntityCategory:
		return EntityCategory, nil
	case EntityProgram:
		return EntityProgram, nil
	case EntityInventory:
		return EntityInventory, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEntityType, raw)
}

// Entity is a domain record subject to deletion policy.
type Entity struct {
	ID        int
	Type      EntityType
	Name      string
	UpdatedAt time.Time
}

// DeletionStatus is the state of a deletion request.
type DeletionStatus string

const (
	DeletionPending  DeletionStatus = "pending"
	DeletionApproved DeletionStatus = "approved"
	DeletionRejected DeletionStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s DeletionStatus) IsTerminal() bool {
	return s == DeletionApproved || s == DeletionRejected
}

// DeletionRequest is a durable, reviewable intent to delete an entity.
type DeletionRequest struct {
	ID          int            `json:"id"`
	EntityType  EntityType     `json:"entity_type"`
	EntityID    int            `json:"entity_id"`
	EntityName  string         `json:"entity_name"`
	Status      DeletionStatus `json:"status"`
	RequestedBy int            `json:"requested_by"`
	Reason      string         `json:"reason,omitempty"`
	ResolvedBy  sql.NullInt64  `json:"-"`
	ResolvedAt  sql.NullTime   `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Audit action types.
const (
	ActionDeletionRequested    = "deletion_requested"
	ActionDeletionApproved     = "deletion_approved"
	ActionDeletionRejected     = "deletion_rejected"
	ActionEntityDeleted        = "entity_deleted"
	ActionAuthCleanup          = "auth_cleanup"
	ActionRoleChanged          = "role_changed"
	ActionUserDeleted          = "user_deleted"
	ActionChecklistItemDeleted = "checklist_item_deleted"
)

// AuditLog is an immutable record of a sensitive action.
type AuditLog struct {
	ID          int
	UserID      int
	ActionType  string
	Details     string
	PerformedBy sql.NullInt64
	CreatedAt   time.Time
}

// AuditLogView is an audit entry joined with its subject and performer.
// Either user is nil when the referenced account no longer exists.
type AuditLogView struct {
	AuditLog
	User      *User
	Performer *User
}

// Checklist is a named collection that must keep at least one item.
type Checklist struct {
	ID   int
	Name string
}

type ChecklistItem struct {
	ID          int
	ChecklistID int
	Label       string
	Position    int
}
