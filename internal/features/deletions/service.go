package deletions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"keeper/internal/contracts"
	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/platform/logging"
	"keeper/internal/platform/metrics"
)

// RequestInput describes a member's intent to delete an entity.
type RequestInput struct {
	EntityType  domain.EntityType
	EntityID    int
	RequestedBy int
	Reason      string
}

// Outcome reports what DeleteEntity did. Exactly one of Deleted or Request is set.
type Outcome struct {
	Deleted bool
	Request *domain.DeletionRequest
}

// Registry owns the deletion request lifecycle.
type Registry struct {
	repos   contracts.Repos
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRegistry(repos contracts.Repos, logger *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{repos: repos, logger: logging.OrNop(logger), metrics: m}
}

// RequestDeletion records a pending request with a snapshot of the entity
// name, and its audit entry, in one transaction. Duplicate pending requests
// for the same entity are allowed.
func (s *Registry) RequestDeletion(ctx context.Context, in RequestInput) (domain.DeletionRequest, error) {
	entityType, err := domain.ParseEntityType(string(in.EntityType))
	if err != nil {
		return domain.DeletionRequest{}, err
	}
	var created domain.DeletionRequest
	err = s.repos.Tx.WithinTx(ctx, func(tx contracts.Repos) error {
		entity, err := loadEntity(ctx, tx, entityType, in.EntityID)
		if err != nil {
			return err
		}
		req := domain.DeletionRequest{
			EntityType:  entityType,
			EntityID:    entity.ID,
			EntityName:  entity.Name,
			Status:      domain.DeletionPending,
			RequestedBy: in.RequestedBy,
			Reason:      strings.TrimSpace(in.Reason),
		}
		id, err := tx.Deletions.InsertDeletionRequest(ctx, req)
		if err != nil {
			return fmt.Errorf("insert deletion request: %w", err)
		}
		details := fmt.Sprintf("Requested deletion of %s %q (#%d)", entityType, entity.Name, entity.ID)
		if req.Reason != "" {
			details += ": " + req.Reason
		}
		if err := writeAudit(ctx, tx, in.RequestedBy, domain.ActionDeletionRequested, details, in.RequestedBy); err != nil {
			return err
		}
		created, err = tx.Deletions.GetDeletionRequest(ctx, int(id))
		return err
	})
	if err != nil {
		return domain.DeletionRequest{}, err
	}
	s.metrics.DeletionRequested(string(entityType))
	s.logger.Info("deletion requested",
		zap.Int("request_id", created.ID),
		zap.String("entity_type", string(entityType)),
		zap.Int("entity_id", created.EntityID),
		zap.Int("requested_by", in.RequestedBy),
	)
	return created, nil
}

// DeleteEntity applies the deletion policy for the caller: admins delete
// immediately, members file a request, pending accounts are refused.
func (s *Registry) DeleteEntity(ctx context.Context, identity *domain.Identity, entityType domain.EntityType, entityID int, reason string) (Outcome, error) {
	user, err := authz.NewGate(s.repos.Users).RequireMember(ctx, identity)
	if err != nil {
		return Outcome{}, err
	}
	if !user.IsAdmin() {
		req, err := s.RequestDeletion(ctx, RequestInput{
			EntityType:  entityType,
			EntityID:    entityID,
			RequestedBy: user.ID,
			Reason:      reason,
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Request: &req}, nil
	}

	parsed, err := domain.ParseEntityType(string(entityType))
	if err != nil {
		return Outcome{}, err
	}
	err = s.repos.Tx.WithinTx(ctx, func(tx contracts.Repos) error {
		entity, err := loadEntity(ctx, tx, parsed, entityID)
		if err != nil {
			return err
		}
		if err := deleteEntity(ctx, tx, parsed, entityID); err != nil {
			return err
		}
		details := fmt.Sprintf("Deleted %s %q (#%d)", parsed, entity.Name, entity.ID)
		return writeAudit(ctx, tx, user.ID, domain.ActionEntityDeleted, details, user.ID)
	})
	if err != nil {
		return Outcome{}, err
	}
	s.metrics.EntityDeleted(string(parsed))
	s.logger.Info("entity deleted", zap.String("entity_type", string(parsed)), zap.Int("entity_id", entityID), zap.Int("admin_id", user.ID))
	return Outcome{Deleted: true}, nil
}

// ParseDecision maps a raw decision to a terminal status.
func ParseDecision(raw string) (domain.DeletionStatus, error) {
	switch domain.DeletionStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.DeletionApproved:
		return domain.DeletionApproved, nil
	case domain.DeletionRejected:
		return domain.DeletionRejected, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidDecision, raw)
}

// ResolveRequest approves or rejects a pending request. The status change,
// the entity deletion on approval and the audit entry commit together; if
// the entity has vanished the request stays pending.
func (s *Registry) ResolveRequest(ctx context.Context, identity *domain.Identity, requestID int, decision domain.DeletionStatus) (domain.DeletionRequest, error) {
	status, err := ParseDecision(string(decision))
	if err != nil {
		return domain.DeletionRequest{}, err
	}
	var resolved domain.DeletionRequest
	var adminID int
	err = s.repos.Tx.WithinTx(ctx, func(tx contracts.Repos) error {
		admin, err := authz.NewGate(tx.Users).RequireAdmin(ctx, identity)
		if err != nil {
			return err
		}
		adminID = admin.ID
		req, err := tx.Deletions.GetDeletionRequest(ctx, requestID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRequestNotFound
		}
		if err != nil {
			return fmt.Errorf("load deletion request %d: %w", requestID, err)
		}
		if req.Status != domain.DeletionPending {
			return domain.ErrInvalidState
		}
		ok, err := tx.Deletions.ResolveDeletionRequest(ctx, requestID, status, admin.ID)
		if err != nil {
			return fmt.Errorf("resolve deletion request %d: %w", requestID, err)
		}
		if !ok {
			return domain.ErrInvalidState
		}

		action := domain.ActionDeletionRejected
		details := fmt.Sprintf("Rejected deletion of %s %q (#%d)", req.EntityType, req.EntityName, req.EntityID)
		if status == domain.DeletionApproved {
			if err := deleteEntity(ctx, tx, req.EntityType, req.EntityID); err != nil {
				return err
			}
			action = domain.ActionDeletionApproved
			details = fmt.Sprintf("Approved deletion of %s %q (#%d)", req.EntityType, req.EntityName, req.EntityID)
		}
		if err := writeAudit(ctx, tx, req.RequestedBy, action, details, admin.ID); err != nil {
			return err
		}
		resolved, err = tx.Deletions.GetDeletionRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return domain.DeletionRequest{}, err
	}
	s.metrics.DeletionResolved(string(status))
	s.logger.Info("deletion request resolved",
		zap.Int("request_id", requestID),
		zap.String("decision", string(status)),
		zap.Int("admin_id", adminID),
	)
	return resolved, nil
}

// ListPending returns pending requests, newest first.
func (s *Registry) ListPending(ctx context.Context) ([]domain.DeletionRequest, error) {
	return s.ListByStatus(ctx, domain.DeletionPending)
}

func (s *Registry) ListByStatus(ctx context.Context, status domain.DeletionStatus) ([]domain.DeletionRequest, error) {
	reqs, err := s.repos.Deletions.ListDeletionRequestsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list deletion requests: %w", err)
	}
	return reqs, nil
}

// ListByEntityType returns every request for one entity kind, newest first.
func (s *Registry) ListByEntityType(ctx context.Context, entityType domain.EntityType) ([]domain.DeletionRequest, error) {
	parsed, err := domain.ParseEntityType(string(entityType))
	if err != nil {
		return nil, err
	}
	reqs, err := s.repos.Deletions.ListDeletionRequestsByEntityType(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("list deletion requests: %w", err)
	}
	return reqs, nil
}

func (s *Registry) Get(ctx context.Context, id int) (domain.DeletionRequest, error) {
	req, err := s.repos.Deletions.GetDeletionRequest(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeletionRequest{}, domain.ErrRequestNotFound
	}
	if err != nil {
		return domain.DeletionRequest{}, fmt.Errorf("load deletion request %d: %w", id, err)
	}
	return req, nil
}

func loadEntity(ctx context.Context, tx contracts.Repos, entityType domain.EntityType, id int) (domain.Entity, error) {
	entity, err := tx.Entities.GetEntity(ctx, entityType, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	if err != nil {
		return domain.Entity{}, fmt.Errorf("load %s %d: %w", entityType, id, err)
	}
	return entity, nil
}

func deleteEntity(ctx context.Context, tx contracts.Repos, entityType domain.EntityType, id int) error {
	err := tx.Entities.DeleteEntity(ctx, entityType, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrEntityNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", entityType, id, err)
	}
	return nil
}

func writeAudit(ctx context.Context, tx contracts.Repos, userID int, action, details string, performedBy int) error {
	_, err := tx.Audit.WriteAuditLog(ctx, domain.AuditLog{
		UserID:      userID,
		ActionType:  action,
		Details:     details,
		PerformedBy: sql.NullInt64{Int64: int64(performedBy), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
