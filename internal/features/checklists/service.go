package checklists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"keeper/internal/contracts"
	"keeper/internal/domain"
	"keeper/internal/features/authz"
	"keeper/internal/platform/logging"
)

type Service struct {
	repos  contracts.Repos
	logger *zap.Logger
}

func NewService(repos contracts.Repos, logger *zap.Logger) *Service {
	return &Service{repos: repos, logger: logging.OrNop(logger)}
}

// DeleteItem removes an item unless it is the last one on its checklist.
// The count and the delete share one transaction.
func (s *Service) DeleteItem(ctx context.Context, identity *domain.Identity, itemID int) error {
	var user domain.User
	err := s.repos.Tx.WithinTx(ctx, func(tx contracts.Repos) error {
		var err error
		user, err = authz.NewGate(tx.Users).RequireMember(ctx, identity)
		if err != nil {
			return err
		}
		item, err := tx.Checklists.GetChecklistItem(ctx, itemID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrEntityNotFound
		}
		if err != nil {
			return fmt.Errorf("load checklist item %d: %w", itemID, err)
		}
		count, err := tx.Checklists.CountChecklistItems(ctx, item.ChecklistID)
		if err != nil {
			return fmt.Errorf("count checklist items: %w", err)
		}
		if count <= 1 {
			return domain.ErrLastItemProtected
		}
		if err := tx.Checklists.DeleteChecklistItem(ctx, itemID); err != nil {
			return fmt.Errorf("delete checklist item %d: %w", itemID, err)
		}
		_, err = tx.Audit.WriteAuditLog(ctx, domain.AuditLog{
			UserID:      user.ID,
			ActionType:  domain.ActionChecklistItemDeleted,
			Details:     fmt.Sprintf("Deleted item %q from checklist #%d", item.Label, item.ChecklistID),
			PerformedBy: sql.NullInt64{Int64: int64(user.ID), Valid: true},
		})
		if err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("checklist item deleted", zap.Int("item_id", itemID), zap.Int("user_id", user.ID))
	return nil
}

// Items lists a checklist in display order.
func (s *Service) Items(ctx context.Context, checklistID int) ([]domain.ChecklistItem, error) {
	items, err := s.repos.Checklists.ListChecklistItems(ctx, checklistID)
	if err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	return items, nil
}
