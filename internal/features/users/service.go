package users

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

// List returns every account for an admin.
func (s *Service) List(ctx context.Context, identity *domain.Identity) ([]domain.User, error) {
	if _, err := authz.NewGate(s.repos.Users).RequireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.repos.Users.ListUsers(ctx)
}

// ChangeRole sets a user's role and records the transition. Admins cannot
// change their own role.
func (s *Service) ChangeRole(ctx context.Context, identity *domain.Identity, userID int, raw string) (domain.User, error) {
	role, err := domain.ParseRole(raw)
	if err != nil {
		return domain.User{}, err
	}
	var updated domain.User
	var from domain.Role
	err = s.repos.Tx.WithinTx(ctx, func(tx contracts.Repos) error {
		admin, err := authz.NewGate(tx.Users).RequireAdmin(ctx, identity)
		if err != nil {
			return err
		}
		if admin.ID == userID {
			return fmt.Errorf("%w: cannot change your own role", domain.ErrForbidden)
		}
		target, err := loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		from = target.Role
		if from == role {
			updated = target
			return nil
		}
		if err := tx.Users.UpdateUserRole(ctx, userID, role); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		_, err = tx.Audit.WriteAuditLog(ctx, domain.AuditLog{
			UserID:      userID,
			ActionType:  domain.ActionRoleChanged,
			Details:     fmt.Sprintf("%s -> %s", from, role),
			PerformedBy: sql.NullInt64{Int64: int64(admin.ID), Valid: true},
		})
		if err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
		updated, err = loadUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	if from != role {
		s.logger.Info("role changed", zap.Int("user_id", userID), zap.String("from", string(from)), zap.String("to", string(role)))
	}
	return updated, nil
}

// Delete removes an account. Its sessions and passkeys stay behind until the
// orphan reconciler runs.
func (s *Service) Delete(ctx context.Context, identity *domain.Identity, userID int) error {
	return s.repos.Tx.WithinTx(ctx, func(tx contracts.Repos) error {
		admin, err := authz.NewGate(tx.Users).RequireAdmin(ctx, identity)
		if err != nil {
			return err
		}
		if admin.ID == userID {
			return fmt.Errorf("%w: cannot delete your own account", domain.ErrForbidden)
		}
		target, err := loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := tx.Users.DeleteUser(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		_, err = tx.Audit.WriteAuditLog(ctx, domain.AuditLog{
			UserID:      userID,
			ActionType:  domain.ActionUserDeleted,
			Details:     fmt.Sprintf("Deleted account %s", target.Email),
			PerformedBy: sql.NullInt64{Int64: int64(admin.ID), Valid: true},
		})
		if err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
		s.logger.Info("user deleted", zap.Int("user_id", userID), zap.Int("admin_id", admin.ID))
		return nil
	})
}

// loadUser reports a missing target as not found, unlike the gate which
// treats a missing caller as unauthenticated.
func loadUser(ctx context.Context, tx contracts.Repos, id int) (domain.User, error) {
	user, err := tx.Users.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrEntityNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user %d: %w", id, err)
	}
	return user, nil
}
