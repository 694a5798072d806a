package deletions

import (
	"context"

	"keeper/internal/domain"
)

// Repository defines persistence operations for deletion requests.
type Repository interface {
	InsertDeletionRequest(ctx context.Context, req domain.DeletionRequest) (int64, error)
	GetDeletionRequest(ctx context.Context, id int) (domain.DeletionRequest, error)
	// ResolveDeletionRequest moves a pending request to status and reports
	// whether a pending row was found.
	ResolveDeletionRequest(ctx context.Context, id int, status domain.DeletionStatus, resolvedBy int) (bool, error)
	ListDeletionRequestsByStatus(ctx context.Context, status domain.DeletionStatus) ([]domain.DeletionRequest, error)
	ListDeletionRequestsByEntityType(ctx context.Context, entityType domain.EntityType) ([]domain.DeletionRequest, error)
}
