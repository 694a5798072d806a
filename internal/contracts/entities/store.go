package entities

import (
	"context"

	"keeper/internal/domain"
)

// Repository defines persistence operations for deletable domain records.
type Repository interface {
	GetEntity(ctx context.Context, entityType domain.EntityType, id int) (domain.Entity, error)
	ListEntities(ctx context.Context, entityType domain.EntityType) ([]domain.Entity, error)
	CreateEntity(ctx context.Context, entityType domain.EntityType, name string) (int64, error)
	RenameEntity(ctx context.Context, entityType domain.EntityType, id int, name string) error
	DeleteEntity(ctx context.Context, entityType domain.EntityType, id int) error
}
