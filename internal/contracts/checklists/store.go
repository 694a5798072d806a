package checklists

import (
	"context"

	"keeper/internal/domain"
)

// Repository defines persistence operations for checklists and their items.
type Repository interface {
	CreateChecklist(ctx context.Context, name string) (int64, error)
	AddChecklistItem(ctx context.Context, checklistID int, label string) (int64, error)
	GetChecklistItem(ctx context.Context, id int) (domain.ChecklistItem, error)
	ListChecklistItems(ctx context.Context, checklistID int) ([]domain.ChecklistItem, error)
	CountChecklistItems(ctx context.Context, checklistID int) (int, error)
	DeleteChecklistItem(ctx context.Context, id int) error
}
