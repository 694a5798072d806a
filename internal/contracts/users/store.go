package users

import (
	"context"

	"keeper/internal/domain"
)

// Repository defines persistence operations for users.
type Repository interface {
	GetUserByID(ctx context.Context, id int) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	HasAdmin(ctx context.Context) (bool, error)
	CreateUser(ctx context.Context, u domain.User) (int64, error)
	UpdateUserRole(ctx context.Context, userID int, role domain.Role) error
	DeleteUser(ctx context.Context, userID int) error
}
