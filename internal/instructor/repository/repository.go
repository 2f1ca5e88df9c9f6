package repository

import (
	"context"

	"attendance-control-plane/internal/instructor/domain"
)

// Repository defines persistence for instructor accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Instructor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Instructor, error)
	Create(ctx context.Context, i *domain.Instructor) error
}
