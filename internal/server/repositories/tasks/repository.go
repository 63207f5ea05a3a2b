package tasks

import (
	"context"

	"github.com/dmitrijs2005/gophtasks/internal/server/models"
)

// Repository persists task records. Missing rows are reported as
// common.ErrorNotFound.
type Repository interface {
	// Create inserts t and fills in its ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	// Update writes every mutable field of t and refreshes t.UpdatedAt.
	Update(ctx context.Context, t *models.Task) error
	ToggleStatus(ctx context.Context, id string) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	// ListLatest returns all tasks, most recently created first.
	ListLatest(ctx context.Context) ([]*models.Task, error)
}
