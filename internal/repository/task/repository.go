package task

import (
	"context"
	"errors"

	"github.com/jpvillegas/taskmesh/internal/models"
)

var ErrNotFound = errors.New("task not found")

// Repository is pure storage. All invariant logic (due dates, status
// transitions, revert preconditions) lives in the task service; the
// repository only persists whatever it is handed.
type Repository interface {
	Save(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error

	// FindByID returns ErrNotFound when the task doesn't exist. It is
	// the single authoritative existence check reused by every
	// mutating operation.
	FindByID(ctx context.Context, id string) (*models.Task, error)
	FindAll(ctx context.Context) ([]*models.Task, error)
	FindByAssignee(ctx context.Context, identityID string) ([]*models.Task, error)

	Delete(ctx context.Context, id string) error
}
