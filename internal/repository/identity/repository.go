package identity

import (
	"context"
	"errors"

	"github.com/jpvillegas/taskmesh/internal/models"
)

var (
	ErrNotFound   = errors.New("identity not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Repository interface {
	// Save returns ErrEmailTaken if another identity already holds the
	// same email.
	Save(ctx context.Context, identity *models.Identity) error
	Update(ctx context.Context, identity *models.Identity) error

	FindByID(ctx context.Context, id string) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	// FindPage returns one page of identities plus the total count.
	FindPage(ctx context.Context, offset, limit int) ([]*models.Identity, int, error)

	// Delete removes the identity only. Tasks referencing it keep their
	// now-dangling assignee id; the task service degrades at read time.
	Delete(ctx context.Context, id string) error
}
