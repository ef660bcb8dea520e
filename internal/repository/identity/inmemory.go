package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/jpvillegas/taskmesh/internal/models"
)

type inMemoryRepository struct {
	mu         sync.RWMutex
	identities map[string]models.Identity
}

func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		identities: make(map[string]models.Identity),
	}
}

func (r *inMemoryRepository) Save(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.identities {
		if existing.Email == identity.Email {
			return ErrEmailTaken
		}
	}
	r.identities[identity.ID] = *identity
	return nil
}

func (r *inMemoryRepository) Update(_ context.Context, identity *models.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[identity.ID]; !ok {
		return ErrNotFound
	}
	for _, existing := range r.identities {
		if existing.Email == identity.Email && existing.ID != identity.ID {
			return ErrEmailTaken
		}
	}
	r.identities[identity.ID] = *identity
	return nil
}

func (r *inMemoryRepository) FindByID(_ context.Context, id string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &identity, nil
}

func (r *inMemoryRepository) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, identity := range r.identities {
		if identity.Email == email {
			found := identity
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *inMemoryRepository) FindPage(_ context.Context, offset, limit int) ([]*models.Identity, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.Identity, 0, len(r.identities))
	for _, identity := range r.identities {
		i := identity
		all = append(all, &i)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *inMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[id]; !ok {
		return ErrNotFound
	}
	delete(r.identities, id)
	return nil
}
