package task

import (
	"context"
	"sort"
	"sync"

	"github.com/jpvillegas/taskmesh/internal/models"
)

// inMemoryRepository keeps tasks in a mutex-guarded map. Used by tests
// and the inmemory repository driver.
type inMemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		tasks: make(map[string]models.Task),
	}
}

func (r *inMemoryRepository) Save(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.ID] = *task
	return nil
}

func (r *inMemoryRepository) Update(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *inMemoryRepository) FindByID(_ context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &task, nil
}

func (r *inMemoryRepository) FindAll(_ context.Context) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(models.Task) bool { return true }), nil
}

func (r *inMemoryRepository) FindByAssignee(_ context.Context, identityID string) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(t models.Task) bool { return t.AssignedToID == identityID }), nil
}

// collect must be called with the mutex held.
func (r *inMemoryRepository) collect(match func(models.Task) bool) []*models.Task {
	var tasks []*models.Task
	for _, task := range r.tasks {
		if match(task) {
			t := task
			tasks = append(tasks, &t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

func (r *inMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}
