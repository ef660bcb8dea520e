package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jpvillegas/taskmesh/internal/identityclient"
	"github.com/jpvillegas/taskmesh/internal/models"
	"github.com/jpvillegas/taskmesh/internal/repository/task"
	"github.com/jpvillegas/taskmesh/internal/services"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Save(ctx context.Context, t *models.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *models.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskRepository) FindAll(ctx context.Context) ([]*models.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

func (m *MockTaskRepository) FindByAssignee(ctx context.Context, identityID string) ([]*models.Task, error) {
	args := m.Called(ctx, identityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// stubResolver answers ResolveOne from a fixed table and fails ids it
// doesn't know; Enrich mirrors the real degrade-to-nil policy.
type stubResolver struct {
	known map[string]string // id -> name
}

func (r *stubResolver) ResolveOne(_ context.Context, identityID, _ string) (*identityclient.PublicIdentity, error) {
	name, ok := r.known[identityID]
	if !ok {
		return nil, identityclient.ErrIdentityNotFound
	}
	return &identityclient.PublicIdentity{ID: identityID, Name: name}, nil
}

func (r *stubResolver) Enrich(_ context.Context, tasks []*models.Task, _ string) []identityclient.EnrichedTask {
	enriched := make([]identityclient.EnrichedTask, len(tasks))
	for i, t := range tasks {
		enriched[i].Task = t
		if name, ok := r.known[t.AssignedToID]; ok && t.AssignedToID != "" {
			enriched[i].AssignedTo = &identityclient.Assignee{ID: t.AssignedToID, Name: name}
		}
	}
	return enriched
}

func newTaskService(repo task.Repository, resolver services.IdentityResolver) services.TaskService {
	if resolver == nil {
		resolver = &stubResolver{}
	}
	return services.NewTaskService(zerolog.Nop(), repo, resolver)
}

func storedTask(id string) *models.Task {
	now := time.Now()
	return &models.Task{
		ID:        id,
		Title:     "stored task",
		Status:    models.StatusTodo,
		DueDate:   now.AddDate(0, 0, 7),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func yesterday() string {
	return time.Now().AddDate(0, 0, -1).Format("2006-01-02")
}

func TestCreateTask_Today(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)

	created, err := newTaskService(repo, nil).CreateTask(context.Background(), services.CreateTaskParams{
		Title:   "write report",
		DueDate: today(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusTodo, created.Status)
	assert.Empty(t, created.PreviousStatus, "a fresh task has no previous status")
	repo.AssertExpectations(t)
}

func TestCreateTask_PastDueDate(t *testing.T) {
	repo := new(MockTaskRepository)

	_, err := newTaskService(repo, nil).CreateTask(context.Background(), services.CreateTaskParams{
		Title:   "too late",
		DueDate: yesterday(),
	})

	assert.ErrorIs(t, err, services.ErrInvalidDueDate)
	repo.AssertNotCalled(t, "Save")
}

func TestCreateTask_UnparsableDueDate(t *testing.T) {
	repo := new(MockTaskRepository)

	_, err := newTaskService(repo, nil).CreateTask(context.Background(), services.CreateTaskParams{
		Title:   "when?",
		DueDate: "soon",
	})

	assert.ErrorIs(t, err, services.ErrInvalidDueDate)
}

func TestUpdateTask_PartialFields(t *testing.T) {
	repo := new(MockTaskRepository)
	existing := storedTask("t1")
	existing.Status = models.StatusDone
	existing.PreviousStatus = models.StatusInProgress
	repo.On("FindByID", mock.Anything, "t1").Return(existing, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)

	title := "new title"
	updated, err := newTaskService(repo, nil).UpdateTask(context.Background(), services.UpdateTaskParams{
		ID:    "t1",
		Title: &title,
	})
	require.NoError(t, err)

	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, models.StatusDone, updated.Status, "update must not touch status")
	assert.Equal(t, models.StatusInProgress, updated.PreviousStatus, "update must not touch previous status")
}

func TestUpdateTask_RevalidatesDueDate(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("FindByID", mock.Anything, "t1").Return(storedTask("t1"), nil)

	due := yesterday()
	_, err := newTaskService(repo, nil).UpdateTask(context.Background(), services.UpdateTaskParams{
		ID:      "t1",
		DueDate: &due,
	})

	assert.ErrorIs(t, err, services.ErrInvalidDueDate)
	repo.AssertNotCalled(t, "Update")
}

func TestUpdateTask_NotFound(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("FindByID", mock.Anything, "ghost").Return(nil, task.ErrNotFound)

	_, err := newTaskService(repo, nil).UpdateTask(context.Background(), services.UpdateTaskParams{ID: "ghost"})
	assert.ErrorIs(t, err, services.ErrTaskNotFound)
}

func TestSetTaskStatus_RecordsPrevious(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("FindByID", mock.Anything, "t1").Return(storedTask("t1"), nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)

	updated, err := newTaskService(repo, nil).SetTaskStatus(context.Background(), "t1", models.StatusDone)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Equal(t, models.StatusTodo, updated.PreviousStatus)
}

func TestSetTaskStatus_AnyTransitionAllowed(t *testing.T) {
	// DONE -> TODO directly is legal; the transition table is open.
	repo := new(MockTaskRepository)
	existing := storedTask("t1")
	existing.Status = models.StatusDone
	repo.On("FindByID", mock.Anything, "t1").Return(existing, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)

	updated, err := newTaskService(repo, nil).SetTaskStatus(context.Background(), "t1", models.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTodo, updated.Status)
	assert.Equal(t, models.StatusDone, updated.PreviousStatus)
}

func TestSetTaskStatus_UnknownStatus(t *testing.T) {
	repo := new(MockTaskRepository)

	_, err := newTaskService(repo, nil).SetTaskStatus(context.Background(), "t1", "PAUSED")
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
	repo.AssertNotCalled(t, "FindByID")
}

func TestRevertTaskStatus_FreshTask(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("FindByID", mock.Anything, "t1").Return(storedTask("t1"), nil)

	_, err := newTaskService(repo, nil).RevertTaskStatus(context.Background(), "t1")
	assert.ErrorIs(t, err, services.ErrNoPreviousStatus)
	repo.AssertNotCalled(t, "Update")
}

func TestStatusScenario_SetSetRevert(t *testing.T) {
	// IN_PROGRESS, then DONE, then revert: back to IN_PROGRESS with
	// DONE recorded as the previous status.
	repo := task.NewInMemoryRepository()
	svc := newTaskService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, services.CreateTaskParams{Title: "t", DueDate: today()})
	require.NoError(t, err)

	_, err = svc.SetTaskStatus(ctx, created.ID, models.StatusInProgress)
	require.NoError(t, err)
	_, err = svc.SetTaskStatus(ctx, created.ID, models.StatusDone)
	require.NoError(t, err)

	reverted, err := svc.RevertTaskStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reverted.Status)
	assert.Equal(t, models.StatusDone, reverted.PreviousStatus)
}

func TestRevertTwice_RestoresOriginalPair(t *testing.T) {
	repo := task.NewInMemoryRepository()
	svc := newTaskService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, services.CreateTaskParams{Title: "t", DueDate: today()})
	require.NoError(t, err)
	_, err = svc.SetTaskStatus(ctx, created.ID, models.StatusDone)
	require.NoError(t, err)

	before, err := svc.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.RevertTaskStatus(ctx, created.ID)
	require.NoError(t, err)
	after, err := svc.RevertTaskStatus(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.PreviousStatus, after.PreviousStatus)
}

func TestAssignTask_ResolvesIdentityFirst(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("FindByID", mock.Anything, "t1").Return(storedTask("t1"), nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Task")).Return(nil)
	resolver := &stubResolver{known: map[string]string{"identity-1": "Ana"}}

	identityID := "identity-1"
	result, err := newTaskService(repo, resolver).AssignTask(context.Background(), services.AssignTaskParams{
		TaskID:     "t1",
		IdentityID: &identityID,
		Token:      "caller-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "t1", result.TaskID)
	assert.Equal(t, "identity-1", result.IdentityID)
	assert.Equal(t, "Ana", result.IdentityName)
}

func TestAssignTask_UnresolvedIdentity(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("FindByID", mock.Anything, "t1").Return(storedTask("t1"), nil)

	identityID := "identity-404"
	_, err := newTaskService(repo, &stubResolver{}).AssignTask(context.Background(), services.AssignTaskParams{
		TaskID:     "t1",
		IdentityID: &identityID,
		Token:      "caller-token",
	})

	assert.ErrorIs(t, err, services.ErrIdentityNotFound)
	repo.AssertNotCalled(t, "Update")
}

func TestAssignTask_NilClearsUnconditionally(t *testing.T) {
	repo := task.NewInMemoryRepository()
	svc := newTaskService(repo, &stubResolver{known: map[string]string{"identity-1": "Ana"}})
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, services.CreateTaskParams{Title: "t", DueDate: today()})
	require.NoError(t, err)

	identityID := "identity-1"
	_, err = svc.AssignTask(ctx, services.AssignTaskParams{TaskID: created.ID, IdentityID: &identityID, Token: "tok"})
	require.NoError(t, err)

	// Clearing needs no resolution and succeeds regardless of prior state.
	result, err := svc.AssignTask(ctx, services.AssignTaskParams{TaskID: created.ID})
	require.NoError(t, err)
	assert.Empty(t, result.IdentityID)

	cleared, err := svc.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.AssignedToID)

	// And again on an already unassigned task.
	_, err = svc.AssignTask(ctx, services.AssignTaskParams{TaskID: created.ID})
	assert.NoError(t, err)
}

func TestDeleteTask_NotFound(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("Delete", mock.Anything, "ghost").Return(task.ErrNotFound)

	err := newTaskService(repo, nil).DeleteTask(context.Background(), "ghost")
	assert.ErrorIs(t, err, services.ErrTaskNotFound)
}

func TestListTasks_SurvivesDegradedEnrichment(t *testing.T) {
	repo := new(MockTaskRepository)
	assigned := storedTask("t1")
	assigned.AssignedToID = "identity-unknown"
	repo.On("FindAll", mock.Anything).Return([]*models.Task{assigned}, nil)

	enriched, err := newTaskService(repo, &stubResolver{}).ListTasks(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, enriched, 1)
	assert.Nil(t, enriched[0].AssignedTo)
}

func TestListTasks_RepositoryError(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("FindAll", mock.Anything).Return(nil, errors.New("storage down"))

	_, err := newTaskService(repo, nil).ListTasks(context.Background(), "tok")
	assert.Error(t, err)
}
