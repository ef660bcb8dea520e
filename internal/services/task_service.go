package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/identityclient"
	"github.com/jpvillegas/taskmesh/internal/models"
	"github.com/jpvillegas/taskmesh/internal/repository/task"
)

// dueDateLayouts are the accepted wire formats for due dates.
var dueDateLayouts = []string{time.RFC3339, "2006-01-02"}

type taskServiceImpl struct {
	logger   zerolog.Logger
	repo     task.Repository
	resolver IdentityResolver
}

func NewTaskService(
	logger zerolog.Logger,
	repo task.Repository,
	resolver IdentityResolver,
) TaskService {
	return &taskServiceImpl{
		logger:   logger,
		repo:     repo,
		resolver: resolver,
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	dueDate, err := parseDueDate(params.DueDate)
	if err != nil {
		s.logger.Error().
			Str("due_date", params.DueDate).
			Msg("rejected due date")
		return nil, err
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}

	now := time.Now()
	t := &models.Task{
		ID:           taskUUID.String(),
		Title:        params.Title,
		Description:  params.Description,
		Status:       models.StatusTodo,
		DueDate:      dueDate,
		AssignedToID: params.AssignedToID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.Save(ctx, t)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", t.ID).
		Msg("created task")
	return t, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	t, err := s.findTask(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		t.Title = *params.Title
	}
	if params.Description != nil {
		t.Description = *params.Description
	}
	if params.DueDate != nil {
		dueDate, err := parseDueDate(*params.DueDate)
		if err != nil {
			s.logger.Error().
				Str("task_id", t.ID).
				Str("due_date", *params.DueDate).
				Msg("rejected due date")
			return nil, err
		}
		t.DueDate = dueDate
	}
	if params.AssignedToID != nil {
		t.AssignedToID = *params.AssignedToID
	}
	t.UpdatedAt = time.Now()

	err = s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", t.ID).
		Msg("updated task")
	return t, nil
}

func (s *taskServiceImpl) SetTaskStatus(ctx context.Context, id, status string) (*models.Task, error) {
	if !models.IsValidStatus(status) {
		s.logger.Error().
			Str("task_id", id).
			Str("status", status).
			Msg("rejected task status")
		return nil, ErrInvalidStatus
	}

	t, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}

	// Any status may move to any other status. The open transition
	// table matches the product behavior; do not add guards here
	// without a product decision.
	t.PreviousStatus = t.Status
	t.Status = status
	t.UpdatedAt = time.Now()

	err = s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", t.ID).
		Str("status", t.Status).
		Str("previous_status", t.PreviousStatus).
		Msg("updated task status")
	return t, nil
}

func (s *taskServiceImpl) RevertTaskStatus(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.findTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if t.PreviousStatus == "" {
		s.logger.Error().
			Str("task_id", t.ID).
			Msg("no previous status to revert to")
		return nil, ErrNoPreviousStatus
	}

	t.Status, t.PreviousStatus = t.PreviousStatus, t.Status
	t.UpdatedAt = time.Now()

	err = s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", t.ID).
		Str("status", t.Status).
		Msg("reverted task status")
	return t, nil
}

func (s *taskServiceImpl) AssignTask(ctx context.Context, params AssignTaskParams) (*AssignTaskResult, error) {
	t, err := s.findTask(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}

	if params.IdentityID == nil {
		t.AssignedToID = ""
		t.UpdatedAt = time.Now()

		err = s.repo.Update(ctx, t)
		if err != nil {
			return nil, err
		}

		s.logger.Info().
			Str("task_id", t.ID).
			Msg("unassigned task")
		return &AssignTaskResult{
			Message: "task unassigned",
			TaskID:  t.ID,
		}, nil
	}

	identity, err := s.resolver.ResolveOne(ctx, *params.IdentityID, params.Token)
	if err != nil {
		if errors.Is(err, identityclient.ErrIdentityNotFound) {
			s.logger.Error().
				Str("task_id", t.ID).
				Str("identity_id", *params.IdentityID).
				Msg("assignee not found")
			return nil, ErrIdentityNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", t.ID).
			Msg("failed to resolve assignee")
		return nil, err
	}

	t.AssignedToID = identity.ID
	t.UpdatedAt = time.Now()

	err = s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", t.ID).
		Str("identity_id", identity.ID).
		Msg("assigned task")
	return &AssignTaskResult{
		Message:      "task assigned",
		TaskID:       t.ID,
		IdentityID:   identity.ID,
		IdentityName: identity.Name,
	}, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.logger.Error().
				Str("task_id", id).
				Msg("task not found")
			return ErrTaskNotFound
		}
		return err
	}

	s.logger.Info().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	return s.findTask(ctx, id)
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, token string) ([]identityclient.EnrichedTask, error) {
	tasks, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	enriched := s.resolver.Enrich(ctx, tasks, token)
	s.logger.Debug().
		Int("count", len(enriched)).
		Msg("listed tasks")
	return enriched, nil
}

func (s *taskServiceImpl) ListTasksByAssignee(ctx context.Context, identityID, token string) ([]identityclient.EnrichedTask, error) {
	tasks, err := s.repo.FindByAssignee(ctx, identityID)
	if err != nil {
		return nil, err
	}

	enriched := s.resolver.Enrich(ctx, tasks, token)
	s.logger.Debug().
		Int("count", len(enriched)).
		Str("identity_id", identityID).
		Msg("listed tasks by assignee")
	return enriched, nil
}

// findTask is the single existence check behind every operation that
// targets one task.
func (s *taskServiceImpl) findTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			s.logger.Error().
				Str("task_id", id).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

func parseDueDate(raw string) (time.Time, error) {
	var parsed time.Time
	var err error
	for _, layout := range dueDateLayouts {
		parsed, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, ErrInvalidDueDate
	}

	now := time.Now().In(parsed.Location())
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, parsed.Location())
	if parsed.Before(startOfToday) {
		return time.Time{}, ErrInvalidDueDate
	}
	return parsed, nil
}
