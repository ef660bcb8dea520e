package task

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/models"
)

type postgresRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewPostgresRepository(logger zerolog.Logger, pgPool *pgxpool.Pool) Repository {
	return &postgresRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

func (r *postgresRepository) Save(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (id,
                   title,
                   description,
                   status,
                   previous_status,
                   due_date,
                   assigned_to_id,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)
`
	_, err := r.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.PreviousStatus,
		task.DueDate,
		task.AssignedToID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to insert task")
		return err
	}
	r.logger.Debug().
		Str("task_id", task.ID).
		Msg("inserted task")
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, task *models.Task) error {
	const updateTaskQuery = `
UPDATE tasks
SET title = $1,
    description = $2,
    status = $3,
    previous_status = NULLIF($4, ''),
    due_date = $5,
    assigned_to_id = NULLIF($6, ''),
    updated_at = $7
WHERE id = $8
`
	tag, err := r.pgPool.Exec(
		ctx,
		updateTaskQuery,
		task.Title,
		task.Description,
		task.Status,
		task.PreviousStatus,
		task.DueDate,
		task.AssignedToID,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Debug().
		Str("task_id", task.ID).
		Msg("updated task")
	return nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	const selectTaskQuery = `
SELECT id,
       title,
       description,
       status,
       COALESCE(previous_status, ''),
       due_date,
       COALESCE(assigned_to_id, ''),
       created_at,
       updated_at
FROM tasks
WHERE id = $1
`
	task := new(models.Task)
	err := r.pgPool.QueryRow(ctx, selectTaskQuery, id).Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.PreviousStatus,
		&task.DueDate,
		&task.AssignedToID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to select task")
		return nil, err
	}
	return task, nil
}

func (r *postgresRepository) FindAll(ctx context.Context) ([]*models.Task, error) {
	const selectTasksQuery = `
SELECT id,
       title,
       description,
       status,
       COALESCE(previous_status, ''),
       due_date,
       COALESCE(assigned_to_id, ''),
       created_at,
       updated_at
FROM tasks
ORDER BY created_at
`
	return r.selectTasks(ctx, selectTasksQuery)
}

func (r *postgresRepository) FindByAssignee(ctx context.Context, identityID string) ([]*models.Task, error) {
	const selectTasksByAssigneeQuery = `
SELECT id,
       title,
       description,
       status,
       COALESCE(previous_status, ''),
       due_date,
       COALESCE(assigned_to_id, ''),
       created_at,
       updated_at
FROM tasks
WHERE assigned_to_id = $1
ORDER BY created_at
`
	return r.selectTasks(ctx, selectTasksByAssigneeQuery, identityID)
}

func (r *postgresRepository) selectTasks(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.pgPool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := new(models.Task)
		err = rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.PreviousStatus,
			&task.DueDate,
			&task.AssignedToID,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	return tasks, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := r.pgPool.Exec(ctx, deleteTaskQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Debug().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}
