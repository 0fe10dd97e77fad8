package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

// TaskRepository implements repository.TaskRepository for PostgreSQL
type TaskRepository struct {
	db querier
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Register inserts a new task with a fresh id for the given source
func (r *TaskRepository) Register(ctx context.Context, source entity.ExternalSource) (*entity.Task, error) {
	task := &entity.Task{
		ID:     uuid.New(),
		Source: source,
	}

	query := `
		INSERT INTO tasks (id, source)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, task.ID, string(task.Source)).
		Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, mapError("failed to register task", err)
	}

	return task, nil
}

// GetByID retrieves a task together with its bound schedule ids
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	task := &entity.Task{}
	var scheduleIDs pq.Int32Array

	query := `
		SELECT t.id, t.source, t.finished, t.created_at, t.updated_at,
		       COALESCE(array_agg(q.schedule_id) FILTER (WHERE q.schedule_id IS NOT NULL), '{}')
		FROM tasks t
		LEFT JOIN queued_jobs q ON q.task_id = t.id
		WHERE t.id = $1
		GROUP BY t.id
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		(*string)(&task.Source),
		&task.Finished,
		&task.CreatedAt,
		&task.UpdatedAt,
		&scheduleIDs,
	)

	if err == sql.ErrNoRows {
		return nil, &repository.NotFoundError{
			ResourceType: "Task",
			ResourceID:   id.String(),
		}
	}
	if err != nil {
		return nil, mapError("failed to get task", err)
	}

	task.ScheduleIDs = []int32(scheduleIDs)
	return task, nil
}

// Unfinished lists all tasks that have not been finished yet
func (r *TaskRepository) Unfinished(ctx context.Context) ([]*entity.Task, error) {
	query := `
		SELECT t.id, t.source, t.finished, t.created_at, t.updated_at,
		       COALESCE(array_agg(q.schedule_id) FILTER (WHERE q.schedule_id IS NOT NULL), '{}')
		FROM tasks t
		LEFT JOIN queued_jobs q ON q.task_id = t.id
		WHERE t.finished = FALSE
		GROUP BY t.id
		ORDER BY t.created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError("failed to query unfinished tasks", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		task := &entity.Task{}
		var scheduleIDs pq.Int32Array

		err := rows.Scan(
			&task.ID,
			(*string)(&task.Source),
			&task.Finished,
			&task.CreatedAt,
			&task.UpdatedAt,
			&scheduleIDs,
		)
		if err != nil {
			return nil, mapError("failed to scan task", err)
		}

		task.ScheduleIDs = []int32(scheduleIDs)
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Finish drops every queued job bound to the task, returns the affected
// schedules to Pending and marks the task finished. The whole release runs
// as one statement; finishing an unknown or already finished task is a no-op.
func (r *TaskRepository) Finish(ctx context.Context, id uuid.UUID) error {
	query := `
		WITH released AS (
			DELETE FROM queued_jobs WHERE task_id = $1
			RETURNING schedule_id
		), reset AS (
			UPDATE schedules SET state = $2, updated_at = NOW()
			WHERE id IN (SELECT schedule_id FROM released)
		)
		UPDATE tasks SET finished = TRUE, updated_at = NOW() WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, string(entity.StatePending)); err != nil {
		return mapError("failed to finish task", err)
	}

	return nil
}
