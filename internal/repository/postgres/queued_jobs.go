package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

// QueuedJobRepository implements repository.QueuedJobRepository for PostgreSQL
type QueuedJobRepository struct {
	db querier
}

// NewQueuedJobRepository creates a new QueuedJobRepository
func NewQueuedJobRepository(db *sql.DB) *QueuedJobRepository {
	return &QueuedJobRepository{db: db}
}

// Bind leases up to limit eligible schedules to the task. Selection and the
// state flip happen in one statement so concurrent binds never hand the same
// schedule to two tasks; locked rows are skipped instead of awaited.
func (r *QueuedJobRepository) Bind(ctx context.Context, taskID uuid.UUID, limit int32) (int32, error) {
	query := `
		WITH eligible AS (
			SELECT id FROM schedules
			WHERE state = $2
			  AND (next_update_at IS NULL OR next_update_at <= NOW())
			ORDER BY priority DESC, next_update_at ASC NULLS FIRST, id ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		), queued AS (
			INSERT INTO queued_jobs (id, task_id, schedule_id)
			SELECT gen_random_uuid(), $1, id FROM eligible
			RETURNING schedule_id
		)
		UPDATE schedules SET state = $4, updated_at = NOW()
		WHERE id IN (SELECT schedule_id FROM queued)
	`

	result, err := r.db.ExecContext(ctx, query,
		taskID,
		string(entity.StatePending),
		limit,
		string(entity.StateProcessing),
	)
	if err != nil {
		return 0, mapError("failed to bind schedules", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int32(rows), nil
}

// JobsForTask lists the task's queued jobs with the referenced schedules
func (r *QueuedJobRepository) JobsForTask(ctx context.Context, taskID uuid.UUID) ([]repository.JobWithSchedule, error) {
	query := `
		SELECT q.id, q.task_id, q.schedule_id,
		       s.id, s.external_id, s.source, s.state, s.priority,
		       s.next_update_at, s.update_count,
		       s.has_poster, s.has_start_air_date, s.has_end_air_date, s.has_type,
		       s.has_anidb_id, s.has_mal_id, s.has_ann_id, s.has_tags, s.has_ep_count,
		       s.has_all_eps, s.has_rating, s.has_description,
		       s.src_created_at, s.src_updated_at, s.created_at, s.updated_at
		FROM queued_jobs q
		JOIN schedules s ON s.id = q.schedule_id
		WHERE q.task_id = $1
		ORDER BY s.priority DESC, s.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, mapError("failed to query queued jobs", err)
	}
	defer rows.Close()

	var jobs []repository.JobWithSchedule
	for rows.Next() {
		var item repository.JobWithSchedule
		sched := &item.Schedule

		err := rows.Scan(
			&item.Job.ID,
			&item.Job.TaskID,
			&item.Job.ScheduleID,
			&sched.ID,
			&sched.ExternalID,
			(*string)(&sched.Source),
			(*string)(&sched.State),
			(*int)(&sched.Priority),
			&sched.NextUpdateAt,
			&sched.UpdateCount,
			&sched.HasPoster,
			&sched.HasStartAirDate,
			&sched.HasEndAirDate,
			&sched.HasType,
			&sched.HasAniDBID,
			&sched.HasMALID,
			&sched.HasANNID,
			&sched.HasTags,
			&sched.HasEpCount,
			&sched.HasAllEps,
			&sched.HasRating,
			&sched.HasDescription,
			&sched.SrcCreatedAt,
			&sched.SrcUpdatedAt,
			&sched.CreatedAt,
			&sched.UpdatedAt,
		)
		if err != nil {
			return nil, mapError("failed to scan queued job", err)
		}

		jobs = append(jobs, item)
	}

	return jobs, rows.Err()
}

// CompleteForSchedule drops the single lease edge and returns the schedule
// to Pending in one statement. A missing edge makes the call a no-op.
func (r *QueuedJobRepository) CompleteForSchedule(ctx context.Context, taskID uuid.UUID, scheduleID int32) error {
	query := `
		WITH removed AS (
			DELETE FROM queued_jobs
			WHERE task_id = $1 AND schedule_id = $2
			RETURNING schedule_id
		)
		UPDATE schedules SET state = $3, updated_at = NOW()
		WHERE id IN (SELECT schedule_id FROM removed)
	`

	_, err := r.db.ExecContext(ctx, query, taskID, scheduleID, string(entity.StatePending))
	if err != nil {
		return mapError("failed to complete queued job", err)
	}

	return nil
}

// ReleaseAll drops every lease edge and resets the referenced schedules to
// Pending. Used on startup cleanup; returns the number of released jobs.
func (r *QueuedJobRepository) ReleaseAll(ctx context.Context) (int64, error) {
	query := `
		WITH released AS (
			DELETE FROM queued_jobs
			RETURNING schedule_id
		)
		UPDATE schedules SET state = $1, updated_at = NOW()
		WHERE id IN (SELECT schedule_id FROM released)
	`

	result, err := r.db.ExecContext(ctx, query, string(entity.StatePending))
	if err != nil {
		return 0, mapError("failed to release queued jobs", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// CountForTask returns the number of queued jobs bound to the task
func (r *QueuedJobRepository) CountForTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queued_jobs WHERE task_id = $1`, taskID).
		Scan(&count)
	if err != nil {
		return 0, mapError("failed to count queued jobs", err)
	}

	return count, nil
}
