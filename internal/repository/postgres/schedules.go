package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint failures
const uniqueViolation = "23505"

// ScheduleRepository implements repository.ScheduleRepository for PostgreSQL
type ScheduleRepository struct {
	db querier
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `
	id, external_id, source, state, priority, next_update_at, update_count,
	has_poster, has_start_air_date, has_end_air_date, has_type,
	has_anidb_id, has_mal_id, has_ann_id, has_tags, has_ep_count,
	has_all_eps, has_rating, has_description,
	src_created_at, src_updated_at, created_at, updated_at
`

// Put inserts a new schedule. A schedule with the same (source, external_id)
// already present makes the call a no-op.
func (r *ScheduleRepository) Put(ctx context.Context, sched entity.NewSchedule) error {
	query := `
		INSERT INTO schedules (external_id, source, has_anidb_id, has_mal_id, has_ann_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, external_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		sched.ExternalID,
		string(sched.Source),
		sched.HasAniDBID,
		sched.HasMALID,
		sched.HasANNID,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return &repository.ConflictError{
				ResourceType: "Schedule",
				ResourceID:   fmt.Sprintf("%s/%d", sched.Source, sched.ExternalID),
			}
		}
		return mapError("failed to put schedule", err)
	}

	return nil
}

// Pop removes a schedule by natural key. A missing row is a no-op.
func (r *ScheduleRepository) Pop(ctx context.Context, source entity.ExternalSource, externalID int32) error {
	query := `DELETE FROM schedules WHERE source = $1 AND external_id = $2`

	if _, err := r.db.ExecContext(ctx, query, string(source), externalID); err != nil {
		return mapError("failed to pop schedule", err)
	}

	return nil
}

// UpdateForID applies the patch, increments update_count and recomputes the
// priority from the patch's completeness flags.
func (r *ScheduleRepository) UpdateForID(ctx context.Context, id int32, update *entity.UpdatedSchedule) error {
	query := `
		UPDATE schedules
		SET priority = $1, next_update_at = $2,
		    has_poster = $3, has_start_air_date = $4, has_end_air_date = $5,
		    has_type = $6, has_anidb_id = $7, has_mal_id = $8, has_ann_id = $9,
		    has_tags = $10, has_ep_count = $11, has_all_eps = $12,
		    has_rating = $13, has_description = $14,
		    src_created_at = $15, src_updated_at = $16,
		    update_count = update_count + 1, updated_at = NOW()
		WHERE id = $17
	`

	result, err := r.db.ExecContext(ctx, query,
		int(update.Priority()),
		update.NextUpdateAt,
		update.HasPoster,
		update.HasStartAirDate,
		update.HasEndAirDate,
		update.HasType,
		update.HasAniDBID,
		update.HasMALID,
		update.HasANNID,
		update.HasTags,
		update.HasEpCount,
		update.HasAllEps,
		update.HasRating,
		update.HasDescription,
		update.SrcCreatedAt,
		update.SrcUpdatedAt,
		id,
	)

	if err != nil {
		return mapError("failed to update schedule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &repository.NotFoundError{
			ResourceType: "Schedule",
			ResourceID:   fmt.Sprintf("%d", id),
		}
	}

	return nil
}

// GetByID retrieves a schedule by surrogate id
func (r *ScheduleRepository) GetByID(ctx context.Context, id int32) (*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), fmt.Sprintf("%d", id))
}

// GetByExternalID retrieves a schedule by natural key
func (r *ScheduleRepository) GetByExternalID(ctx context.Context, source entity.ExternalSource, externalID int32) (*entity.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE source = $1 AND external_id = $2`
	row := r.db.QueryRowContext(ctx, query, string(source), externalID)
	return r.scanOne(row, fmt.Sprintf("%s/%d", source, externalID))
}

// Count returns the total number of schedules
func (r *ScheduleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules`).Scan(&count); err != nil {
		return 0, mapError("failed to count schedules", err)
	}

	return count, nil
}

func (r *ScheduleRepository) scanOne(row *sql.Row, resourceID string) (*entity.Schedule, error) {
	sched := &entity.Schedule{}

	err := row.Scan(
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

	if err == sql.ErrNoRows {
		return nil, &repository.NotFoundError{
			ResourceType: "Schedule",
			ResourceID:   resourceID,
		}
	}
	if err != nil {
		return nil, mapError("failed to get schedule", err)
	}

	return sched, nil
}
