package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

func TestRepositories_Integration(t *testing.T) {
	ctx := context.Background()
	helper := NewPostgresTestHelper(ctx, t)
	defer helper.Close(t)

	db := helper.DB()

	t.Run("put is idempotent", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		sched := entity.MakeNewSchedule(1, entity.SourceAniDB)
		require.NoError(t, db.Schedules().Put(ctx, sched))
		require.NoError(t, db.Schedules().Put(ctx, sched))

		count, err := db.Schedules().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		loaded, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, 1)
		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, loaded.State)
		assert.Equal(t, entity.PriorityNeedAiringDetails, loaded.Priority)
		assert.True(t, loaded.HasAniDBID)
		assert.False(t, loaded.HasMALID)
		assert.Nil(t, loaded.NextUpdateAt)
	})

	t.Run("pop removes by natural key", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(2, entity.SourceAniDB)))
		require.NoError(t, db.Schedules().Pop(ctx, entity.SourceAniDB, 2))
		require.NoError(t, db.Schedules().Pop(ctx, entity.SourceAniDB, 2))

		count, err := db.Schedules().Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("update recomputes priority and counters", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(3, entity.SourceAniDB)))
		sched, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, 3)
		require.NoError(t, err)

		next := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
		update := entity.UpdatedSchedule{
			NextUpdateAt:    next,
			HasStartAirDate: true,
			HasEndAirDate:   true,
			HasType:         true,
			HasEpCount:      true,
			HasTags:         true,
		}

		require.NoError(t, db.Schedules().UpdateForID(ctx, sched.ID, &update))

		updated, err := db.Schedules().GetByID(ctx, sched.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.PriorityNeedDescription, updated.Priority)
		assert.Equal(t, int32(1), updated.UpdateCount)
		require.NotNil(t, updated.NextUpdateAt)
		assert.WithinDuration(t, next, *updated.NextUpdateAt, time.Second)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
	})

	t.Run("update unknown id is not found", func(t *testing.T) {
		err := db.Schedules().UpdateForID(ctx, 424242, &entity.UpdatedSchedule{NextUpdateAt: time.Now()})
		assert.True(t, repository.IsNotFound(err))
	})

	t.Run("register and fetch task", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)

		loaded, err := db.Tasks().GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, loaded.ID)
		assert.Equal(t, entity.SourceAniDB, loaded.Source)
		assert.False(t, loaded.Finished)
		assert.Empty(t, loaded.ScheduleIDs)
	})

	t.Run("bind respects limit and ordering", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		for id := int32(1); id <= 3; id++ {
			require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(id, entity.SourceAniDB)))
		}

		// push external id 2 down the priority ladder
		two, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, 2)
		require.NoError(t, err)
		update := entity.UpdatedSchedule{
			NextUpdateAt:    time.Now().UTC().Add(-time.Hour),
			HasStartAirDate: true,
			HasEndAirDate:   true,
			HasType:         true,
			HasEpCount:      true,
		}
		require.NoError(t, db.Schedules().UpdateForID(ctx, two.ID, &update))

		task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)

		bound, err := db.QueuedJobs().Bind(ctx, task.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, int32(2), bound)

		jobs, err := db.QueuedJobs().JobsForTask(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, jobs, 2)

		// the two untouched schedules have the highest priority
		for _, job := range jobs {
			assert.Equal(t, entity.PriorityNeedAiringDetails, job.Schedule.Priority)
			assert.Equal(t, entity.StateProcessing, job.Schedule.State)
		}

		// the demoted schedule goes to the next task
		other, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)

		bound, err = db.QueuedJobs().Bind(ctx, other.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, int32(1), bound)

		jobs, err = db.QueuedJobs().JobsForTask(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, two.ID, jobs[0].Schedule.ID)
	})

	t.Run("bind skips schedules not yet due", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(9, entity.SourceAniDB)))
		sched, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, 9)
		require.NoError(t, err)

		update := entity.UpdatedSchedule{NextUpdateAt: time.Now().UTC().Add(time.Hour)}
		require.NoError(t, db.Schedules().UpdateForID(ctx, sched.ID, &update))

		task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)

		bound, err := db.QueuedJobs().Bind(ctx, task.ID, 10)
		require.NoError(t, err)
		assert.Zero(t, bound)
	})

	t.Run("parallel binds never share a schedule", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		for id := int32(1); id <= 20; id++ {
			require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(id, entity.SourceAniDB)))
		}

		const workers = 4
		results := make([][]repository.JobWithSchedule, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
				if err != nil {
					t.Errorf("register failed: %v", err)
					return
				}

				if _, err := db.QueuedJobs().Bind(ctx, task.ID, 5); err != nil {
					t.Errorf("bind failed: %v", err)
					return
				}

				jobs, err := db.QueuedJobs().JobsForTask(ctx, task.ID)
				if err != nil {
					t.Errorf("jobs lookup failed: %v", err)
					return
				}

				results[i] = jobs
			}(i)
		}
		wg.Wait()

		seen := make(map[int32]bool)
		total := 0
		for _, jobs := range results {
			for _, job := range jobs {
				assert.False(t, seen[job.Schedule.ID], "schedule %d bound twice", job.Schedule.ID)
				seen[job.Schedule.ID] = true
				total++
			}
		}
		assert.Equal(t, 20, total)
	})

	t.Run("complete releases lease and is idempotent", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(5, entity.SourceAniDB)))

		task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)

		_, err = db.QueuedJobs().Bind(ctx, task.ID, 1)
		require.NoError(t, err)

		sched, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, 5)
		require.NoError(t, err)
		assert.Equal(t, entity.StateProcessing, sched.State)

		require.NoError(t, db.QueuedJobs().CompleteForSchedule(ctx, task.ID, sched.ID))
		require.NoError(t, db.QueuedJobs().CompleteForSchedule(ctx, task.ID, sched.ID))

		sched, err = db.Schedules().GetByID(ctx, sched.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, sched.State)

		count, err := db.QueuedJobs().CountForTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("finish releases remaining leases", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		for id := int32(1); id <= 3; id++ {
			require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(id, entity.SourceAniDB)))
		}

		task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)

		_, err = db.QueuedJobs().Bind(ctx, task.ID, 3)
		require.NoError(t, err)

		require.NoError(t, db.Tasks().Finish(ctx, task.ID))
		require.NoError(t, db.Tasks().Finish(ctx, task.ID))

		loaded, err := db.Tasks().GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, loaded.Finished)
		assert.Empty(t, loaded.ScheduleIDs)

		for id := int32(1); id <= 3; id++ {
			sched, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, id)
			require.NoError(t, err)
			assert.Equal(t, entity.StatePending, sched.State)
		}
	})

	t.Run("unfinished lists open tasks only", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		open, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)
		closed, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)
		require.NoError(t, db.Tasks().Finish(ctx, closed.ID))

		tasks, err := db.Tasks().Unfinished(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, open.ID, tasks[0].ID)
	})

	t.Run("release all resets every lease", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		for id := int32(1); id <= 4; id++ {
			require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(id, entity.SourceAniDB)))
		}

		task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)
		_, err = db.QueuedJobs().Bind(ctx, task.ID, 4)
		require.NoError(t, err)

		released, err := db.QueuedJobs().ReleaseAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), released)

		for id := int32(1); id <= 4; id++ {
			sched, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, id)
			require.NoError(t, err)
			assert.Equal(t, entity.StatePending, sched.State)
		}
	})

	t.Run("transactional yield", func(t *testing.T) {
		helper.ClearTables(ctx, t)

		require.NoError(t, db.Schedules().Put(ctx, entity.MakeNewSchedule(7, entity.SourceAniDB)))

		task, err := db.Tasks().Register(ctx, entity.SourceAniDB)
		require.NoError(t, err)
		_, err = db.QueuedJobs().Bind(ctx, task.ID, 1)
		require.NoError(t, err)

		sched, err := db.Schedules().GetByExternalID(ctx, entity.SourceAniDB, 7)
		require.NoError(t, err)

		tx, err := db.BeginTx(ctx)
		require.NoError(t, err)

		update := entity.UpdatedSchedule{NextUpdateAt: time.Now().UTC().Add(time.Hour), HasPoster: true}
		require.NoError(t, tx.Schedules().UpdateForID(ctx, sched.ID, &update))
		require.NoError(t, tx.QueuedJobs().CompleteForSchedule(ctx, task.ID, sched.ID))
		require.NoError(t, tx.Commit())

		sched, err = db.Schedules().GetByID(ctx, sched.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatePending, sched.State)
		assert.True(t, sched.HasPoster)
		assert.Equal(t, int32(1), sched.UpdateCount)
	})
}
