// Package memory provides an in-memory Database implementation used by
// handler tests and local development. All operations are guarded by a
// single mutex, which also stands in for transactional atomicity.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

// Database is an in-memory implementation of repository.Database
type Database struct {
	mu sync.Mutex

	nextScheduleID int32
	schedules      map[int32]*entity.Schedule
	tasks          map[uuid.UUID]*entity.Task
	jobs           map[uuid.UUID]*entity.QueuedJob
}

// New creates an empty in-memory database
func New() *Database {
	return &Database{
		nextScheduleID: 1,
		schedules:      make(map[int32]*entity.Schedule),
		tasks:          make(map[uuid.UUID]*entity.Task),
		jobs:           make(map[uuid.UUID]*entity.QueuedJob),
	}
}

// BeginTx returns a transaction view over the same state. Commit and
// Rollback are no-ops; the mutex in each operation provides atomicity.
func (d *Database) BeginTx(ctx context.Context) (repository.Transaction, error) {
	return &transaction{db: d}, nil
}

// Schedules returns the schedules repository
func (d *Database) Schedules() repository.ScheduleRepository {
	return &scheduleRepo{db: d}
}

// Tasks returns the tasks repository
func (d *Database) Tasks() repository.TaskRepository {
	return &taskRepo{db: d}
}

// QueuedJobs returns the queued jobs repository
func (d *Database) QueuedJobs() repository.QueuedJobRepository {
	return &queuedJobRepo{db: d}
}

// Close releases nothing
func (d *Database) Close() error {
	return nil
}

// Health always reports healthy
func (d *Database) Health(ctx context.Context) error {
	return nil
}

type transaction struct {
	db *Database
}

func (t *transaction) Commit() error   { return nil }
func (t *transaction) Rollback() error { return nil }

func (t *transaction) Schedules() repository.ScheduleRepository {
	return &scheduleRepo{db: t.db}
}

func (t *transaction) Tasks() repository.TaskRepository {
	return &taskRepo{db: t.db}
}

func (t *transaction) QueuedJobs() repository.QueuedJobRepository {
	return &queuedJobRepo{db: t.db}
}

// scheduleRepo implements repository.ScheduleRepository in memory
type scheduleRepo struct {
	db *Database
}

func (r *scheduleRepo) Put(ctx context.Context, sched entity.NewSchedule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, s := range r.db.schedules {
		if s.Source == sched.Source && s.ExternalID == sched.ExternalID {
			return nil
		}
	}

	now := entity.Now()
	s := &entity.Schedule{
		ID:         r.db.nextScheduleID,
		ExternalID: sched.ExternalID,
		Source:     sched.Source,
		State:      entity.StatePending,
		Priority:   entity.PriorityNeedAiringDetails,
		HasAniDBID: sched.HasAniDBID,
		HasMALID:   sched.HasMALID,
		HasANNID:   sched.HasANNID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.db.nextScheduleID++
	r.db.schedules[s.ID] = s
	return nil
}

func (r *scheduleRepo) Pop(ctx context.Context, source entity.ExternalSource, externalID int32) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, s := range r.db.schedules {
		if s.Source == source && s.ExternalID == externalID {
			delete(r.db.schedules, id)
			return nil
		}
	}

	return nil
}

func (r *scheduleRepo) UpdateForID(ctx context.Context, id int32, update *entity.UpdatedSchedule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.schedules[id]
	if !ok {
		return &repository.NotFoundError{ResourceType: "Schedule", ResourceID: fmt.Sprintf("%d", id)}
	}

	next := update.NextUpdateAt
	s.NextUpdateAt = &next
	s.Priority = update.Priority()
	s.HasPoster = update.HasPoster
	s.HasStartAirDate = update.HasStartAirDate
	s.HasEndAirDate = update.HasEndAirDate
	s.HasType = update.HasType
	s.HasAniDBID = update.HasAniDBID
	s.HasMALID = update.HasMALID
	s.HasANNID = update.HasANNID
	s.HasTags = update.HasTags
	s.HasEpCount = update.HasEpCount
	s.HasAllEps = update.HasAllEps
	s.HasRating = update.HasRating
	s.HasDescription = update.HasDescription
	s.SrcCreatedAt = update.SrcCreatedAt
	s.SrcUpdatedAt = update.SrcUpdatedAt
	s.UpdateCount++
	s.UpdatedAt = entity.Now()

	return nil
}

func (r *scheduleRepo) GetByID(ctx context.Context, id int32) (*entity.Schedule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.schedules[id]
	if !ok {
		return nil, &repository.NotFoundError{ResourceType: "Schedule", ResourceID: fmt.Sprintf("%d", id)}
	}

	copied := *s
	return &copied, nil
}

func (r *scheduleRepo) GetByExternalID(ctx context.Context, source entity.ExternalSource, externalID int32) (*entity.Schedule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, s := range r.db.schedules {
		if s.Source == source && s.ExternalID == externalID {
			copied := *s
			return &copied, nil
		}
	}

	return nil, &repository.NotFoundError{
		ResourceType: "Schedule",
		ResourceID:   fmt.Sprintf("%s/%d", source, externalID),
	}
}

func (r *scheduleRepo) Count(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return int64(len(r.db.schedules)), nil
}

// taskRepo implements repository.TaskRepository in memory
type taskRepo struct {
	db *Database
}

func (r *taskRepo) Register(ctx context.Context, source entity.ExternalSource) (*entity.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := entity.Now()
	task := &entity.Task{
		ID:        uuid.New(),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.db.tasks[task.ID] = task
	copied := *task
	return &copied, nil
}

func (r *taskRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	task, ok := r.db.tasks[id]
	if !ok {
		return nil, &repository.NotFoundError{ResourceType: "Task", ResourceID: id.String()}
	}

	copied := *task
	copied.ScheduleIDs = r.db.scheduleIDsForTask(id)
	return &copied, nil
}

func (r *taskRepo) Unfinished(ctx context.Context) ([]*entity.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var tasks []*entity.Task
	for _, task := range r.db.tasks {
		if task.Finished {
			continue
		}

		copied := *task
		copied.ScheduleIDs = r.db.scheduleIDsForTask(task.ID)
		tasks = append(tasks, &copied)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks, nil
}

func (r *taskRepo) Finish(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for jobID, job := range r.db.jobs {
		if job.TaskID != id {
			continue
		}

		if s, ok := r.db.schedules[job.ScheduleID]; ok {
			s.State = entity.StatePending
			s.UpdatedAt = entity.Now()
		}
		delete(r.db.jobs, jobID)
	}

	if task, ok := r.db.tasks[id]; ok {
		task.Finished = true
		task.UpdatedAt = entity.Now()
	}

	return nil
}

// queuedJobRepo implements repository.QueuedJobRepository in memory
type queuedJobRepo struct {
	db *Database
}

func (r *queuedJobRepo) Bind(ctx context.Context, taskID uuid.UUID, limit int32) (int32, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := time.Now().UTC()
	var eligible []*entity.Schedule
	for _, s := range r.db.schedules {
		if s.State != entity.StatePending {
			continue
		}
		if s.NextUpdateAt != nil && s.NextUpdateAt.After(now) {
			continue
		}
		eligible = append(eligible, s)
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		switch {
		case a.NextUpdateAt == nil && b.NextUpdateAt != nil:
			return true
		case a.NextUpdateAt != nil && b.NextUpdateAt == nil:
			return false
		case a.NextUpdateAt != nil && b.NextUpdateAt != nil && !a.NextUpdateAt.Equal(*b.NextUpdateAt):
			return a.NextUpdateAt.Before(*b.NextUpdateAt)
		}
		return a.ID < b.ID
	})

	if int32(len(eligible)) > limit {
		eligible = eligible[:limit]
	}

	for _, s := range eligible {
		job := &entity.QueuedJob{
			ID:         uuid.New(),
			TaskID:     taskID,
			ScheduleID: s.ID,
		}

		r.db.jobs[job.ID] = job
		s.State = entity.StateProcessing
		s.UpdatedAt = entity.Now()
	}

	return int32(len(eligible)), nil
}

func (r *queuedJobRepo) JobsForTask(ctx context.Context, taskID uuid.UUID) ([]repository.JobWithSchedule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var jobs []repository.JobWithSchedule
	for _, job := range r.db.jobs {
		if job.TaskID != taskID {
			continue
		}

		s, ok := r.db.schedules[job.ScheduleID]
		if !ok {
			continue
		}

		jobs = append(jobs, repository.JobWithSchedule{Job: *job, Schedule: *s})
	}

	sort.Slice(jobs, func(i, j int) bool {
		a, b := jobs[i].Schedule, jobs[j].Schedule
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})

	return jobs, nil
}

func (r *queuedJobRepo) CompleteForSchedule(ctx context.Context, taskID uuid.UUID, scheduleID int32) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for jobID, job := range r.db.jobs {
		if job.TaskID != taskID || job.ScheduleID != scheduleID {
			continue
		}

		delete(r.db.jobs, jobID)
		if s, ok := r.db.schedules[scheduleID]; ok {
			s.State = entity.StatePending
			s.UpdatedAt = entity.Now()
		}
		return nil
	}

	return nil
}

func (r *queuedJobRepo) ReleaseAll(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	released := int64(len(r.db.jobs))
	for jobID, job := range r.db.jobs {
		if s, ok := r.db.schedules[job.ScheduleID]; ok {
			s.State = entity.StatePending
			s.UpdatedAt = entity.Now()
		}
		delete(r.db.jobs, jobID)
	}

	return released, nil
}

func (r *queuedJobRepo) CountForTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var count int64
	for _, job := range r.db.jobs {
		if job.TaskID == taskID {
			count++
		}
	}

	return count, nil
}

func (d *Database) scheduleIDsForTask(taskID uuid.UUID) []int32 {
	ids := []int32{}
	for _, job := range d.jobs {
		if job.TaskID == taskID {
			ids = append(ids, job.ScheduleID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
