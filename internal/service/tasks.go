package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/freshness"
	"github.com/satelit-project/satelit-import/internal/repository"
	"github.com/satelit-project/satelit-import/internal/scrape"
)

// AnimeUploader pushes scraped payloads to the object store
type AnimeUploader interface {
	Upload(ctx context.Context, anime *scrape.Anime, source entity.ExternalSource) (string, error)
}

// TaskService manages the lease lifecycle of scrape tasks: it hands out
// batches of schedules to workers, folds yielded results back into the
// schedule table and releases leases when a worker is done.
type TaskService struct {
	db       repository.Database
	uploader AnimeUploader
}

// NewTaskService creates a task service. The uploader may be nil, in which
// case scraped payloads are not mirrored to the object store.
func NewTaskService(db repository.Database, uploader AnimeUploader) *TaskService {
	return &TaskService{db: db, uploader: uploader}
}

// TaskDetails describes a freshly created task. ExternalIDs[i] is the
// catalogue id of the schedule at ScheduleIDs[i].
type TaskDetails struct {
	ID          uuid.UUID
	Source      entity.ExternalSource
	ScheduleIDs []int32
	ExternalIDs []int32
}

// CreateTask registers a new task and atomically binds up to limit eligible
// schedules to it. A task with no bound schedules is still returned; the
// worker may finish it immediately.
func (s *TaskService) CreateTask(ctx context.Context, source entity.ExternalSource, limit int32) (*TaskDetails, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	task, err := tx.Tasks().Register(ctx, source)
	if err != nil {
		return nil, err
	}

	if _, err := tx.QueuedJobs().Bind(ctx, task.ID, limit); err != nil {
		return nil, err
	}

	jobs, err := tx.QueuedJobs().JobsForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	details := &TaskDetails{
		ID:          task.ID,
		Source:      task.Source,
		ScheduleIDs: make([]int32, 0, len(jobs)),
		ExternalIDs: make([]int32, 0, len(jobs)),
	}

	for _, job := range jobs {
		details.ScheduleIDs = append(details.ScheduleIDs, job.Schedule.ID)
		details.ExternalIDs = append(details.ExternalIDs, job.Schedule.ExternalID)
	}

	return details, nil
}

// YieldResult folds a scraped payload into the schedule and releases the
// corresponding lease edge, both inside one transaction. Yielding for a
// schedule whose lease is already gone is a no-op.
func (s *TaskService) YieldResult(ctx context.Context, taskID uuid.UUID, scheduleID int32, anime *scrape.Anime) error {
	if anime == nil {
		log.Printf("tasks: yield without anime entity, task %s, schedule %d", taskID, scheduleID)
		return entity.ErrMissingAnime
	}

	update := freshness.UpdateForAnime(anime)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	jobs, err := tx.QueuedJobs().JobsForTask(ctx, taskID)
	if err != nil {
		return err
	}

	leased := false
	for _, job := range jobs {
		if job.Job.ScheduleID == scheduleID {
			leased = true
			break
		}
	}
	if !leased {
		return nil
	}

	if err := tx.Schedules().UpdateForID(ctx, scheduleID, &update); err != nil {
		// a vanished schedule means the lease is stale, not a failure
		if !repository.IsNotFound(err) {
			return err
		}
	}

	if err := tx.QueuedJobs().CompleteForSchedule(ctx, taskID, scheduleID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.uploadResult(ctx, taskID, anime)
	return nil
}

// FinishTask releases every remaining lease of the task and marks it
// finished. Safe to retry; finishing a finished task is a no-op.
func (s *TaskService) FinishTask(ctx context.Context, taskID uuid.UUID) error {
	return s.db.Tasks().Finish(ctx, taskID)
}

// CleanupTasks releases all leases left over from previous runs. Called on
// startup when the operator enables cleanup.
func (s *TaskService) CleanupTasks(ctx context.Context) error {
	stale, err := s.db.Tasks().Unfinished(ctx)
	if err != nil {
		return err
	}

	released, err := s.db.QueuedJobs().ReleaseAll(ctx)
	if err != nil {
		return err
	}

	log.Printf("tasks: released %d stale leases across %d unfinished tasks", released, len(stale))
	return nil
}

// uploadResult mirrors the payload to the object store; failures only log
func (s *TaskService) uploadResult(ctx context.Context, taskID uuid.UUID, anime *scrape.Anime) {
	if s.uploader == nil {
		return
	}

	task, err := s.db.Tasks().GetByID(ctx, taskID)
	if err != nil {
		log.Printf("tasks: failed to resolve task %s for upload: %v", taskID, err)
		return
	}

	if _, err := s.uploader.Upload(ctx, anime, task.Source); err != nil {
		log.Printf("tasks: failed to upload scraped payload: %v", err)
	}
}
