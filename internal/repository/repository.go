package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/satelit-project/satelit-import/internal/entity"
)

// Database provides access to all repositories
type Database interface {
	// Transaction management
	BeginTx(ctx context.Context) (Transaction, error)

	// Repository accessors
	Schedules() ScheduleRepository
	Tasks() TaskRepository
	QueuedJobs() QueuedJobRepository

	// Connection management
	Close() error
	Health(ctx context.Context) error
}

// Transaction represents a database transaction over the same repositories
type Transaction interface {
	Commit() error
	Rollback() error

	Schedules() ScheduleRepository
	Tasks() TaskRepository
	QueuedJobs() QueuedJobRepository
}

// ScheduleRepository defines data access operations for the schedules table
type ScheduleRepository interface {
	// Put inserts a new schedule; a duplicate (source, external_id) is a no-op
	Put(ctx context.Context, sched entity.NewSchedule) error

	// Pop removes a schedule by natural key; a missing row is a no-op
	Pop(ctx context.Context, source entity.ExternalSource, externalID int32) error

	// UpdateForID applies the patch, bumps update_count and recomputes priority
	UpdateForID(ctx context.Context, id int32, update *entity.UpdatedSchedule) error

	// GetByID retrieves a schedule by surrogate id
	GetByID(ctx context.Context, id int32) (*entity.Schedule, error)

	// GetByExternalID retrieves a schedule by natural key
	GetByExternalID(ctx context.Context, source entity.ExternalSource, externalID int32) (*entity.Schedule, error)

	// Count returns the total number of schedules
	Count(ctx context.Context) (int64, error)
}

// TaskRepository defines data access operations for the tasks table
type TaskRepository interface {
	// Register inserts a new task with a fresh id for the given source
	Register(ctx context.Context, source entity.ExternalSource) (*entity.Task, error)

	// GetByID retrieves a task together with its bound schedule ids
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Task, error)

	// Unfinished lists all tasks that have not been finished yet
	Unfinished(ctx context.Context) ([]*entity.Task, error)

	// Finish releases the task's leases and marks it finished; idempotent
	Finish(ctx context.Context, id uuid.UUID) error
}

// QueuedJobRepository defines data access operations for the queued_jobs table
type QueuedJobRepository interface {
	// Bind leases up to limit eligible schedules to the task and returns the
	// number bound; eligible rows are Pending with a due or unset next update
	Bind(ctx context.Context, taskID uuid.UUID, limit int32) (int32, error)

	// JobsForTask lists the task's queued jobs with the referenced schedules
	JobsForTask(ctx context.Context, taskID uuid.UUID) ([]JobWithSchedule, error)

	// CompleteForSchedule releases one lease edge and returns the schedule to
	// Pending; a missing edge is a no-op
	CompleteForSchedule(ctx context.Context, taskID uuid.UUID, scheduleID int32) error

	// ReleaseAll drops every lease edge and resets referenced schedules
	ReleaseAll(ctx context.Context) (int64, error)

	// CountForTask returns the number of queued jobs bound to the task
	CountForTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}

// JobWithSchedule pairs a lease edge with the schedule it references
type JobWithSchedule struct {
	Job      entity.QueuedJob
	Schedule entity.Schedule
}

// NotFoundError represents a record not found error
type NotFoundError struct {
	ResourceType string
	ResourceID   string
}

// Error implements the error interface for NotFoundError
func (e *NotFoundError) Error() string {
	return "not found: " + e.ResourceType + " " + e.ResourceID
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// ConflictError represents a unique-constraint violation
type ConflictError struct {
	ResourceType string
	ResourceID   string
}

// Error implements the error interface for ConflictError
func (e *ConflictError) Error() string {
	return "already exists: " + e.ResourceType + " " + e.ResourceID
}

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool {
	_, ok := err.(*ConflictError)
	return ok
}

// PoolExhaustedError indicates no connection became available in time
type PoolExhaustedError struct {
	Cause error
}

// Error implements the error interface for PoolExhaustedError
func (e *PoolExhaustedError) Error() string {
	return "connection pool exhausted: " + e.Cause.Error()
}

// Unwrap returns the underlying cause
func (e *PoolExhaustedError) Unwrap() error {
	return e.Cause
}

// IsPoolExhausted checks if an error is a PoolExhaustedError
func IsPoolExhausted(err error) bool {
	_, ok := err.(*PoolExhaustedError)
	return ok
}
