// Package job dispatches dump imports through an Asynq queue as an
// alternative to calling the import surface by hand. Each enqueued job runs
// one import; nothing in this package repeats jobs on a schedule.
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// JobScheduler manages job enqueueing to Asynq
type JobScheduler struct {
	client *asynq.Client
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(redisAddr string) (*JobScheduler, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})

	// Test connection
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &JobScheduler{client: client}, nil
}

// Job types
const (
	TypeDumpImport = "dump:import"
)

// DumpImportPayload represents the payload for a dump import job
type DumpImportPayload struct {
	IntentID    string  `json:"intent_id"`
	Source      string  `json:"source"`
	NewIndexURL string  `json:"new_index_url"`
	OldIndexURL string  `json:"old_index_url"`
	ReimportIDs []int32 `json:"reimport_ids"`
}

// EnqueueDumpImport enqueues a dump import job. Imports are slow; the job
// gets a generous timeout and a single retry.
func (s *JobScheduler) EnqueueDumpImport(ctx context.Context, payload DumpImportPayload) (*asynq.TaskInfo, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeDumpImport, payloadBytes)

	info, err := s.client.EnqueueContext(ctx, task, asynq.MaxRetry(1), asynq.Timeout(30*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue dump import job: %w", err)
	}

	return info, nil
}

// Close closes the job scheduler and releases resources
func (s *JobScheduler) Close() error {
	return s.client.Close()
}
