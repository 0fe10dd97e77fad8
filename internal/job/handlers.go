package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/satelit-project/satelit-import/internal/anidb/importer"
	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/service"
)

// JobHandlers manages job execution handlers
type JobHandlers struct {
	imports *service.ImportService
}

// NewJobHandlers creates a new job handlers instance
func NewJobHandlers(imports *service.ImportService) *JobHandlers {
	return &JobHandlers{imports: imports}
}

// RegisterHandlers registers all job handlers with the Asynq mux
func (h *JobHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDumpImport, h.HandleDumpImport)
}

// HandleDumpImport handles dump import jobs. A run that loses the race
// against an RPC-initiated import is retried by the queue later.
func (h *JobHandlers) HandleDumpImport(ctx context.Context, t *asynq.Task) error {
	var payload DumpImportPayload

	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	id, err := uuid.Parse(payload.IntentID)
	if err != nil {
		return fmt.Errorf("intent id is not a uuid: %w", asynq.SkipRetry)
	}

	log.Printf("jobs: executing dump import, intent=%s source=%s", payload.IntentID, payload.Source)

	intent := importer.Intent{
		ID:          id,
		Source:      entity.ExternalSource(payload.Source),
		NewIndexURL: payload.NewIndexURL,
		OldIndexURL: payload.OldIndexURL,
		ReimportIDs: payload.ReimportIDs,
	}

	result, err := h.imports.StartImport(ctx, intent)
	if err != nil {
		if errors.Is(err, entity.ErrImportInProgress) {
			return fmt.Errorf("another import is running: %w", err)
		}
		return fmt.Errorf("dump import failed: %w", err)
	}

	log.Printf("jobs: dump import completed, intent=%s skipped=%d", payload.IntentID, len(result.SkippedIDs))
	return nil
}
