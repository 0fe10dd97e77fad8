package service

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/satelit-project/satelit-import/internal/anidb/importer"
	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

// ImportService runs dump imports on demand. Only one import may run at a
// time; concurrent starts fail fast instead of queueing.
type ImportService struct {
	db      repository.Database
	fetcher importer.IndexFetcher

	// importing guards the single-import invariant
	importing atomic.Bool
}

// NewImportService creates an import service over the database and blob
// store
func NewImportService(db repository.Database, fetcher importer.IndexFetcher) *ImportService {
	return &ImportService{db: db, fetcher: fetcher}
}

// StartImport validates the intent, takes the import flag and runs the
// import to completion. The flag is released on every exit path, panics
// included; failing that would wedge the service.
func (s *ImportService) StartImport(ctx context.Context, intent importer.Intent) (*importer.IntentResult, error) {
	if intent.ID == uuid.Nil {
		return nil, entity.ErrMissingIntentID
	}

	if !s.importing.CompareAndSwap(false, true) {
		log.Printf("import: already in progress, rejecting intent %s", intent.ID)
		return nil, entity.ErrImportInProgress
	}
	defer s.importing.Store(false)

	log.Printf("import: starting for source %s, intent %s", intent.Source, intent.ID)

	result, err := importer.Import(ctx, intent, s.db, s.fetcher)
	if err != nil {
		log.Printf("import: failed for intent %s: %v", intent.ID, err)
		return nil, err
	}

	log.Printf("import: succeeded for intent %s, skipped: %v", intent.ID, result.SkippedIDs)
	return result, nil
}
