package importer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

// IndexFetcher downloads a dump archive from the blob store to a local path
type IndexFetcher interface {
	Get(ctx context.Context, key, outPath string) error
}

// Intent describes a single dump import request
type Intent struct {
	ID          uuid.UUID
	Source      entity.ExternalSource
	NewIndexURL string
	OldIndexURL string
	ReimportIDs []int32
}

// HasOldDump reports whether a previous snapshot should be diffed against
func (i *Intent) HasOldDump() bool {
	return i.OldIndexURL != ""
}

// IntentResult is the success envelope of an import run
type IntentResult struct {
	ID         uuid.UUID
	SkippedIDs []int32
}

// paths holds the file layout of a staged import inside a scoped temp dir
type paths struct {
	dir string
}

func newPaths() (*paths, error) {
	dir, err := os.MkdirTemp("", "satelit-import-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}

	return &paths{dir: dir}, nil
}

func (p *paths) storeOld() string   { return filepath.Join(p.dir, "archived.old") }
func (p *paths) storeNew() string   { return filepath.Join(p.dir, "archived.new") }
func (p *paths) extractOld() string { return filepath.Join(p.dir, "dump.old") }
func (p *paths) extractNew() string { return filepath.Join(p.dir, "dump.new") }

func (p *paths) remove() {
	if err := os.RemoveAll(p.dir); err != nil {
		log.Printf("importer: failed to remove staging dir %s: %v", p.dir, err)
	}
}

// Import runs a dump import described by the intent: stage both archives,
// extract them, diff the snapshots and apply the events to the schedules
// table. Per-entry apply failures end up in the result's skipped ids; any
// stage failure aborts the whole run. The staging dir is removed on every
// exit path.
func Import(ctx context.Context, intent Intent, db repository.Database, fetcher IndexFetcher) (*IntentResult, error) {
	staging, err := newPaths()
	if err != nil {
		return nil, err
	}
	defer staging.remove()

	if err := download(ctx, &intent, staging, fetcher); err != nil {
		return nil, err
	}

	if err := extract(ctx, &intent, staging); err != nil {
		return nil, err
	}

	log.Printf("importer: starting index import for intent %s", intent.ID)

	oldDump := ""
	if intent.HasOldDump() {
		oldDump = staging.extractOld()
	}

	provider := NewDumpProvider(oldDump, staging.extractNew(), intent.ReimportIDs)
	sink := NewScheduleSink(db.Schedules(), intent.Source)

	skipped, err := NewImporter(provider, sink).Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &IntentResult{ID: intent.ID, SkippedIDs: skipped}, nil
}

// download fetches both archives concurrently; either failure is fatal
func download(ctx context.Context, intent *Intent, staging *paths, fetcher IndexFetcher) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := fetcher.Get(ctx, intent.NewIndexURL, staging.storeNew()); err != nil {
			return fmt.Errorf("failed to download new index: %w", err)
		}
		return nil
	})

	if intent.HasOldDump() {
		group.Go(func() error {
			if err := fetcher.Get(ctx, intent.OldIndexURL, staging.storeOld()); err != nil {
				return fmt.Errorf("failed to download old index: %w", err)
			}
			return nil
		})
	}

	return group.Wait()
}

// extract decompresses both archives concurrently
func extract(ctx context.Context, intent *Intent, staging *paths) error {
	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		return ExtractGzip(staging.storeNew(), staging.extractNew())
	})

	if intent.HasOldDump() {
		group.Go(func() error {
			return ExtractGzip(staging.storeOld(), staging.extractOld())
		})
	}

	return group.Wait()
}
