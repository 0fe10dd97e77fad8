// Command import runs a single dump import from the command line against
// the configured database and object storage.
package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/satelit-project/satelit-import/internal/anidb/importer"
	"github.com/satelit-project/satelit-import/internal/config"
	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository/postgres"
	"github.com/satelit-project/satelit-import/internal/store"
)

func main() {
	newIndex := flag.String("new-index", "", "object key of the dump to import")
	oldIndex := flag.String("old-index", "", "object key of the previously imported dump")
	reimport := flag.String("reimport", "", "comma-separated ids to import again")
	flag.Parse()

	if *newIndex == "" {
		log.Fatal("--new-index is required")
	}

	reimportIDs, err := parseIDs(*reimport)
	if err != nil {
		log.Fatalf("Invalid --reimport value: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(cfg.DB.URL, cfg.DB.MaxConnections, cfg.DB.ConnectionTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	indexStore, err := store.NewIndexStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create index store: %v", err)
	}

	intent := importer.Intent{
		ID:          uuid.New(),
		Source:      entity.SourceAniDB,
		NewIndexURL: *newIndex,
		OldIndexURL: *oldIndex,
		ReimportIDs: reimportIDs,
	}

	result, err := importer.Import(ctx, intent, db, indexStore)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Import finished, %d entries skipped: %v", len(result.SkippedIDs), result.SkippedIDs)
}

func parseIDs(raw string) ([]int32, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int32, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, int32(id))
	}

	return ids, nil
}
