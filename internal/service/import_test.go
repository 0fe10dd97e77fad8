package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satelit-project/satelit-import/internal/anidb/importer"
	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository/memory"
)

// blockingFetcher stalls downloads until released, then fails them
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *blockingFetcher) Get(ctx context.Context, key, outPath string) error {
	f.once.Do(func() { close(f.started) })
	<-f.release
	return errors.New("fetch aborted")
}

func validIntent() importer.Intent {
	return importer.Intent{
		ID:          uuid.New(),
		Source:      entity.SourceAniDB,
		NewIndexURL: "new.xml.gz",
	}
}

func TestStartImport_RequiresIntentID(t *testing.T) {
	svc := NewImportService(memory.New(), newBlockingFetcher())

	intent := validIntent()
	intent.ID = uuid.Nil

	_, err := svc.StartImport(context.Background(), intent)
	assert.ErrorIs(t, err, entity.ErrMissingIntentID)
}

func TestStartImport_SingletonGuard(t *testing.T) {
	fetcher := newBlockingFetcher()
	svc := NewImportService(memory.New(), fetcher)

	errs := make(chan error, 1)
	go func() {
		_, err := svc.StartImport(context.Background(), validIntent())
		errs <- err
	}()

	// wait for the first import to hold the flag
	<-fetcher.started

	_, err := svc.StartImport(context.Background(), validIntent())
	assert.ErrorIs(t, err, entity.ErrImportInProgress)

	close(fetcher.release)
	require.Error(t, <-errs)
}

func TestStartImport_FlagReleasedAfterFailure(t *testing.T) {
	fetcher := newBlockingFetcher()
	close(fetcher.release)

	svc := NewImportService(memory.New(), fetcher)

	_, err := svc.StartImport(context.Background(), validIntent())
	require.Error(t, err)

	// the failed run must not wedge the guard
	_, err = svc.StartImport(context.Background(), validIntent())
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrImportInProgress)
}
