// Package importer reconciles AniDB titles dumps with the local schedules
// table: it downloads and extracts the dump archives, diffs the previous
// snapshot against the new one and applies the resulting add/remove events.
package importer

import (
	"context"
	"log"

	"github.com/satelit-project/satelit-import/internal/anidb"
)

// AnimeStream is a lazy finite sequence of catalogue entries sorted by id
// in ascending order. Next returns nil once the stream is exhausted.
type AnimeStream interface {
	Next() *anidb.Anime
	Close() error
}

// AnimeProvider is a data source of catalogue entries to be imported.
// Both streams must yield entries sorted by id in ascending order and
// without duplicates.
type AnimeProvider interface {
	// OldAnimeTitles returns a stream over the previously imported snapshot.
	// An empty stream means everything from the new snapshot is imported.
	OldAnimeTitles() (AnimeStream, error)

	// NewAnimeTitles returns a stream over the snapshot to import
	NewAnimeTitles() (AnimeStream, error)

	// ShouldReimport reports whether the entry must be re-applied even when
	// both snapshots agree on it
	ShouldReimport(id int32) bool
}

// ImportScheduler applies catalogue changes to the schedules storage
type ImportScheduler interface {
	// AddTitle schedules a new catalogue entry for scraping
	AddTitle(ctx context.Context, anime *anidb.Anime) error

	// RemoveTitle removes a catalogue entry from future scraping
	RemoveTitle(ctx context.Context, anime *anidb.Anime) error
}

// Importer performs an anime import with titles from a provider, pushing
// changes to a scheduler. Per-entry scheduler failures are absorbed and
// reported through the skipped id set; only failing to open a stream is
// fatal.
type Importer struct {
	provider  AnimeProvider
	scheduler ImportScheduler

	skipped map[int32]struct{}
}

// NewImporter creates an importer over the given provider and scheduler
func NewImporter(provider AnimeProvider, scheduler ImportScheduler) *Importer {
	return &Importer{
		provider:  provider,
		scheduler: scheduler,
		skipped:   make(map[int32]struct{}),
	}
}

// Begin runs the import to completion on the calling goroutine and returns
// the ids of entries that should have been added but were skipped because
// the scheduler refused them.
func (im *Importer) Begin(ctx context.Context) ([]int32, error) {
	iterOld, err := im.provider.OldAnimeTitles()
	if err != nil {
		return nil, err
	}
	defer iterOld.Close()

	iterNew, err := im.provider.NewAnimeTitles()
	if err != nil {
		return nil, err
	}
	defer iterNew.Close()

	oldAnime := iterOld.Next()
	newAnime := iterNew.Next()

	for oldAnime != nil || newAnime != nil {
		switch {
		case oldAnime == nil:
			im.addTitle(ctx, newAnime)
			newAnime = iterNew.Next()
		case newAnime == nil:
			im.removeTitle(ctx, oldAnime)
			oldAnime = iterOld.Next()
		case oldAnime.ID < newAnime.ID:
			im.removeTitle(ctx, oldAnime)
			oldAnime = iterOld.Next()
		case oldAnime.ID > newAnime.ID:
			im.addTitle(ctx, newAnime)
			newAnime = iterNew.Next()
		default:
			if im.provider.ShouldReimport(newAnime.ID) {
				im.addTitle(ctx, newAnime)
			}

			oldAnime = iterOld.Next()
			newAnime = iterNew.Next()
		}
	}

	skipped := make([]int32, 0, len(im.skipped))
	for id := range im.skipped {
		skipped = append(skipped, id)
	}

	return skipped, nil
}

func (im *Importer) addTitle(ctx context.Context, anime *anidb.Anime) {
	if err := im.scheduler.AddTitle(ctx, anime); err != nil {
		log.Printf("importer: adding schedule failed for id %d: %v", anime.ID, err)
		im.skipped[anime.ID] = struct{}{}
		return
	}

	delete(im.skipped, anime.ID)
}

func (im *Importer) removeTitle(ctx context.Context, anime *anidb.Anime) {
	if err := im.scheduler.RemoveTitle(ctx, anime); err != nil {
		log.Printf("importer: removing schedule failed for id %d: %v", anime.ID, err)
		return
	}
}
