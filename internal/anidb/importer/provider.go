package importer

import (
	"context"

	"github.com/satelit-project/satelit-import/internal/anidb"
	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/repository"
)

// DumpProvider streams catalogue entries from extracted AniDB dump files
type DumpProvider struct {
	oldDumpPath string
	newDumpPath string
	reimportIDs map[int32]struct{}
}

// NewDumpProvider creates a provider over extracted dump files. An empty
// oldDumpPath means there is no previous snapshot and every entry of the
// new dump is treated as an addition.
func NewDumpProvider(oldDumpPath, newDumpPath string, reimportIDs []int32) *DumpProvider {
	ids := make(map[int32]struct{}, len(reimportIDs))
	for _, id := range reimportIDs {
		ids[id] = struct{}{}
	}

	return &DumpProvider{
		oldDumpPath: oldDumpPath,
		newDumpPath: newDumpPath,
		reimportIDs: ids,
	}
}

// OldAnimeTitles returns a stream over the previous snapshot, or an empty
// stream when no previous snapshot exists
func (p *DumpProvider) OldAnimeTitles() (AnimeStream, error) {
	if p.oldDumpPath == "" {
		return anidb.Empty(), nil
	}

	return anidb.NewParser(p.oldDumpPath)
}

// NewAnimeTitles returns a stream over the snapshot to import
func (p *DumpProvider) NewAnimeTitles() (AnimeStream, error) {
	return anidb.NewParser(p.newDumpPath)
}

// ShouldReimport reports whether the entry is in the reimport set
func (p *DumpProvider) ShouldReimport(id int32) bool {
	_, ok := p.reimportIDs[id]
	return ok
}

// ScheduleSink applies diff events to the schedules repository
type ScheduleSink struct {
	schedules repository.ScheduleRepository
	source    entity.ExternalSource
}

// NewScheduleSink creates a sink writing schedules for the given source
func NewScheduleSink(schedules repository.ScheduleRepository, source entity.ExternalSource) *ScheduleSink {
	return &ScheduleSink{schedules: schedules, source: source}
}

// AddTitle inserts a fresh schedule for the catalogue entry
func (s *ScheduleSink) AddTitle(ctx context.Context, anime *anidb.Anime) error {
	return s.schedules.Put(ctx, entity.MakeNewSchedule(anime.ID, s.source))
}

// RemoveTitle removes the entry's schedule from future imports
func (s *ScheduleSink) RemoveTitle(ctx context.Context, anime *anidb.Anime) error {
	return s.schedules.Pop(ctx, s.source, anime.ID)
}
