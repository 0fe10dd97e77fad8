package importer

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satelit-project/satelit-import/internal/anidb"
)

// sliceStream yields entries from a slice
type sliceStream struct {
	entries []*anidb.Anime
	pos     int
}

func (s *sliceStream) Next() *anidb.Anime {
	if s.pos >= len(s.entries) {
		return nil
	}

	a := s.entries[s.pos]
	s.pos++
	return a
}

func (s *sliceStream) Close() error { return nil }

// fakeProvider serves pre-built entry slices
type fakeProvider struct {
	old      []*anidb.Anime
	new      []*anidb.Anime
	reimport map[int32]struct{}
}

func (p *fakeProvider) OldAnimeTitles() (AnimeStream, error) {
	return &sliceStream{entries: p.old}, nil
}

func (p *fakeProvider) NewAnimeTitles() (AnimeStream, error) {
	return &sliceStream{entries: p.new}, nil
}

func (p *fakeProvider) ShouldReimport(id int32) bool {
	_, ok := p.reimport[id]
	return ok
}

// fakeScheduler records applied events and can refuse configured ids
type fakeScheduler struct {
	added   []int32
	removed []int32
	failing map[int32]struct{}
}

func (s *fakeScheduler) AddTitle(ctx context.Context, anime *anidb.Anime) error {
	if _, ok := s.failing[anime.ID]; ok {
		return errors.New("refused")
	}

	s.added = append(s.added, anime.ID)
	return nil
}

func (s *fakeScheduler) RemoveTitle(ctx context.Context, anime *anidb.Anime) error {
	s.removed = append(s.removed, anime.ID)
	return nil
}

func genAnime(ids ...int32) []*anidb.Anime {
	out := make([]*anidb.Anime, 0, len(ids))
	for _, id := range ids {
		out = append(out, &anidb.Anime{ID: id, Title: "title"})
	}
	return out
}

func idSet(ids ...int32) map[int32]struct{} {
	set := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestImport_NoDiff(t *testing.T) {
	provider := &fakeProvider{old: nil, new: genAnime(1, 2, 3, 4, 5)}
	scheduler := &fakeScheduler{}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, scheduler.removed)
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, scheduler.added)
}

func TestImport_DiffAdd(t *testing.T) {
	provider := &fakeProvider{old: genAnime(1, 3, 5), new: genAnime(1, 2, 3, 4, 5)}
	scheduler := &fakeScheduler{}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, scheduler.removed)
	assert.Equal(t, []int32{2, 4}, scheduler.added)
}

func TestImport_DiffRemove(t *testing.T) {
	provider := &fakeProvider{old: genAnime(1, 2, 3, 4, 5), new: genAnime(1, 3, 5)}
	scheduler := &fakeScheduler{}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, scheduler.added)
	assert.Equal(t, []int32{2, 4}, scheduler.removed)
}

func TestImport_DiffAddRemove(t *testing.T) {
	provider := &fakeProvider{old: genAnime(1, 3, 5), new: genAnime(2, 4, 5, 7)}
	scheduler := &fakeScheduler{}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []int32{1, 3}, scheduler.removed)
	assert.Equal(t, []int32{2, 4, 7}, scheduler.added)
}

func TestImport_IdenticalInputsEmitNothing(t *testing.T) {
	provider := &fakeProvider{old: genAnime(1, 2, 3), new: genAnime(1, 2, 3)}
	scheduler := &fakeScheduler{}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, scheduler.added)
	assert.Empty(t, scheduler.removed)
}

func TestImport_GeneratesSkippedIDs(t *testing.T) {
	provider := &fakeProvider{old: nil, new: genAnime(1, 2, 3, 4, 5)}
	scheduler := &fakeScheduler{failing: idSet(2, 5)}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	sort.Slice(skipped, func(i, j int) bool { return skipped[i] < skipped[j] })
	assert.Equal(t, []int32{2, 5}, skipped)
	assert.Equal(t, []int32{1, 3, 4}, scheduler.added)
}

func TestImport_DoesReimport(t *testing.T) {
	provider := &fakeProvider{
		old:      genAnime(2, 5),
		new:      genAnime(1, 2, 3, 4, 5),
		reimport: idSet(2, 5),
	}
	scheduler := &fakeScheduler{}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, scheduler.added)
	assert.Empty(t, scheduler.removed)
}

func TestImport_ReimportIDAbsentFromNewIsIgnored(t *testing.T) {
	provider := &fakeProvider{
		old:      genAnime(1, 2),
		new:      genAnime(1),
		reimport: idSet(2),
	}
	scheduler := &fakeScheduler{}

	skipped, err := NewImporter(provider, scheduler).Begin(context.Background())

	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, scheduler.added)
	assert.Equal(t, []int32{2}, scheduler.removed)
}
