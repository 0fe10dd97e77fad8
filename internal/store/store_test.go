package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/scrape"
)

func TestStoragePath(t *testing.T) {
	anime := &scrape.Anime{
		Source: &scrape.SourceIDs{
			AniDBIDs: []int32{17},
			MALIDs:   []int32{23},
		},
	}

	assert.Equal(t, "anidb/scraped/17.json", storagePath(anime, entity.SourceAniDB))
	assert.Equal(t, "mal/scraped/23.json", storagePath(anime, entity.SourceMAL))
	assert.Equal(t, "ann/scraped/0.json", storagePath(anime, entity.SourceANN))
}

func TestStoragePath_NoSourceIDs(t *testing.T) {
	assert.Equal(t, "anidb/scraped/0.json", storagePath(&scrape.Anime{}, entity.SourceAniDB))
}
