// Package scrape defines the wire shape of scraped anime payloads that
// workers send back on the task surface.
package scrape

import "time"

// AnimeType classifies a scraped title
type AnimeType string

const (
	TypeUnknown  AnimeType = "UNKNOWN"
	TypeTvSeries AnimeType = "TV_SERIES"
	TypeOva      AnimeType = "OVA"
	TypeOna      AnimeType = "ONA"
	TypeMovie    AnimeType = "MOVIE"
	TypeSpecial  AnimeType = "SPECIAL"
)

// EpisodeType classifies a single episode
type EpisodeType string

const (
	EpisodeUnknown EpisodeType = "UNKNOWN"
	EpisodeRegular EpisodeType = "REGULAR"
	EpisodeSpecial EpisodeType = "SPECIAL"
)

// SourceIDs carries the ids a title is known by on external catalogues
type SourceIDs struct {
	AniDBIDs []int32 `json:"anidb_ids"`
	MALIDs   []int32 `json:"mal_ids"`
	ANNIDs   []int32 `json:"ann_ids"`
}

// Episode is a single scraped episode record
type Episode struct {
	Type     EpisodeType `json:"type"`
	Number   int32       `json:"number"`
	Name     string      `json:"name"`
	Duration float64     `json:"duration"`
	AirDate  int64       `json:"air_date"`
}

// Anime is a scraped title as reported by a worker. Date fields are unix
// seconds; zero means unknown.
type Anime struct {
	Source        *SourceIDs `json:"source,omitempty"`
	Type          AnimeType  `json:"type"`
	Title         string     `json:"title"`
	PosterURL     string     `json:"poster_url"`
	EpisodesCount int32      `json:"episodes_count"`
	Episodes      []Episode  `json:"episodes"`
	StartDate     int64      `json:"start_date"`
	EndDate       int64      `json:"end_date"`
	Tags          []string   `json:"tags"`
	Rating        float64    `json:"rating"`
	Description   string     `json:"description"`
	SrcCreatedAt  int64      `json:"src_created_at"`
	SrcUpdatedAt  int64      `json:"src_updated_at"`
}

// HasType reports whether the payload carries a known anime type
func (a *Anime) HasType() bool {
	return a.Type != "" && a.Type != TypeUnknown
}

// HasAniDBID reports whether the payload references an AniDB id
func (a *Anime) HasAniDBID() bool {
	return a.Source != nil && len(a.Source.AniDBIDs) > 0
}

// HasMALID reports whether the payload references a MyAnimeList id
func (a *Anime) HasMALID() bool {
	return a.Source != nil && len(a.Source.MALIDs) > 0
}

// HasANNID reports whether the payload references an AnimeNewsNetwork id
func (a *Anime) HasANNID() bool {
	return a.Source != nil && len(a.Source.ANNIDs) > 0
}

// HasAllEpisodes reports whether every episode record is fully described
func (a *Anime) HasAllEpisodes() bool {
	if len(a.Episodes) == 0 {
		return false
	}

	for _, e := range a.Episodes {
		if e.Type == "" || e.Type == EpisodeUnknown {
			return false
		}
		if e.AirDate == 0 || e.Duration == 0 || e.Name == "" {
			return false
		}
	}

	return true
}

// StartTime returns the start air date as UTC time, or nil if unknown
func (a *Anime) StartTime() *time.Time {
	return unixTime(a.StartDate)
}

// EndTime returns the end air date as UTC time, or nil if unknown
func (a *Anime) EndTime() *time.Time {
	return unixTime(a.EndDate)
}

// SrcCreatedTime returns the catalogue creation instant, or nil if unknown
func (a *Anime) SrcCreatedTime() *time.Time {
	return unixTime(a.SrcCreatedAt)
}

// SrcUpdatedTime returns the catalogue update instant, or nil if unknown
func (a *Anime) SrcUpdatedTime() *time.Time {
	return unixTime(a.SrcUpdatedAt)
}

func unixTime(secs int64) *time.Time {
	if secs == 0 {
		return nil
	}

	t := time.Unix(secs, 0).UTC()
	return &t
}
