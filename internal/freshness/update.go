package freshness

import (
	"time"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/scrape"
)

// UpdateForAnime builds the schedule patch for a scraped payload: every
// completeness flag is taken from the payload, the next visit time comes
// from the strategy matching the payload's airing state.
func UpdateForAnime(anime *scrape.Anime) entity.UpdatedSchedule {
	return updateForAnimeAt(anime, time.Now().UTC())
}

func updateForAnimeAt(anime *scrape.Anime, now time.Time) entity.UpdatedSchedule {
	update := flagsForAnime(anime)
	update.SrcCreatedAt = anime.SrcCreatedTime()
	update.SrcUpdatedAt = anime.SrcUpdatedTime()

	strategy := forAnimeAt(anime, now)
	update.NextUpdateAt = nextUpdateDatetime(strategy.NextUpdateDate(anime), now)

	return update
}

// flagsForAnime derives the completeness flags from the payload
func flagsForAnime(anime *scrape.Anime) entity.UpdatedSchedule {
	return entity.UpdatedSchedule{
		HasPoster:       anime.PosterURL != "",
		HasStartAirDate: anime.StartDate != 0,
		HasEndAirDate:   anime.EndDate != 0,
		HasType:         anime.HasType(),
		HasAniDBID:      anime.HasAniDBID(),
		HasMALID:        anime.HasMALID(),
		HasANNID:        anime.HasANNID(),
		HasTags:         len(anime.Tags) > 0,
		HasEpCount:      anime.EpisodesCount != 0,
		HasAllEps:       anime.HasAllEpisodes(),
		HasRating:       anime.Rating != 0,
		HasDescription:  anime.Description != "",
	}
}

// nextUpdateDatetime pins the strategy's day to the current hour plus one;
// during the last hour of the day the time is clamped to 22:59 so the
// visit never slips past midnight.
func nextUpdateDatetime(date time.Time, now time.Time) time.Time {
	hour, minute, second := now.Hour(), now.Minute(), now.Second()
	if hour == 23 {
		hour, minute, second = 22, 59, 0
	}

	pinned := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, second, 0, time.UTC)
	return pinned.Add(time.Hour)
}
