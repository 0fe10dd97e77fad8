// Package freshness decides when a schedule should be visited next. A
// strategy is selected from the airing state of the scraped payload and
// produces the date of the next visit; the update builder turns it into a
// full schedule patch.
package freshness

import (
	"time"

	"github.com/satelit-project/satelit-import/internal/scrape"
)

const day = 24 * time.Hour

// Strategy computes the next visit date for a scraped title
type Strategy interface {
	// Accepts reports whether the strategy applies to the payload
	Accepts(anime *scrape.Anime) bool

	// NextUpdateDate returns the day of the next visit, midnight UTC
	NextUpdateDate(anime *scrape.Anime) time.Time
}

// ForAnime selects the strategy matching the payload's airing state
func ForAnime(anime *scrape.Anime) Strategy {
	return forAnimeAt(anime, time.Now().UTC())
}

func forAnimeAt(anime *scrape.Anime, now time.Time) Strategy {
	unaired := &UnairedStrategy{interval: 5 * day, now: dateOf(now)}
	if unaired.Accepts(anime) {
		return unaired
	}

	airing := &AiringStrategy{interval: 7 * day, now: dateOf(now)}
	if airing.Accepts(anime) {
		return airing
	}

	return &AiredStrategy{now: dateOf(now)}
}

// UnairedStrategy handles titles that have not started airing yet: revisit
// every five days, but never later than the known start date.
type UnairedStrategy struct {
	interval time.Duration
	now      time.Time
}

// Accepts reports whether the title is unaired
func (s *UnairedStrategy) Accepts(anime *scrape.Anime) bool {
	if anime.StartDate == 0 {
		return true
	}

	return s.now.Before(dateOf(*anime.StartTime()))
}

// NextUpdateDate returns the next visit day for an unaired title
func (s *UnairedStrategy) NextUpdateDate(anime *scrape.Anime) time.Time {
	if anime.StartDate == 0 {
		return s.now.Add(s.interval)
	}

	startDate := dateOf(*anime.StartTime())
	diff := startDate.Sub(s.now)

	// close enough to the airing date to just wait for it
	if diff <= s.interval {
		return startDate
	}

	// align the visit cadence to the start date
	untilUpdate := diff % s.interval
	return s.now.Add(untilUpdate)
}

// AiringStrategy handles currently airing titles: revisit weekly. With an
// unknown end date the cadence is aligned to the start date's weekday; with
// a known end date it counts back in whole weeks from the end date instead,
// and in the last week it waits for the end date itself. If a new episode
// should drop today and the payload does not carry it yet, revisit today.
type AiringStrategy struct {
	interval time.Duration
	now      time.Time
}

// Accepts reports whether the title is airing
func (s *AiringStrategy) Accepts(anime *scrape.Anime) bool {
	if anime.StartDate == 0 {
		return false
	}

	startDate := dateOf(*anime.StartTime())
	if s.now.Before(startDate) {
		return false
	}

	if anime.EndDate == 0 {
		return true
	}

	endDate := dateOf(*anime.EndTime())
	return !endDate.Before(s.now)
}

// NextUpdateDate returns the next visit day for an airing title
func (s *AiringStrategy) NextUpdateDate(anime *scrape.Anime) time.Time {
	if s.scheduleToday(anime) {
		return s.now
	}

	if anime.EndDate == 0 {
		return s.everyWeekFromStart(anime)
	}

	return s.everyWeekBeforeEnd(anime)
}

// scheduleToday reports whether an episode drops today that the payload
// does not know about yet
func (s *AiringStrategy) scheduleToday(anime *scrape.Anime) bool {
	startDate := dateOf(*anime.StartTime())
	elapsed := s.now.Sub(startDate)

	newEpToday := elapsed%s.interval == 0
	expectedEps := int64(elapsed/s.interval) + 1
	knownEps := int64(len(anime.Episodes))

	return newEpToday && knownEps < expectedEps
}

func (s *AiringStrategy) everyWeekFromStart(anime *scrape.Anime) time.Time {
	startDate := dateOf(*anime.StartTime())
	elapsedForWeek := s.now.Sub(startDate) % s.interval
	untilUpdate := s.interval - elapsedForWeek
	return s.now.Add(untilUpdate)
}

func (s *AiringStrategy) everyWeekBeforeEnd(anime *scrape.Anime) time.Time {
	endDate := dateOf(*anime.EndTime())
	diff := endDate.Sub(s.now)

	// close enough to the end air date to just wait for it
	if diff < s.interval {
		return endDate
	}

	return s.now.Add(diff % s.interval)
}

// AiredStrategy handles titles that finished airing: revisit on a slow
// cadence while data is incomplete, and push the next visit a year out
// once every completeness flag is satisfied.
type AiredStrategy struct {
	now time.Time
}

// Accepts reports whether the title has finished airing
func (s *AiredStrategy) Accepts(anime *scrape.Anime) bool {
	if anime.EndDate == 0 {
		return false
	}

	return dateOf(*anime.EndTime()).Before(s.now)
}

// NextUpdateDate returns the next visit day for a finished title
func (s *AiredStrategy) NextUpdateDate(anime *scrape.Anime) time.Time {
	if complete(anime) {
		return s.now.Add(365 * day)
	}

	return s.now.Add(28 * day)
}

// complete reports whether the payload satisfies every completeness flag
func complete(anime *scrape.Anime) bool {
	flags := flagsForAnime(anime)
	return flags.Complete()
}

// dateOf truncates an instant to its UTC day
func dateOf(t time.Time) time.Time {
	return t.UTC().Truncate(day)
}
