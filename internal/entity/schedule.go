package entity

import "time"

// NewSchedule is the creation seed for a schedule produced by the diff engine.
// The owning source's id flag is set at construction time.
type NewSchedule struct {
	ExternalID int32
	Source     ExternalSource
	HasAniDBID bool
	HasMALID   bool
	HasANNID   bool
}

// MakeNewSchedule creates a seed for the given external id and source
func MakeNewSchedule(externalID int32, source ExternalSource) NewSchedule {
	n := NewSchedule{
		ExternalID: externalID,
		Source:     source,
	}

	switch source {
	case SourceAniDB:
		n.HasAniDBID = true
	case SourceMAL:
		n.HasMALID = true
	case SourceANN:
		n.HasANNID = true
	}

	return n
}

// UpdatedSchedule is the patch applied to a schedule after a worker yields
// a scraped payload. Priority is derived from the flags, never set directly.
type UpdatedSchedule struct {
	NextUpdateAt    time.Time
	HasPoster       bool
	HasStartAirDate bool
	HasEndAirDate   bool
	HasType         bool
	HasAniDBID      bool
	HasMALID        bool
	HasANNID        bool
	HasTags         bool
	HasEpCount      bool
	HasAllEps       bool
	HasRating       bool
	HasDescription  bool
	SrcCreatedAt    *time.Time
	SrcUpdatedAt    *time.Time
}

// Complete reports whether every completeness flag is set
func (u *UpdatedSchedule) Complete() bool {
	return u.HasPoster &&
		u.HasStartAirDate &&
		u.HasEndAirDate &&
		u.HasType &&
		u.HasAniDBID &&
		u.HasMALID &&
		u.HasANNID &&
		u.HasTags &&
		u.HasEpCount &&
		u.HasAllEps &&
		u.HasRating &&
		u.HasDescription
}

// Priority derives the schedule priority from the completeness flags.
// Airing details trump everything else; a fully described title goes idle.
func (u *UpdatedSchedule) Priority() SchedulePriority {
	switch {
	case !u.HasStartAirDate || !u.HasEndAirDate:
		return PriorityNeedAiringDetails
	case !u.HasType || !u.HasEpCount:
		return PriorityNeedAiringDetails
	case !u.HasTags:
		return PriorityNeedTags
	case !u.HasDescription:
		return PriorityNeedDescription
	case !u.HasPoster:
		return PriorityNeedPoster
	case !u.HasAllEps:
		return PriorityNeedEpisodes
	case !u.HasRating:
		return PriorityNeedRating
	case !u.HasAniDBID || !u.HasMALID || !u.HasANNID:
		return PriorityNeedExternalSources
	default:
		return PriorityIdle
	}
}
