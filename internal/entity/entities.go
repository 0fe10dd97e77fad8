package entity

import (
	"time"

	"github.com/google/uuid"
)

// Type aliases for domain IDs
type (
	TaskID      = uuid.UUID
	QueuedJobID = uuid.UUID
)

// Now returns the current UTC time
func Now() time.Time {
	return time.Now().UTC()
}

// NowPtr returns a pointer to the current UTC time
func NowPtr() *time.Time {
	now := time.Now().UTC()
	return &now
}

// ExternalSource identifies the third-party catalogue a schedule belongs to
type ExternalSource string

const (
	SourceAniDB ExternalSource = "ANIDB"
	SourceMAL   ExternalSource = "MAL"
	SourceANN   ExternalSource = "ANN"
)

// ScheduleState represents the lease state of a schedule
type ScheduleState string

const (
	StatePending    ScheduleState = "PENDING"
	StateProcessing ScheduleState = "PROCESSING"
	StateFinished   ScheduleState = "FINISHED"
)

// SchedulePriority orders schedules for leasing; higher values are scraped first
type SchedulePriority int

const (
	PriorityIdle                SchedulePriority = 0
	PriorityNeedExternalSources SchedulePriority = 400
	PriorityNeedRating          SchedulePriority = 500
	PriorityNeedEpisodes        SchedulePriority = 600
	PriorityNeedDescription     SchedulePriority = 700
	PriorityNeedTags            SchedulePriority = 800
	PriorityNeedPoster          SchedulePriority = 900
	PriorityNeedAiringDetails   SchedulePriority = 1000
)

// Schedule is a durable intention to scrape one title from one source.
// (source, external_id) is unique; completeness flags drive the priority.
type Schedule struct {
	ID              int32
	ExternalID      int32
	Source          ExternalSource
	State           ScheduleState
	Priority        SchedulePriority
	NextUpdateAt    *time.Time
	UpdateCount     int32
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
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Task is a worker's lease envelope over a batch of schedules
type Task struct {
	ID          uuid.UUID
	Source      ExternalSource
	ScheduleIDs []int32
	Finished    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// QueuedJob binds a task to one of its leased schedules
type QueuedJob struct {
	ID         uuid.UUID
	TaskID     uuid.UUID
	ScheduleID int32
}

// ValidateSource validates an external source string
func ValidateSource(source string) bool {
	return source == string(SourceAniDB) ||
		source == string(SourceMAL) ||
		source == string(SourceANN)
}

// ValidateScheduleState validates a schedule state string
func ValidateScheduleState(state string) bool {
	return state == string(StatePending) ||
		state == string(StateProcessing) ||
		state == string(StateFinished)
}
