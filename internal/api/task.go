package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/scrape"
	"github.com/satelit-project/satelit-import/internal/service"
)

// TaskHandler exposes the scraper task surface over HTTP
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a task handler
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// TaskCreateRequest asks for a new batch of schedules to scrape
type TaskCreateRequest struct {
	Limit  int32  `json:"limit"`
	Source string `json:"source"`
}

// TaskResponse describes a created task; AnimeIDs[i] is the catalogue id
// of the schedule at ScheduleIDs[i]
type TaskResponse struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	ScheduleIDs []int32 `json:"schedule_ids"`
	AnimeIDs    []int32 `json:"anime_ids"`
}

// TaskYieldRequest reports one scraped schedule of a task
type TaskYieldRequest struct {
	TaskID     string        `json:"task_id"`
	ScheduleID int32         `json:"schedule_id"`
	Anime      *scrape.Anime `json:"anime,omitempty"`
}

// TaskFinishRequest releases the task's remaining leases
type TaskFinishRequest struct {
	TaskID string `json:"task_id"`
}

// CreateTask registers a new scrape task and leases a batch of schedules.
// Every call yields a distinct task; retrying callers must reconcile.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req TaskCreateRequest
	if err := c.Bind(&req); err != nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, fmt.Sprintf("invalid request: %v", err))
	}

	if !entity.ValidateSource(req.Source) {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, "scraping source is not supported")
	}

	details, err := h.tasks.CreateTask(c.Request().Context(), entity.ExternalSource(req.Source), req.Limit)
	if err != nil {
		c.Logger().Errorf("failed to create new scrape task: %v", err)
		return Failure(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}

	return Success(c, http.StatusOK, TaskResponse{
		ID:          details.ID.String(),
		Source:      string(details.Source),
		ScheduleIDs: details.ScheduleIDs,
		AnimeIDs:    details.ExternalIDs,
	})
}

// YieldResult updates the schedule with scraped data and releases its
// lease. Idempotent: repeating a yield succeeds without further effect.
func (h *TaskHandler) YieldResult(c echo.Context) error {
	var req TaskYieldRequest
	if err := c.Bind(&req); err != nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, fmt.Sprintf("invalid request: %v", err))
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, "task id is not a uuid")
	}

	if req.Anime == nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, "anime entity is missing")
	}

	if err := h.tasks.YieldResult(c.Request().Context(), taskID, req.ScheduleID, req.Anime); err != nil {
		c.Logger().Errorf("failed to update yielded entity: %v", err)
		return Failure(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}

	return Success(c, http.StatusOK, nil)
}

// CompleteTask finishes the task, abandoning any leases still held.
// Idempotent: finishing a finished task succeeds.
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	var req TaskFinishRequest
	if err := c.Bind(&req); err != nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, fmt.Sprintf("invalid request: %v", err))
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, "task id is not a uuid")
	}

	if err := h.tasks.FinishTask(c.Request().Context(), taskID); err != nil {
		c.Logger().Errorf("failed to finish task: %v", err)
		return Failure(c, http.StatusInternalServerError, CodeInternal, err.Error())
	}

	return Success(c, http.StatusOK, nil)
}
