package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/satelit-project/satelit-import/internal/anidb/importer"
	"github.com/satelit-project/satelit-import/internal/entity"
	"github.com/satelit-project/satelit-import/internal/service"
)

// ImportHandler exposes the import surface over HTTP
type ImportHandler struct {
	imports *service.ImportService
}

// NewImportHandler creates an import handler
func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// ImportIntentRequest is the wire shape of a dump import request
type ImportIntentRequest struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	NewIndexURL string  `json:"new_index_url"`
	OldIndexURL string  `json:"old_index_url"`
	ReimportIDs []int32 `json:"reimport_ids"`
}

// ImportIntentResponse lists the ids the import could not apply
type ImportIntentResponse struct {
	ID         string  `json:"id"`
	SkippedIDs []int32 `json:"skipped_ids"`
}

// StartImport initiates a dump import. The call blocks until the import is
// done and may run for many minutes; timeouts are the caller's concern.
func (h *ImportHandler) StartImport(c echo.Context) error {
	var req ImportIntentRequest
	if err := c.Bind(&req); err != nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, fmt.Sprintf("invalid request: %v", err))
	}

	if req.ID == "" {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, "import intent id expected")
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, "import intent id is not a uuid")
	}

	// only the AniDB catalogue can be imported for now
	if req.Source != string(entity.SourceAniDB) {
		return Failure(c, http.StatusBadRequest, CodeInvalidArgument, "import source is not supported")
	}

	intent := importer.Intent{
		ID:          id,
		Source:      entity.ExternalSource(req.Source),
		NewIndexURL: req.NewIndexURL,
		OldIndexURL: req.OldIndexURL,
		ReimportIDs: req.ReimportIDs,
	}

	result, err := h.imports.StartImport(c.Request().Context(), intent)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrMissingIntentID):
			return Failure(c, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		case errors.Is(err, entity.ErrImportInProgress):
			return Failure(c, http.StatusConflict, CodeAlreadyExists, err.Error())
		default:
			return Failure(c, http.StatusInternalServerError, CodeInternal, err.Error())
		}
	}

	resp := ImportIntentResponse{
		ID:         result.ID.String(),
		SkippedIDs: result.SkippedIDs,
	}
	if resp.SkippedIDs == nil {
		resp.SkippedIDs = []int32{}
	}

	return Success(c, http.StatusOK, resp)
}
