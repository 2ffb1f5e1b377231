package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/caseflow/internal/api/response"
	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// RunStatusReader looks up the last recorded stage of a run.
type RunStatusReader interface {
	GetRunStatus(ctx context.Context, runID uuid.UUID) (models.RunRecord, bool, error)
}

// NewRunStatusHandler returns an http.HandlerFunc for GET /api/v1/runs/{runID}.
func NewRunStatusHandler(runs RunStatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "runID must be a valid UUID", nil)
			return
		}

		rec, found, err := runs.GetRunStatus(r.Context(), runID)
		if err != nil {
			slog.Error("run status lookup failed", "run_id", runID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if !found {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Run not found or expired", nil)
			return
		}

		response.JSON(w, rec)
	}
}
