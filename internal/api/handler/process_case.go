package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	mw "github.com/kiranshivaraju/caseflow/internal/api/middleware"
	"github.com/kiranshivaraju/caseflow/internal/api/response"
	"github.com/kiranshivaraju/caseflow/internal/pipeline"
	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temp files.
const multipartMemory = 32 << 20

// CaseProcessor runs one case batch through the pipeline.
type CaseProcessor interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Outcome
}

type processCaseResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	RunID   uuid.UUID `json:"run_id"`
}

// NewProcessCaseHandler returns an http.HandlerFunc for POST /api/v1/process-case.
//
// The pipeline runs inside the request on a context detached from client
// cancellation, so a dropped connection does not abandon a submitted job.
func NewProcessCaseHandler(proc CaseProcessor, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
					fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit), nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Body must be multipart/form-data", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		caseID, err := uuid.Parse(r.FormValue("case_id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "case_id must be a valid UUID", nil)
			return
		}
		userID, err := uuid.Parse(r.FormValue("user_id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "user_id must be a valid UUID", nil)
			return
		}

		files, err := readFiles(r.MultipartForm.File["files"])
		if err != nil {
			slog.Error("reading uploaded files failed", "case_id", caseID, "error", err)
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Could not read uploaded files", nil)
			return
		}

		req := pipeline.Request{
			RunID:  uuid.New(),
			CaseID: caseID,
			UserID: userID,
			Files:  files,
			Notes:  r.FormValue("additional_data"),
		}
		if keyID, ok := mw.GetAPIKeyID(r); ok {
			slog.Info("case batch received", "run_id", req.RunID, "case_id", caseID, "api_key_id", keyID, "files", len(files))
		}

		out := proc.Run(context.WithoutCancel(r.Context()), req)

		response.Raw(w, statusFor(out), processCaseResponse{
			Status:  out.Status,
			Message: out.Message,
			RunID:   req.RunID,
		})
	}
}

// readFiles loads every named part. Parts with an empty filename are skipped.
func readFiles(headers []*multipart.FileHeader) ([]models.RawFile, error) {
	files := make([]models.RawFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, models.RawFile{Name: fh.Filename, Content: content})
	}
	return files, nil
}

func statusFor(out pipeline.Outcome) int {
	if out.Err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(out.Err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(out.Err, models.ErrTimedOut):
		return http.StatusGatewayTimeout
	case errors.Is(out.Err, models.ErrTransport),
		errors.Is(out.Err, models.ErrSubmission),
		errors.Is(out.Err, models.ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
