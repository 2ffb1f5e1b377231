// Package pipeline runs one case batch end to end: classify, convert,
// group, upload, submit, poll, and persist the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/caseflow/internal/convert"
	"github.com/kiranshivaraju/caseflow/internal/extraction"
	"github.com/kiranshivaraju/caseflow/internal/intake"
	"github.com/kiranshivaraju/caseflow/internal/upload"
	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// Front-door statuses.
const (
	StatusProcessingStarted = "processing_started"
	StatusError             = "error"
)

// ImageUploader uploads every image or none.
type ImageUploader interface {
	UploadAll(ctx context.Context, images []models.ConvertedImage, targets map[string]models.UploadTarget) (map[string]string, error)
}

// Submitter starts an extraction job.
type Submitter interface {
	Submit(ctx context.Context, req models.ExtractionRequest) (string, error)
}

// JobPoller waits for a job to reach a terminal state.
type JobPoller interface {
	Poll(ctx context.Context, jobID string) (extraction.Outcome, error)
	MaxAttempts() int
}

// ResultSink persists the outcome against the case. Neither method returns
// an error; false means the write did not happen.
type ResultSink interface {
	UpdateSummary(ctx context.Context, caseID uuid.UUID, summary string) bool
	MarkFailed(ctx context.Context, caseID uuid.UUID) bool
}

// RunRecorder stores the current stage of a run for status lookups.
type RunRecorder interface {
	SetRunStatus(ctx context.Context, rec models.RunRecord, ttl time.Duration) error
}

// Dependencies holds everything the orchestrator calls out to. Runs may be
// nil.
type Dependencies struct {
	WorkDir   string
	Converter convert.Converter
	Targets   upload.TargetSource
	Uploader  ImageUploader
	Submitter Submitter
	Poller    JobPoller
	Sink      ResultSink
	Runs      RunRecorder
	RunTTL    time.Duration
	Logger    *slog.Logger
}

// Request is one case batch.
type Request struct {
	RunID  uuid.UUID
	CaseID uuid.UUID
	UserID uuid.UUID
	Files  []models.RawFile
	Notes  string
}

// Outcome is what the front door reports back.
type Outcome struct {
	Status  string
	Message string
	Err     error
}

// Orchestrator sequences the pipeline stages for one request at a time.
// Concurrent Runs are safe: each gets its own workspace.
type Orchestrator struct {
	deps Dependencies
}

// New creates an Orchestrator.
func New(deps Dependencies) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RunTTL <= 0 {
		deps.RunTTL = time.Hour
	}
	return &Orchestrator{deps: deps}
}

// Run processes req. The workspace is removed on every exit path. Any
// failure marks the case failed in the sink and is returned in Outcome.Err.
func (o *Orchestrator) Run(ctx context.Context, req Request) Outcome {
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	logger := o.deps.Logger.With("run_id", req.RunID, "case_id", req.CaseID)
	logger.Info("case run started", "user_id", req.UserID, "files", len(req.Files))
	o.record(ctx, logger, req, models.RunStatusReceived, "")

	summary, err := o.execute(ctx, logger, req)
	if err != nil {
		return o.fail(ctx, logger, req, err)
	}

	if !o.deps.Sink.UpdateSummary(ctx, req.CaseID, summary) {
		logger.Error("summary was not persisted")
	}
	o.record(ctx, logger, req, models.RunStatusCompleted, "")
	logger.Info("case run completed", "summary_chars", len(summary))
	return Outcome{Status: StatusProcessingStarted}
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, req Request) (string, error) {
	if len(req.Files) == 0 {
		return "", fmt.Errorf("%w: no files uploaded", models.ErrValidation)
	}

	ws, err := intake.NewWorkspace(o.deps.WorkDir, req.RunID.String())
	if err != nil {
		return "", fmt.Errorf("creating workspace: %w", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			logger.Error("workspace cleanup failed", "error", err)
		}
	}()

	saved, err := ws.Save(req.Files)
	if err != nil {
		return "", err
	}

	batch, err := intake.Classify(saved)
	if err != nil {
		return "", err
	}
	logger.Info("files classified", "documents", len(batch.Documents), "notes", len(batch.Notes))

	o.record(ctx, logger, req, models.RunStatusConverting, "")
	images, counts, err := o.convertAll(ctx, logger, ws, batch.Documents)
	if err != nil {
		return "", err
	}

	notes := intake.MergeNotes(logger, req.Notes, batch.Notes)

	filenames := make([]string, len(images))
	for i, img := range images {
		filenames[i] = img.Name
	}
	groups, err := Group(filenames, counts)
	if err != nil {
		return "", err
	}

	o.record(ctx, logger, req, models.RunStatusUploading, "")
	targets, err := o.deps.Targets.GetUploadTargets(ctx, filenames)
	if err != nil {
		return "", err
	}
	keys, err := o.deps.Uploader.UploadAll(ctx, images, targets)
	if err != nil {
		return "", err
	}

	clinical, err := BuildClinicalData(groups, keys)
	if err != nil {
		return "", err
	}

	o.record(ctx, logger, req, models.RunStatusExtracting, "")
	jobID, err := o.deps.Submitter.Submit(ctx, models.ExtractionRequest{
		ClinicalData:   clinical,
		AdditionalData: notes,
	})
	if err != nil {
		return "", err
	}
	logger = logger.With("job_id", jobID)
	logger.Info("extraction job submitted", "documents", len(clinical), "notes_chars", len(notes))

	o.record(ctx, logger, req, models.RunStatusPolling, "")
	out, err := o.deps.Poller.Poll(ctx, jobID)
	if err != nil {
		return "", err
	}
	return out.Result, nil
}

// convertAll converts documents one at a time so each document's image count
// is known exactly. Images are renamed i1.jpeg, i2.jpeg, ... in production
// order. A document that fails to convert contributes zero images.
func (o *Orchestrator) convertAll(ctx context.Context, logger *slog.Logger, ws *intake.Workspace, docs []models.RawFile) ([]models.ConvertedImage, []int, error) {
	var images []models.ConvertedImage
	counts := make([]int, len(docs))

	for i, doc := range docs {
		dir, err := ws.DocumentDir(i + 1)
		if err != nil {
			return nil, nil, err
		}

		pages, err := o.deps.Converter.Convert(ctx, doc.Path, dir)
		if err != nil {
			logger.Warn("document conversion failed", "file", doc.Name, "error", err)
			continue
		}

		for _, page := range pages {
			seq := len(images) + 1
			name := fmt.Sprintf("i%d.jpeg", seq)
			dst := filepath.Join(ws.ImagesDir, name)
			if err := os.Rename(page, dst); err != nil {
				return nil, nil, fmt.Errorf("staging %s: %w", name, err)
			}
			images = append(images, models.ConvertedImage{Seq: seq, Name: name, Path: dst, Document: i + 1})
		}
		counts[i] = len(pages)
		logger.Info("document converted", "file", doc.Name, "pages", len(pages))
	}

	if len(images) == 0 {
		return nil, nil, fmt.Errorf("%w: no images produced from %d documents", models.ErrValidation, len(docs))
	}
	return images, counts, nil
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, req Request, err error) Outcome {
	status := models.RunStatusFailed
	message := err.Error()
	if errors.Is(err, models.ErrTimedOut) {
		status = models.RunStatusTimedOut
		message = fmt.Sprintf("Case creation failed - AI processing timed out after %d attempts", o.deps.Poller.MaxAttempts())
	}

	logger.Error("case run failed", "status", status, "error", err)
	if !o.deps.Sink.MarkFailed(ctx, req.CaseID) {
		logger.Error("failure marker was not persisted")
	}
	o.record(ctx, logger, req, status, message)

	return Outcome{Status: StatusError, Message: message, Err: err}
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, req Request, status, message string) {
	if o.deps.Runs == nil {
		return
	}
	rec := models.RunRecord{
		RunID:     req.RunID,
		CaseID:    req.CaseID,
		Status:    status,
		Message:   message,
		UpdatedAt: time.Now().UTC(),
	}
	if err := o.deps.Runs.SetRunStatus(ctx, rec, o.deps.RunTTL); err != nil {
		logger.Warn("recording run status failed", "status", status, "error", err)
	}
}
