package models

import (
	"time"

	"github.com/google/uuid"
)

// Status values reported by the extraction service for a job.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job is an asynchronous extraction task. The service assigns the ID on
// submission; callers poll by ID until the status is completed or failed.
// Result is set only when Status is completed; Error carries the reason the
// service reported for a failed job.
type Job struct {
	ID     string
	Status string
	Result string
	Error  string
}

// Run stages recorded for the front door's status endpoint.
const (
	RunStatusReceived   = "received"
	RunStatusConverting = "converting"
	RunStatusUploading  = "uploading"
	RunStatusExtracting = "extracting"
	RunStatusPolling    = "polling"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
	RunStatusTimedOut   = "timed_out"
)

// RunRecord is the last recorded stage of one pipeline run.
type RunRecord struct {
	RunID     uuid.UUID `json:"run_id"`
	CaseID    uuid.UUID `json:"case_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
