package models

import (
	"time"

	"github.com/google/uuid"
)

// Case status values persisted in the cases table.
const (
	CaseStatusProcessing = "processing"
	CaseStatusCompleted  = "completed"
	CaseStatusFailed     = "failed"
)

// Case is the record a batch is processed for. Summary is set once
// extraction completes; Processing stays true until a terminal write.
type Case struct {
	ID         uuid.UUID  `db:"id"         json:"id"`
	UserID     *uuid.UUID `db:"user_id"    json:"user_id,omitempty"`
	Summary    *string    `db:"summary"    json:"summary,omitempty"`
	Processing bool       `db:"processing" json:"processing"`
	Status     string     `db:"status"     json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
