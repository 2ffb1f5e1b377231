package store

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// CaseWriter is the part of Store the result sink needs.
type CaseWriter interface {
	UpdateCaseSummary(ctx context.Context, id uuid.UUID, summary string) error
	MarkCaseFailed(ctx context.Context, id uuid.UUID) error
}

// ResultSink persists pipeline outcomes against cases. Write failures are
// logged and reported as false, never returned.
type ResultSink struct {
	cases  CaseWriter
	logger *slog.Logger
}

// NewResultSink creates a sink writing through cases.
func NewResultSink(cases CaseWriter, logger *slog.Logger) *ResultSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultSink{cases: cases, logger: logger}
}

func (s *ResultSink) UpdateSummary(ctx context.Context, caseID uuid.UUID, summary string) bool {
	if err := s.cases.UpdateCaseSummary(ctx, caseID, summary); err != nil {
		s.logger.Error("failed to store case summary", "case_id", caseID, "error", err)
		return false
	}
	s.logger.Info("case summary stored", "case_id", caseID, "chars", len(summary))
	return true
}

func (s *ResultSink) MarkFailed(ctx context.Context, caseID uuid.UUID) bool {
	if err := s.cases.MarkCaseFailed(ctx, caseID); err != nil {
		s.logger.Error("failed to mark case failed", "case_id", caseID, "error", err)
		return false
	}
	s.logger.Info("case marked failed", "case_id", caseID)
	return true
}
