package driven

import (
	"context"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

// ReportStore persists scan summaries and external link outcomes.
type ReportStore interface {
	// SaveRun stores the summary of a finished scan together with its
	// external link results.
	SaveRun(ctx context.Context, run domain.ScanRun, links []domain.LinkRecord) error

	// GetRun retrieves a run summary by ID.
	GetRun(ctx context.Context, id string) (*domain.ScanRun, error)

	// ListRuns returns the most recent runs, newest first.
	// A limit of zero or less returns all runs.
	ListRuns(ctx context.Context, limit int) ([]domain.ScanRun, error)

	// ListLinks returns the link results recorded for a run.
	ListLinks(ctx context.Context, runID string) ([]domain.LinkRecord, error)
}
