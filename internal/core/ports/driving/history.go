package driving

import (
	"context"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

// HistoryService exposes previously recorded scans.
type HistoryService interface {
	// Recent returns the latest runs, newest first.
	Recent(ctx context.Context, limit int) ([]domain.ScanRun, error)

	// Run returns a run and its external link results.
	Run(ctx context.Context, id string) (*domain.ScanRun, []domain.LinkRecord, error)
}
