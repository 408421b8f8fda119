package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// HistoryService reads recorded scans from a ReportStore.
type HistoryService struct {
	reports driven.ReportStore
}

// NewHistoryService creates a history service. A nil store makes every
// call return domain.ErrNotImplemented.
func NewHistoryService(reports driven.ReportStore) *HistoryService {
	return &HistoryService{reports: reports}
}

// Recent returns the latest runs, newest first.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]domain.ScanRun, error) {
	if s.reports == nil {
		return nil, domain.ErrNotImplemented
	}
	runs, err := s.reports.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Run returns a run and the external link results recorded with it.
func (s *HistoryService) Run(ctx context.Context, id string) (*domain.ScanRun, []domain.LinkRecord, error) {
	if s.reports == nil {
		return nil, nil, domain.ErrNotImplemented
	}
	if id == "" {
		return nil, nil, domain.ErrInvalidInput
	}

	run, err := s.reports.GetRun(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get run: %w", err)
	}

	links, err := s.reports.ListLinks(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list links: %w", err)
	}
	return run, links, nil
}
