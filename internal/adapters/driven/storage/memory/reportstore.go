package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
)

// Ensure ReportStore implements the interface.
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore is an in-memory implementation of driven.ReportStore.
// Used when history is disabled and in tests.
type ReportStore struct {
	mu    sync.RWMutex
	runs  map[string]domain.ScanRun
	links map[string][]domain.LinkRecord
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		runs:  make(map[string]domain.ScanRun),
		links: make(map[string][]domain.LinkRecord),
	}
}

// SaveRun stores a run and replaces any links recorded for it.
func (s *ReportStore) SaveRun(_ context.Context, run domain.ScanRun, links []domain.LinkRecord) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	s.links[run.ID] = append([]domain.LinkRecord(nil), links...)
	return nil
}

// GetRun retrieves a run by ID.
func (s *ReportStore) GetRun(_ context.Context, id string) (*domain.ScanRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (s *ReportStore) ListRuns(_ context.Context, limit int) ([]domain.ScanRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.ScanRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ListLinks returns the link results for a run, ordered by URL.
func (s *ReportStore) ListLinks(_ context.Context, runID string) ([]domain.LinkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, domain.ErrNotFound
	}
	links := append([]domain.LinkRecord(nil), s.links[runID]...)
	sort.Slice(links, func(i, j int) bool {
		return links[i].URL < links[j].URL
	})
	return links, nil
}
