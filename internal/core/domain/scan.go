package domain

import "time"

// ScanResult accumulates the outcome of a single checker invocation.
// It is discarded once the exit code has been derived (or persisted
// as a ScanRun when history is enabled).
type ScanResult struct {
	RunID      string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time

	// Documents is the number of markdown documents scanned.
	Documents int

	// Diagnostics is the total number of internal diagnostics.
	Diagnostics int

	// DocumentsWithDiagnostics counts documents with at least one diagnostic.
	DocumentsWithDiagnostics int

	// ExternalLinks is the number of unique external URLs verified.
	ExternalLinks int

	// BrokenExternal is the number of external URLs classified broken.
	BrokenExternal int

	// HadFailure is set when any internal diagnostic was produced.
	HadFailure bool

	// ExternalResults holds every verification outcome of the run.
	ExternalResults []LinkCheckResult
}

// ExitCode derives the process exit status. External failures only
// count when failOnExternal is set.
func (r *ScanResult) ExitCode(failOnExternal bool) int {
	if r.HadFailure {
		return 1
	}
	if failOnExternal && r.BrokenExternal > 0 {
		return 1
	}
	return 0
}

// Duration returns how long the scan took.
func (r *ScanResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ScanRun is the persisted summary of a scan for the history command.
type ScanRun struct {
	ID                       string
	Root                     string
	StartedAt                time.Time
	FinishedAt               time.Time
	Documents                int
	Diagnostics              int
	DocumentsWithDiagnostics int
	ExternalLinks            int
	BrokenExternal           int
	ExitCode                 int
}

// NewScanRun builds the persisted summary of r.
func NewScanRun(r *ScanResult, exitCode int) ScanRun {
	return ScanRun{
		ID:                       r.RunID,
		Root:                     r.Root,
		StartedAt:                r.StartedAt,
		FinishedAt:               r.FinishedAt,
		Documents:                r.Documents,
		Diagnostics:              r.Diagnostics,
		DocumentsWithDiagnostics: r.DocumentsWithDiagnostics,
		ExternalLinks:            r.ExternalLinks,
		BrokenExternal:           r.BrokenExternal,
		ExitCode:                 exitCode,
	}
}

// LinkRecord is a persisted external link verification outcome.
type LinkRecord struct {
	RunID      string
	URL        string
	StatusCode int
	Status     string
	Error      string
	Broken     bool
	CheckedAt  time.Time
}

// NewLinkRecord converts a verification result for persistence.
func NewLinkRecord(runID string, r LinkCheckResult) LinkRecord {
	return LinkRecord{
		RunID:      runID,
		URL:        r.URL,
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Error:      r.ErrorString(),
		Broken:     r.Broken(),
		CheckedAt:  r.CheckedAt,
	}
}
