package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

// Scanner runs one full link check over a workspace.
type Scanner interface {
	// Scan checks every document and writes the report to opts.Output.
	// The returned result carries the failure flag used for the exit code.
	// A non-nil error means the scan was aborted.
	Scan(ctx context.Context, opts ScanOptions) (*domain.ScanResult, error)
}

// ScanOptions configures a single scan.
type ScanOptions struct {
	// Output receives the human-readable report.
	Output io.Writer

	// Diagnostics is the enforcement policy handed to the analysis service.
	Diagnostics domain.DiagnosticOptions

	// CheckExternal enables link collection and external verification.
	CheckExternal bool

	// FailOnExternal makes broken external links fail the run.
	FailOnExternal bool

	// Workers bounds concurrent diagnostic computation. Zero means 1.
	Workers int
}
