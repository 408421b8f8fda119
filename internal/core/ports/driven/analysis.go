package driven

import (
	"context"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

// AnalysisService computes links and link diagnostics for a document.
// Markdown grammar, anchor computation and reference matching all live
// behind this port; the core never parses markdown itself.
//
// Every method must honour ctx cancellation.
type AnalysisService interface {
	// ComputeDiagnostics returns the broken or malformed links of doc
	// according to the enforcement policy in opts.
	ComputeDiagnostics(ctx context.Context, doc *domain.Document, opts domain.DiagnosticOptions) ([]domain.Diagnostic, error)

	// GetDocumentLinks returns every link in doc. Links whose target
	// cannot be determined yet are returned with a nil Target.
	GetDocumentLinks(ctx context.Context, doc *domain.Document) ([]domain.Link, error)

	// ResolveDocumentLink resolves a link left unresolved by
	// GetDocumentLinks. Returns nil when it still cannot be resolved.
	ResolveDocumentLink(ctx context.Context, link domain.Link) (*domain.Link, error)
}
