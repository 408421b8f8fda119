package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/linkcheck/internal/connectors/filesystem"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driving"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

// Ensure ScanOrchestrator implements the interface.
var _ driving.Scanner = (*ScanOrchestrator)(nil)

// ScanOrchestrator drives one scan of a workspace: discovery, per-document
// diagnostics in discovery order, then a single external verification pass.
type ScanOrchestrator struct {
	store    driven.DocumentStore
	analysis driven.AnalysisService
	verifier *ExternalLinkVerifier
	reports  driven.ReportStore

	newID      func() string
	now        func() time.Time
	withCancel func(context.Context) (context.Context, context.CancelFunc)
}

// NewScanOrchestrator creates a scanner over store.
// verifier is only required for external checks and reports is optional;
// when set, every finished scan is recorded there.
func NewScanOrchestrator(
	store driven.DocumentStore,
	analysis driven.AnalysisService,
	verifier *ExternalLinkVerifier,
	reports driven.ReportStore,
) *ScanOrchestrator {
	return &ScanOrchestrator{
		store:      store,
		analysis:   analysis,
		verifier:   verifier,
		reports:    reports,
		newID:      uuid.NewString,
		now:        time.Now,
		withCancel: context.WithCancel,
	}
}

// documentAnalysis is the collaborator output for one document.
type documentAnalysis struct {
	diagnostics []domain.Diagnostic
	links       []domain.Link
	err         error
}

// Scan runs the check and writes the report to opts.Output.
//
// Every collaborator call shares one cancellation scope that is released
// exactly once when Scan returns, whether it completes or fails.
func (o *ScanOrchestrator) Scan(parent context.Context, opts driving.ScanOptions) (*domain.ScanResult, error) {
	ctx, cancel := o.withCancel(parent)
	defer cancel()

	if opts.CheckExternal && o.verifier == nil {
		return nil, fmt.Errorf("%w: external checks need a link verifier", domain.ErrInvalidInput)
	}

	out := opts.Output
	if out == nil {
		out = io.Discard
	}

	result := &domain.ScanResult{
		RunID:     o.newID(),
		Root:      o.store.Root(),
		StartedAt: o.now(),
	}

	logger.Section("Discovery")
	docs, err := o.store.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover documents: %w", err)
	}
	result.Documents = len(docs)
	logger.Info("found %d documents under %s", len(docs), result.Root)

	logger.Section("Analysis")
	links := domain.NewExternalLinkSet()
	if err := o.analyseAll(ctx, docs, opts, out, result, links); err != nil {
		return nil, err
	}

	if opts.CheckExternal {
		logger.Section("External links")
		o.verifyExternal(ctx, links, out, result)
	}

	result.FinishedAt = o.now()
	o.record(ctx, result, opts.FailOnExternal)

	logger.Info("scan %s finished in %s: %d diagnostics, %d broken external links",
		result.RunID, result.Duration(), result.Diagnostics, result.BrokenExternal)
	return result, nil
}

// analyseAll computes diagnostics on a bounded pool and consumes the
// results strictly in discovery order. Each document has its own buffered
// result slot, so workers never block and none outlive an early return.
func (o *ScanOrchestrator) analyseAll(
	ctx context.Context,
	docs []*domain.Document,
	opts driving.ScanOptions,
	out io.Writer,
	result *domain.ScanResult,
	links *domain.ExternalLinkSet,
) error {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	slots := make([]chan documentAnalysis, len(docs))
	for i := range slots {
		slots[i] = make(chan documentAnalysis, 1)
	}

	go func() {
		sem := make(chan struct{}, workers)
		for i, doc := range docs {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				for j := i; j < len(docs); j++ {
					slots[j] <- documentAnalysis{err: ctx.Err()}
				}
				return
			}
			go func(slot chan<- documentAnalysis, doc *domain.Document) {
				defer func() { <-sem }()
				slot <- o.analyse(ctx, doc, opts)
			}(slots[i], doc)
		}
	}()

	for i, doc := range docs {
		var res documentAnalysis
		select {
		case res = <-slots[i]:
		case <-ctx.Done():
			return ctx.Err()
		}

		if res.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %s: %w", domain.ErrAnalysisFailed, o.display(doc), res.err)
		}

		o.report(out, doc, res.diagnostics, result)

		if opts.CheckExternal {
			if err := o.collect(ctx, doc, res.links, opts.Diagnostics, links); err != nil {
				return err
			}
		}
	}
	return nil
}

// analyse asks the collaborator about one document. A panic is turned
// into an error so it surfaces through the ordered loop.
func (o *ScanOrchestrator) analyse(ctx context.Context, doc *domain.Document, opts driving.ScanOptions) (res documentAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			res = documentAnalysis{err: fmt.Errorf("panic: %v", r)}
		}
	}()

	logger.Debug("analysing %s", o.display(doc))

	diagnostics, err := o.analysis.ComputeDiagnostics(ctx, doc, opts.Diagnostics)
	if err != nil {
		return documentAnalysis{err: fmt.Errorf("compute diagnostics: %w", err)}
	}
	res.diagnostics = diagnostics

	if opts.CheckExternal {
		links, err := o.analysis.GetDocumentLinks(ctx, doc)
		if err != nil {
			return documentAnalysis{err: fmt.Errorf("get document links: %w", err)}
		}
		res.links = links
	}
	return res
}

// report prints the diagnostics block of one document.
func (o *ScanOrchestrator) report(out io.Writer, doc *domain.Document, diagnostics []domain.Diagnostic, result *domain.ScanResult) {
	if len(diagnostics) == 0 {
		return
	}

	result.HadFailure = true
	result.Diagnostics += len(diagnostics)
	result.DocumentsWithDiagnostics++

	fmt.Fprintf(out, "File Location: %s\n", o.display(doc))
	for _, d := range diagnostics {
		fmt.Fprintf(out, "\tBroken link on line %d: %s\n", d.Line(), d.Message)
	}
}

// collect resolves links lazily and adds external targets to the set.
func (o *ScanOrchestrator) collect(
	ctx context.Context,
	doc *domain.Document,
	docLinks []domain.Link,
	diagnostics domain.DiagnosticOptions,
	set *domain.ExternalLinkSet,
) error {
	for _, link := range docLinks {
		if !link.Resolved() {
			resolved, err := o.analysis.ResolveDocumentLink(ctx, link)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return fmt.Errorf("%w: %s: resolve link: %w", domain.ErrAnalysisFailed, o.display(doc), err)
			}
			if resolved == nil {
				continue
			}
			link = *resolved
		}

		if !link.IsExternal() || diagnostics.Ignores(link.Target.URL) {
			continue
		}
		if set.Add(link.Target.URL) {
			logger.Debug("external link %s (from %s)", link.Target.URL, o.display(doc))
		}
	}
	return nil
}

// verifyExternal drains the set once and prints each broken link.
// External results never set the failure flag.
func (o *ScanOrchestrator) verifyExternal(ctx context.Context, set *domain.ExternalLinkSet, out io.Writer, result *domain.ScanResult) {
	result.ExternalLinks = set.Len()
	logger.Info("verifying %d external links", set.Len())

	result.ExternalResults = o.verifier.Verify(ctx, set, func(r domain.LinkCheckResult) {
		if !r.Broken() {
			return
		}
		if r.Err != nil {
			logger.Debug("%s: %v", r.URL, r.Err)
			fmt.Fprintf(out, "Broken link %s\n", r.URL)
			return
		}
		if r.Status == "" {
			fmt.Fprintf(out, "Broken link %s %d\n", r.URL, r.StatusCode)
			return
		}
		fmt.Fprintf(out, "Broken link %s %d %s\n", r.URL, r.StatusCode, r.Status)
	})

	for _, r := range result.ExternalResults {
		if r.Broken() {
			result.BrokenExternal++
		}
	}
}

// record saves the run to the report store, if any. Failures are logged.
func (o *ScanOrchestrator) record(ctx context.Context, result *domain.ScanResult, failOnExternal bool) {
	if o.reports == nil {
		return
	}

	run := domain.NewScanRun(result, result.ExitCode(failOnExternal))
	records := make([]domain.LinkRecord, 0, len(result.ExternalResults))
	for _, r := range result.ExternalResults {
		records = append(records, domain.NewLinkRecord(result.RunID, r))
	}

	if err := o.reports.SaveRun(ctx, run, records); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("could not record scan %s: %v", result.RunID, err)
		}
		return
	}
	logger.Debug("recorded scan %s", result.RunID)
}

func (o *ScanOrchestrator) display(doc *domain.Document) string {
	return filepath.ToSlash(filesystem.RelativePath(o.store.Root(), doc.Path))
}
