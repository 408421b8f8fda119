package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkcheck/internal/adapters/driven/analysis/markdown"
	"github.com/custodia-labs/linkcheck/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/linkcheck/internal/connectors/filesystem"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driving"
)

// --- Mock implementations for scan testing ---

// mockDocumentStore implements driven.DocumentStore for testing.
type mockDocumentStore struct {
	root        string
	docs        []*domain.Document
	discoverErr error
}

func (m *mockDocumentStore) Root() string { return m.root }

func (m *mockDocumentStore) Discover(_ context.Context) ([]*domain.Document, error) {
	if m.discoverErr != nil {
		return nil, m.discoverErr
	}
	return m.docs, nil
}

func (m *mockDocumentStore) Contains(string) bool { return true }

func (m *mockDocumentStore) Open(_ context.Context, uri string) (*domain.Document, error) {
	for _, d := range m.docs {
		if d.URI == uri {
			return d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentStore) Stat(context.Context, string) (*domain.FileStat, error) {
	return &domain.FileStat{}, nil
}

func (m *mockDocumentStore) ReadDirectory(context.Context, string) ([]string, error) {
	return []string{}, nil
}

// mockAnalysis implements driven.AnalysisService for testing.
type mockAnalysis struct {
	diagnostics map[string][]domain.Diagnostic
	links       map[string][]domain.Link
	resolved    map[string]*domain.Link
	errs        map[string]error
	panics      map[string]bool
	delays      map[string]time.Duration

	mu      sync.Mutex
	started []string
}

func newMockAnalysis() *mockAnalysis {
	return &mockAnalysis{
		diagnostics: make(map[string][]domain.Diagnostic),
		links:       make(map[string][]domain.Link),
		resolved:    make(map[string]*domain.Link),
		errs:        make(map[string]error),
		panics:      make(map[string]bool),
		delays:      make(map[string]time.Duration),
	}
}

func (m *mockAnalysis) ComputeDiagnostics(ctx context.Context, doc *domain.Document, _ domain.DiagnosticOptions) ([]domain.Diagnostic, error) {
	m.mu.Lock()
	m.started = append(m.started, doc.URI)
	m.mu.Unlock()

	if d := m.delays[doc.URI]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.panics[doc.URI] {
		panic("analysis exploded")
	}
	if err := m.errs[doc.URI]; err != nil {
		return nil, err
	}
	return m.diagnostics[doc.URI], nil
}

func (m *mockAnalysis) GetDocumentLinks(_ context.Context, doc *domain.Document) ([]domain.Link, error) {
	return m.links[doc.URI], nil
}

func (m *mockAnalysis) ResolveDocumentLink(_ context.Context, link domain.Link) (*domain.Link, error) {
	return m.resolved[link.Label], nil
}

func diagnosticAt(line int, message string) domain.Diagnostic {
	return domain.Diagnostic{
		Range:    domain.Range{Start: domain.Position{Line: line - 1}},
		Message:  message,
		Severity: domain.SeverityError,
	}
}

func externalLink(url string) domain.Link {
	return domain.Link{
		Href:   url,
		Kind:   domain.LinkInline,
		Target: &domain.LinkTarget{Kind: domain.TargetExternal, URL: url},
	}
}

func testDocs(root string, names ...string) []*domain.Document {
	docs := make([]*domain.Document, len(names))
	for i, name := range names {
		path := filepath.Join(root, name)
		docs[i] = domain.NewDocument(filesystem.URIFromPath(path), path, "")
	}
	return docs
}

// countingCancel wraps context.WithCancel and counts cancel invocations.
func countingCancel(calls *atomic.Int32) func(context.Context) (context.Context, context.CancelFunc) {
	return func(parent context.Context) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(parent)
		return ctx, func() {
			calls.Add(1)
			cancel()
		}
	}
}

func TestScanOrchestrator_Scan_NoDocuments(t *testing.T) {
	store := &mockDocumentStore{root: t.TempDir()}
	orchestrator := NewScanOrchestrator(store, newMockAnalysis(), nil, nil)

	var out bytes.Buffer
	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{Output: &out, Workers: 4})

	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.False(t, result.HadFailure)
	assert.Equal(t, 0, result.ExitCode(false))
	assert.NotEmpty(t, result.RunID)
}

func TestScanOrchestrator_Scan_NilOutput(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md")
	analysis := newMockAnalysis()
	analysis.diagnostics[docs[0].URI] = []domain.Diagnostic{diagnosticAt(1, "boom")}

	orchestrator := NewScanOrchestrator(&mockDocumentStore{root: root, docs: docs}, analysis, nil, nil)
	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{})

	require.NoError(t, err)
	assert.True(t, result.HadFailure)
}

func TestScanOrchestrator_Scan_ReportsInDiscoveryOrder(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md", filepath.Join("guide", "b.md"), "c.md")
	analysis := newMockAnalysis()
	analysis.diagnostics[docs[0].URI] = []domain.Diagnostic{
		diagnosticAt(3, "No header found: 'x'"),
		diagnosticAt(7, "File does not exist at path: missing.md"),
	}
	analysis.diagnostics[docs[1].URI] = []domain.Diagnostic{diagnosticAt(1, "No link definition found: 'foo'")}
	// The first document finishes last.
	analysis.delays[docs[0].URI] = 50 * time.Millisecond

	orchestrator := NewScanOrchestrator(&mockDocumentStore{root: root, docs: docs}, analysis, nil, nil)

	var out bytes.Buffer
	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{Output: &out, Workers: 3})
	require.NoError(t, err)

	expected := "File Location: a.md\n" +
		"\tBroken link on line 3: No header found: 'x'\n" +
		"\tBroken link on line 7: File does not exist at path: missing.md\n" +
		"File Location: guide/b.md\n" +
		"\tBroken link on line 1: No link definition found: 'foo'\n"
	assert.Equal(t, expected, out.String())
	assert.Equal(t, 3, result.Documents)
	assert.Equal(t, 3, result.Diagnostics)
	assert.Equal(t, 2, result.DocumentsWithDiagnostics)
	assert.Equal(t, 1, result.ExitCode(false))
}

func TestScanOrchestrator_Scan_WarningsFail(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md")
	analysis := newMockAnalysis()
	warning := diagnosticAt(2, "Link definition for 'x' already exists")
	warning.Severity = domain.SeverityWarning
	analysis.diagnostics[docs[0].URI] = []domain.Diagnostic{warning}

	orchestrator := NewScanOrchestrator(&mockDocumentStore{root: root, docs: docs}, analysis, nil, nil)
	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{Workers: 1})

	require.NoError(t, err)
	assert.True(t, result.HadFailure)
}

func TestScanOrchestrator_Scan_AnalysisError(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *mockAnalysis, uri string)
	}{
		{
			name: "error",
			setup: func(m *mockAnalysis, uri string) {
				m.errs[uri] = errors.New("parser crashed")
			},
		},
		{
			name: "panic",
			setup: func(m *mockAnalysis, uri string) {
				m.panics[uri] = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			docs := testDocs(root, "a.md", "b.md")
			analysis := newMockAnalysis()
			analysis.diagnostics[docs[0].URI] = []domain.Diagnostic{diagnosticAt(1, "broken")}
			tt.setup(analysis, docs[1].URI)

			orchestrator := NewScanOrchestrator(&mockDocumentStore{root: root, docs: docs}, analysis, nil, nil)

			var out bytes.Buffer
			result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{Output: &out, Workers: 2})

			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrAnalysisFailed)
			assert.Contains(t, err.Error(), "b.md")
			// Output already written for earlier documents is kept.
			assert.Contains(t, out.String(), "File Location: a.md")
		})
	}
}

func TestScanOrchestrator_Scan_DiscoverError(t *testing.T) {
	store := &mockDocumentStore{root: t.TempDir(), discoverErr: errors.New("disk gone")}
	orchestrator := NewScanOrchestrator(store, newMockAnalysis(), nil, nil)

	_, err := orchestrator.Scan(context.Background(), driving.ScanOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover documents")
}

func TestScanOrchestrator_Scan_CancelsExactlyOnce(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md", "b.md")

	tests := []struct {
		name    string
		setup   func(m *mockAnalysis)
		wantErr bool
	}{
		{
			name:  "completes",
			setup: func(*mockAnalysis) {},
		},
		{
			name: "collaborator fails",
			setup: func(m *mockAnalysis) {
				m.errs[docs[0].URI] = errors.New("boom")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := newMockAnalysis()
			tt.setup(analysis)

			var calls atomic.Int32
			orchestrator := NewScanOrchestrator(&mockDocumentStore{root: root, docs: docs}, analysis, nil, nil)
			orchestrator.withCancel = countingCancel(&calls)

			_, err := orchestrator.Scan(context.Background(), driving.ScanOptions{Workers: 2})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestScanOrchestrator_Scan_ParentCancelled(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md", "b.md", "c.md")
	analysis := newMockAnalysis()
	for _, d := range docs {
		analysis.delays[d.URI] = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	orchestrator := NewScanOrchestrator(&mockDocumentStore{root: root, docs: docs}, analysis, nil, nil)
	_, err := orchestrator.Scan(ctx, driving.ScanOptions{Workers: 1})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanOrchestrator_Scan_ExternalNeedsVerifier(t *testing.T) {
	orchestrator := NewScanOrchestrator(&mockDocumentStore{root: t.TempDir()}, newMockAnalysis(), nil, nil)

	_, err := orchestrator.Scan(context.Background(), driving.ScanOptions{CheckExternal: true})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestScanOrchestrator_Scan_ExternalStatusWithoutReason(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md")
	analysis := newMockAnalysis()
	analysis.links[docs[0].URI] = []domain.Link{externalLink("https://example.com/odd")}

	checker := newMockLinkChecker()
	checker.statuses["https://example.com/odd"] = 599

	orchestrator := NewScanOrchestrator(
		&mockDocumentStore{root: root, docs: docs},
		analysis,
		NewExternalLinkVerifier(checker, 1),
		nil,
	)

	var out bytes.Buffer
	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{
		Output:        &out,
		Diagnostics:   domain.DefaultDiagnosticOptions(),
		CheckExternal: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.BrokenExternal)
	assert.Equal(t, "Broken link https://example.com/odd 599\n", out.String())
}

func TestScanOrchestrator_Scan_ExternalLinks(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md", "b.md")
	analysis := newMockAnalysis()
	analysis.links[docs[0].URI] = []domain.Link{
		externalLink("https://example.com/ok"),
		externalLink("https://example.com/missing"),
		{Kind: domain.LinkReference, Label: "ref"},
		{Kind: domain.LinkReference, Label: "unknown"},
	}
	analysis.links[docs[1].URI] = []domain.Link{
		externalLink("https://example.com/ok"),
		externalLink("https://internal.example.com/skip"),
		{Href: "mailto:a@example.com", Target: &domain.LinkTarget{Kind: domain.TargetOther, URL: "mailto:a@example.com"}},
	}
	resolved := externalLink("https://example.com/down")
	analysis.resolved["ref"] = &resolved

	checker := newMockLinkChecker()
	checker.statuses["https://example.com/missing"] = http.StatusNotFound
	checker.errs["https://example.com/down"] = errors.New("dial tcp: connection refused")

	orchestrator := NewScanOrchestrator(
		&mockDocumentStore{root: root, docs: docs},
		analysis,
		NewExternalLinkVerifier(checker, 4),
		nil,
	)

	opts := domain.DefaultDiagnosticOptions()
	opts.IgnoreLinks = []string{"https://internal.example.com/*"}

	var out bytes.Buffer
	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{
		Output:        &out,
		Diagnostics:   opts,
		CheckExternal: true,
		Workers:       2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ExternalLinks)
	assert.Equal(t, 2, result.BrokenExternal)
	assert.Equal(t, 1, checker.callCount("https://example.com/ok"))
	assert.Zero(t, checker.callCount("https://internal.example.com/skip"))
	assert.Contains(t, out.String(), "Broken link https://example.com/missing 404 Not Found\n")
	assert.Contains(t, out.String(), "Broken link https://example.com/down\n")
	assert.NotContains(t, out.String(), "example.com/ok")

	// External failures only fail the run on request.
	assert.False(t, result.HadFailure)
	assert.Equal(t, 0, result.ExitCode(false))
	assert.Equal(t, 1, result.ExitCode(true))
}

func TestScanOrchestrator_Scan_ExternalDisabledSkipsLinks(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md")
	analysis := newMockAnalysis()
	analysis.links[docs[0].URI] = []domain.Link{externalLink("https://example.com")}
	checker := newMockLinkChecker()

	orchestrator := NewScanOrchestrator(
		&mockDocumentStore{root: root, docs: docs},
		analysis,
		NewExternalLinkVerifier(checker, 1),
		nil,
	)
	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{})

	require.NoError(t, err)
	assert.Zero(t, result.ExternalLinks)
	assert.Zero(t, checker.callCount("https://example.com"))
}

func TestScanOrchestrator_Scan_RecordsRun(t *testing.T) {
	root := t.TempDir()
	docs := testDocs(root, "a.md")
	analysis := newMockAnalysis()
	analysis.diagnostics[docs[0].URI] = []domain.Diagnostic{diagnosticAt(4, "broken")}
	analysis.links[docs[0].URI] = []domain.Link{externalLink("https://example.com/gone")}

	checker := newMockLinkChecker()
	checker.statuses["https://example.com/gone"] = http.StatusGone
	reports := memory.NewReportStore()

	orchestrator := NewScanOrchestrator(
		&mockDocumentStore{root: root, docs: docs},
		analysis,
		NewExternalLinkVerifier(checker, 1),
		reports,
	)
	orchestrator.newID = func() string { return "run-1" }

	result, err := orchestrator.Scan(context.Background(), driving.ScanOptions{CheckExternal: true})
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)

	run, err := reports.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, root, run.Root)
	assert.Equal(t, 1, run.Diagnostics)
	assert.Equal(t, 1, run.BrokenExternal)
	assert.Equal(t, 1, run.ExitCode)

	links, err := reports.ListLinks(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/gone", links[0].URL)
	assert.Equal(t, http.StatusGone, links[0].StatusCode)
	assert.True(t, links[0].Broken)
}

// --- End-to-end over the real store and markdown analysis ---

func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newWorkspaceScanner(t *testing.T, root string) *ScanOrchestrator {
	t.Helper()
	store, err := memory.NewDocumentStore(root)
	require.NoError(t, err)
	return NewScanOrchestrator(store, markdown.NewService(store), nil, nil)
}

func TestScanOrchestrator_Workspace_Clean(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"index.md":       "# Home\n\nSee [guide](guide/intro.md#getting-started) and [above](#home).\n",
		"guide/intro.md": "# Intro\n\n## Getting Started\n\nBack to [home](../index.md).\n",
	})

	var out bytes.Buffer
	result, err := newWorkspaceScanner(t, root).Scan(context.Background(), driving.ScanOptions{
		Output:      &out,
		Diagnostics: domain.DefaultDiagnosticOptions(),
		Workers:     4,
	})

	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, 0, result.ExitCode(false))
}

func TestScanOrchestrator_Workspace_UndefinedReference(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.md": "# A\n\nSee [x][missing].\n",
	})

	var out bytes.Buffer
	result, err := newWorkspaceScanner(t, root).Scan(context.Background(), driving.ScanOptions{
		Output:      &out,
		Diagnostics: domain.DefaultDiagnosticOptions(),
		Workers:     1,
	})

	require.NoError(t, err)
	assert.Equal(t, "File Location: a.md\n\tBroken link on line 3: No link definition found: 'missing'\n", out.String())
	assert.Equal(t, 1, result.ExitCode(false))
}

func TestScanOrchestrator_Workspace_MissingFileAndHeader(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.md": "# A\n\n[gone](nope.md)\n",
		"b.md": "# B\n\n[bad](a.md#nowhere)\n",
	})

	var out bytes.Buffer
	result, err := newWorkspaceScanner(t, root).Scan(context.Background(), driving.ScanOptions{
		Output:      &out,
		Diagnostics: domain.DefaultDiagnosticOptions(),
		Workers:     2,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Diagnostics)
	assert.Regexp(t, `(?s)^File Location: a\.md\n\tBroken link on line 3: .*nope\.md\nFile Location: b\.md\n\tBroken link on line 3: .*nowhere`, out.String())
}
