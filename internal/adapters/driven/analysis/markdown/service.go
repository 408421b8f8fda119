package markdown

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/linkcheck/internal/connectors/filesystem"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.AnalysisService = (*Service)(nil)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Service analyses markdown documents served by a DocumentStore.
// Parsed documents are memoised by URI and version.
type Service struct {
	store driven.DocumentStore

	mu     sync.Mutex
	parsed map[string]*parsedDoc
}

// NewService creates an analysis service over store.
func NewService(store driven.DocumentStore) *Service {
	return &Service{
		store:  store,
		parsed: make(map[string]*parsedDoc),
	}
}

// GetDocumentLinks returns the links in doc in source order. Inline links,
// images, autolinks and definitions come back resolved; reference links
// come back unresolved. Shortcut references without a definition are
// plain text and are omitted.
func (s *Service) GetDocumentLinks(ctx context.Context, doc *domain.Document) ([]domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	parsed := s.parse(doc)
	links := make([]domain.Link, 0, len(parsed.items))
	for _, item := range parsed.items {
		link := item.Link
		link.SourceURI = doc.URI

		if link.Kind == domain.LinkReference {
			if _, defined := parsed.defs[link.Label]; item.shortcut && !defined {
				continue
			}
			links = append(links, link)
			continue
		}

		link.Target = s.resolveTarget(doc, link.Href)
		links = append(links, link)
	}

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].Range.Before(links[j].Range)
	})
	return links, nil
}

// ResolveDocumentLink resolves a reference link through the definition in
// its source document. Returns nil when no definition exists.
func (s *Service) ResolveDocumentLink(ctx context.Context, link domain.Link) (*domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if link.Target != nil {
		return &link, nil
	}
	if link.Kind != domain.LinkReference {
		return nil, nil
	}

	doc, err := s.store.Open(ctx, link.SourceURI)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", link.SourceURI, err)
	}

	def, ok := s.parse(doc).defs[link.Label]
	if !ok {
		return nil, nil
	}

	resolved := link
	resolved.Href = def.Href
	resolved.Target = s.resolveTarget(doc, def.Href)
	return &resolved, nil
}

// ComputeDiagnostics validates every link in doc against opts.
// Diagnostics are returned in source order.
func (s *Service) ComputeDiagnostics(ctx context.Context, doc *domain.Document, opts domain.DiagnosticOptions) ([]domain.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	c := &linkValidator{
		service: s,
		doc:     doc,
		parsed:  s.parse(doc),
		opts:    opts,
	}
	if err := c.run(ctx); err != nil {
		return nil, err
	}

	sort.SliceStable(c.diagnostics, func(i, j int) bool {
		return c.diagnostics[i].Range.Before(c.diagnostics[j].Range)
	})
	return c.diagnostics, nil
}

func (s *Service) parse(doc *domain.Document) *parsedDoc {
	key := doc.URI + "@" + strconv.Itoa(doc.Version)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.parsed[key]; ok {
		return p
	}
	p := parse(doc.Content)
	s.parsed[key] = p
	return p
}

// resolveTarget classifies href as written in doc. Relative paths resolve
// against the document's directory and '/' paths against the workspace
// root. Returns nil for an empty href.
func (s *Service) resolveTarget(doc *domain.Document, href string) *domain.LinkTarget {
	href = strings.TrimSpace(href)

	if scheme := schemePattern.FindString(href); scheme != "" {
		switch strings.ToLower(strings.TrimSuffix(scheme, ":")) {
		case "http", "https":
			return &domain.LinkTarget{Kind: domain.TargetExternal, URL: href}
		default:
			return &domain.LinkTarget{Kind: domain.TargetOther, URL: href}
		}
	}
	if strings.HasPrefix(href, "//") {
		return &domain.LinkTarget{Kind: domain.TargetOther, URL: href}
	}

	pathPart, fragment := href, ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		pathPart, fragment = href[:i], href[i+1:]
	}
	if i := strings.IndexByte(pathPart, '?'); i >= 0 {
		pathPart = pathPart[:i]
	}
	if decoded, err := url.PathUnescape(pathPart); err == nil {
		pathPart = decoded
	}

	var target string
	switch {
	case pathPart == "":
		if fragment == "" && href == "" {
			return nil
		}
		target = doc.Path
	case strings.HasPrefix(pathPart, "/"):
		target = filepath.Join(s.store.Root(), filepath.FromSlash(pathPart))
	default:
		target = filepath.Join(filepath.Dir(doc.Path), filepath.FromSlash(pathPart))
	}

	return &domain.LinkTarget{Kind: domain.TargetInternal, Path: target, Fragment: fragment}
}

// linkValidator computes the diagnostics of one document.
type linkValidator struct {
	service     *Service
	doc         *domain.Document
	parsed      *parsedDoc
	opts        domain.DiagnosticOptions
	diagnostics []domain.Diagnostic
}

func (c *linkValidator) run(ctx context.Context) error {
	used := make(map[string]bool)

	for _, item := range c.parsed.items {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch item.Kind {
		case domain.LinkReference:
			if _, ok := c.parsed.defs[item.Label]; ok {
				used[item.Label] = true
				continue
			}
			if item.shortcut || c.opts.Ignores(item.rawLabel) {
				continue
			}
			c.report(c.opts.ValidateReferences, item.Range, domain.CodeUndefinedReference,
				fmt.Sprintf("No link definition found: '%s'", item.rawLabel))

		case domain.LinkDefinition:
			if first := c.parsed.defs[item.Label]; first.Range != item.Range {
				c.report(c.opts.ValidateDuplicateLinkDefinitions, item.Range, domain.CodeDuplicateDefinition,
					fmt.Sprintf("Link definition for '%s' already exists", item.rawLabel))
			}
			if err := c.checkTarget(ctx, item.Link); err != nil {
				return err
			}

		default:
			if err := c.checkTarget(ctx, item.Link); err != nil {
				return err
			}
		}
	}

	for _, item := range c.parsed.items {
		if item.Kind == domain.LinkDefinition && !used[item.Label] {
			c.report(c.opts.ValidateUnusedLinkDefinitions, item.Range, domain.CodeUnusedDefinition,
				"Link definition is unused")
		}
	}
	return nil
}

// checkTarget validates an internal link target: the file must exist and
// any fragment must name an anchor in the target document.
func (c *linkValidator) checkTarget(ctx context.Context, link domain.Link) error {
	target := c.service.resolveTarget(c.doc, link.Href)
	if target == nil || target.Kind != domain.TargetInternal {
		return nil
	}
	if c.opts.Ignores(link.Href) || c.opts.Ignores(c.display(target.Path)) {
		return nil
	}

	if target.Path == c.doc.Path {
		if !c.parsed.hasAnchor(target.Fragment) {
			c.report(c.opts.ValidateFragmentLinks, link.Range, domain.CodeLinkToMissingHeader,
				fmt.Sprintf("No header found: '%s'", target.Fragment))
		}
		return nil
	}

	path, stat, err := c.stat(ctx, target.Path)
	if err != nil {
		return err
	}
	if stat == nil {
		c.report(c.opts.ValidateFileLinks, link.Range, domain.CodeLinkToMissingFile,
			fmt.Sprintf("File does not exist at path: %s", c.display(target.Path)))
		return nil
	}
	if stat.IsDirectory || target.Fragment == "" || !filesystem.IsMarkdown(path) {
		return nil
	}
	if _, ok := c.opts.ValidateMarkdownFileLinkFragments.Severity(); !ok {
		return nil
	}

	targetDoc, err := c.service.store.Open(ctx, filesystem.URIFromPath(path))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Warn("cannot open link target %s: %v", path, err)
		return nil
	}
	if !c.service.parse(targetDoc).hasAnchor(target.Fragment) {
		c.report(c.opts.ValidateMarkdownFileLinkFragments, link.Range, domain.CodeLinkToMissingFileHead,
			fmt.Sprintf("No header found: '%s' in file %s", target.Fragment, c.display(path)))
	}
	return nil
}

// stat looks up path, retrying with the markdown extension when a bare
// name does not exist. A nil stat means the target is missing.
func (c *linkValidator) stat(ctx context.Context, path string) (string, *domain.FileStat, error) {
	candidates := []string{path}
	if filepath.Ext(path) == "" {
		candidates = append(candidates, path+filesystem.MarkdownExtension)
	}

	for _, candidate := range candidates {
		stat, err := c.service.store.Stat(ctx, filesystem.URIFromPath(candidate))
		if err == nil {
			return candidate, stat, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, ctxErr
		}
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("stat %s: %v", candidate, err)
		}
	}
	return path, nil, nil
}

func (c *linkValidator) report(level domain.DiagnosticLevel, rng domain.Range, code domain.DiagnosticCode, message string) {
	severity, ok := level.Severity()
	if !ok {
		return
	}
	c.diagnostics = append(c.diagnostics, domain.Diagnostic{
		Range:    rng,
		Message:  message,
		Severity: severity,
		Code:     code,
	})
}

// display returns path relative to the workspace root with forward slashes.
func (c *linkValidator) display(path string) string {
	return filepath.ToSlash(filesystem.RelativePath(c.service.store.Root(), path))
}
