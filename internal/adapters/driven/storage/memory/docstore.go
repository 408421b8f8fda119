package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/linkcheck/internal/connectors/filesystem"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// entry is a cache slot. The document is loaded at most once.
type entry struct {
	once sync.Once
	doc  *domain.Document
	err  error
}

// DocumentStore is a lazy, in-memory cache of the markdown documents
// under one workspace root. A store belongs to a single scan; entries
// are inserted on first access and never replaced.
type DocumentStore struct {
	root         string
	resolvedRoot string

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	reads   int
}

// NewDocumentStore creates a store for the workspace at root.
// A relative root is made absolute against the working directory.
func NewDocumentStore(root string) (*DocumentStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root %q: %w", root, err)
	}

	resolved := abs
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		resolved = r
	}

	return &DocumentStore{
		root:         abs,
		resolvedRoot: resolved,
		entries:      make(map[string]*entry),
	}, nil
}

// Root returns the absolute workspace root.
func (s *DocumentStore) Root() string {
	return s.root
}

// Discover walks the workspace and returns every cached document.
// Documents found by the walk come first in lexical path order, followed
// by any document opened earlier that the walk does not list.
// An unreadable root yields an empty result.
func (s *DocumentStore) Discover(ctx context.Context) ([]*domain.Document, error) {
	paths, err := filesystem.WalkMarkdown(ctx, s.root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("cannot read workspace %s: %v", s.root, err)
		return []*domain.Document{}, nil
	}

	docs := make([]*domain.Document, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))

	for _, path := range paths {
		uri := filesystem.URIFromPath(path)
		doc, err := s.Open(ctx, uri)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("skipping %s: %v", path, err)
			continue
		}
		docs = append(docs, doc)
		seen[doc.URI] = struct{}{}
	}

	s.mu.Lock()
	order := append([]string(nil), s.order...)
	s.mu.Unlock()

	for _, uri := range order {
		if _, ok := seen[uri]; ok {
			continue
		}
		if doc, err := s.Open(ctx, uri); err == nil {
			docs = append(docs, doc)
		}
	}

	logger.Debug("discovered %d documents under %s", len(docs), s.root)
	return docs, nil
}

// Contains reports whether uri is inside the workspace and exists on disk.
// Symlinks are followed and the target must also stay inside the root.
func (s *DocumentStore) Contains(uri string) bool {
	path, ok := s.localPath(uri)
	if !ok {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	return filesystem.WithinRoot(s.resolvedRoot, resolved)
}

// Open returns the cached document for uri, reading it on first use.
// Every caller receives the same *domain.Document for a given uri.
func (s *DocumentStore) Open(ctx context.Context, uri string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok := s.localPath(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, uri)
	}
	uri = filesystem.URIFromPath(path)

	s.mu.Lock()
	e, exists := s.entries[uri]
	s.mu.Unlock()

	if !exists {
		// Only contained locations get a slot, so a rejected lookup
		// can succeed later if the file appears.
		if !s.Contains(uri) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, uri)
		}
		s.mu.Lock()
		if e, exists = s.entries[uri]; !exists {
			e = &entry{}
			s.entries[uri] = e
			s.order = append(s.order, uri)
		}
		s.mu.Unlock()
	}

	e.once.Do(func() {
		e.doc, e.err = s.load(uri, path)
	})
	return e.doc, e.err
}

// Stat reports whether uri is a directory.
func (s *DocumentStore) Stat(_ context.Context, uri string) (*domain.FileStat, error) {
	if !s.Contains(uri) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, uri)
	}
	path, _ := s.localPath(uri)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, uri)
	}
	return &domain.FileStat{IsDirectory: info.IsDir()}, nil
}

// ReadDirectory is not supported and returns an empty listing.
func (s *DocumentStore) ReadDirectory(_ context.Context, _ string) ([]string, error) {
	return []string{}, nil
}

// Reads returns how many files have been read from disk.
func (s *DocumentStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *DocumentStore) load(uri, path string) (*domain.Document, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()

	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, uri)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		// The file may have vanished since the containment check.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, uri)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	logger.Debug("loaded %s", filesystem.RelativePath(s.root, path))
	return domain.NewDocument(uri, path, string(content)), nil
}

// localPath converts uri to a cleaned absolute path inside the root.
func (s *DocumentStore) localPath(uri string) (string, bool) {
	path := filesystem.PathFromURI(uri)
	if !filepath.IsAbs(path) {
		return "", false
	}
	path = filepath.Clean(path)
	if !filesystem.WithinRoot(s.root, path) {
		return "", false
	}
	return path, true
}
