package driven

import (
	"context"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

// DocumentStore presents a workspace directory tree as loaded markdown
// documents. Documents are read from disk on demand and cached for the
// rest of the scan; entries are inserted once and never evicted.
type DocumentStore interface {
	// Root returns the absolute workspace root directory.
	Root() string

	// Discover walks the workspace, loads every markdown file not yet
	// cached and returns all cached documents in a stable order.
	// Calling it again does not reload cached documents.
	Discover(ctx context.Context) ([]*domain.Document, error)

	// Contains reports whether uri is inside the workspace root and a
	// file or directory exists there. It never loads the document.
	Contains(uri string) bool

	// Open returns the cached document for uri, loading it on first use.
	// Returns domain.ErrNotFound when Contains(uri) is false.
	Open(ctx context.Context, uri string) (*domain.Document, error)

	// Stat returns minimal metadata for uri.
	// Returns domain.ErrNotFound when Contains(uri) is false.
	Stat(ctx context.Context, uri string) (*domain.FileStat, error)

	// ReadDirectory is unsupported and always returns an empty result.
	ReadDirectory(ctx context.Context, uri string) ([]string, error)
}
