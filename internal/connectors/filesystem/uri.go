package filesystem

import (
	"net/url"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// URIFromPath converts an absolute filesystem path to a canonical
// file:// URI. The path is cleaned first so equivalent spellings map
// to the same URI.
func URIFromPath(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Clean(path))}
	return u.String()
}

// PathFromURI converts a file:// URI to a local path.
// Bare paths pass through unchanged.
func PathFromURI(uri string) string {
	if !strings.HasPrefix(uri, fileScheme) {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return filepath.FromSlash(strings.TrimPrefix(uri, fileScheme))
	}
	return filepath.FromSlash(u.Path)
}

// RelativePath returns path relative to root for display.
// Falls back to path when no relative form exists.
func RelativePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
