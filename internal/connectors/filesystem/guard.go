package filesystem

import (
	"path/filepath"
	"strings"
)

// WithinRoot reports whether candidate is root itself or nested under it.
//
// The check is lexical: the relative path from root must not climb out
// with a parent segment and must not remain absolute. Both arguments are
// expected to be absolute; a relative candidate is never contained.
func WithinRoot(root, candidate string) bool {
	if root == "" || candidate == "" {
		return false
	}
	if !filepath.IsAbs(candidate) {
		return false
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if filepath.IsAbs(rel) {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
