package filesystem

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/linkcheck/internal/logger"
)

// MarkdownExtension is the suffix that marks a file as a document.
const MarkdownExtension = ".md"

// IsMarkdown reports whether path names a markdown document.
func IsMarkdown(path string) bool {
	return strings.HasSuffix(path, MarkdownExtension)
}

// WalkMarkdown returns the absolute paths of every markdown file under root
// in lexical order. Hidden files and directories (relative to root) are
// skipped. Entries that cannot be read are logged and skipped; only an
// unreadable root is returned as an error.
func WalkMarkdown(ctx context.Context, root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && isHidden(RelativePath(root, path)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		if IsMarkdown(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// isHidden reports whether any segment of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
