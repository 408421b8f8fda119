package filesystem

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestWithinRoot(t *testing.T) {
	root := filepath.FromSlash("/work/docs")

	tests := []struct {
		name      string
		candidate string
		expected  bool
	}{
		{"root itself", "/work/docs", true},
		{"root with trailing slash", "/work/docs/", true},
		{"direct child", "/work/docs/index.md", true},
		{"nested child", "/work/docs/api/v1/guide.md", true},
		{"dotdot that stays inside", "/work/docs/api/../index.md", true},
		{"file named with leading dots", "/work/docs/..hidden.md", true},
		{"parent directory", "/work", false},
		{"grandparent", "/", false},
		{"sibling with shared prefix", "/work/docs-old/index.md", false},
		{"traversal to etc passwd", "/work/docs/../../etc/passwd", false},
		{"traversal one level", "/work/docs/../README.md", false},
		{"unrelated absolute path", "/etc/passwd", false},
		{"relative candidate", "docs/index.md", false},
		{"relative traversal", "../../etc/passwd", false},
		{"empty candidate", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithinRoot(root, filepath.FromSlash(tt.candidate))
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("empty root", func(t *testing.T) {
		assert.False(t, WithinRoot("", "/work/docs/index.md"))
	})
}

func TestWithinRootProperties(t *testing.T) {
	root := filepath.FromSlash("/work/docs")
	properties := gopter.NewProperties(nil)

	segment := gen.RegexMatch(`^[a-zA-Z0-9_-]{1,12}$`)

	properties.Property("paths built from plain segments stay inside", prop.ForAll(
		func(parts []string) bool {
			candidate := filepath.Join(append([]string{root}, parts...)...)
			return WithinRoot(root, candidate)
		},
		gen.SliceOfN(4, segment),
	))

	properties.Property("climbing above the root is never contained", prop.ForAll(
		func(depth int, name string) bool {
			parts := []string{root}
			for i := 0; i < depth; i++ {
				parts = append(parts, "..")
			}
			parts = append(parts, "out-"+name)
			candidate := filepath.Join(parts...)
			return !WithinRoot(root, candidate)
		},
		gen.IntRange(1, 6),
		segment,
	))

	properties.Property("adversarial relative inputs are rejected", prop.ForAll(
		func(input string) bool {
			return !WithinRoot(root, input)
		},
		gen.OneConstOf(
			"../../etc/passwd",
			"..",
			"docs/../../secret",
			"./index.md",
			"index.md",
			strings.Repeat("../", 8)+"etc/shadow",
		),
	))

	properties.Property("containment is stable across calls", prop.ForAll(
		func(candidate string) bool {
			return WithinRoot(root, candidate) == WithinRoot(root, candidate)
		},
		gen.OneConstOf("/work/docs", "/work", "/work/docs/a/../../b", "/etc/passwd", ""),
	))

	properties.TestingRun(t)
}
