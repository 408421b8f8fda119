package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument("file:///docs/index.md", "/docs/index.md", "# Title\n")

	require.NotNil(t, doc)
	assert.Equal(t, "file:///docs/index.md", doc.URI)
	assert.Equal(t, "/docs/index.md", doc.Path)
	assert.Equal(t, LanguageMarkdown, doc.LanguageID)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "# Title\n", doc.Content)
}

func TestRange_Before(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Range
		expected bool
	}{
		{
			name:     "earlier line",
			a:        Range{Start: Position{Line: 1, Character: 10}},
			b:        Range{Start: Position{Line: 2, Character: 0}},
			expected: true,
		},
		{
			name:     "same line earlier character",
			a:        Range{Start: Position{Line: 3, Character: 1}},
			b:        Range{Start: Position{Line: 3, Character: 5}},
			expected: true,
		},
		{
			name:     "later line",
			a:        Range{Start: Position{Line: 4}},
			b:        Range{Start: Position{Line: 3}},
			expected: false,
		},
		{
			name:     "identical start",
			a:        Range{Start: Position{Line: 3, Character: 2}},
			b:        Range{Start: Position{Line: 3, Character: 2}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Before(tt.b))
		})
	}
}

func TestLink_Resolved(t *testing.T) {
	t.Run("unresolved reference", func(t *testing.T) {
		link := Link{Kind: LinkReference, Label: "guide"}
		assert.False(t, link.Resolved())
		assert.False(t, link.IsExternal())
	})

	t.Run("external target", func(t *testing.T) {
		link := Link{
			Kind:   LinkInline,
			Href:   "https://example.com",
			Target: &LinkTarget{Kind: TargetExternal, URL: "https://example.com"},
		}
		assert.True(t, link.Resolved())
		assert.True(t, link.IsExternal())
	})

	t.Run("internal target", func(t *testing.T) {
		link := Link{
			Kind:   LinkInline,
			Href:   "./api.md#usage",
			Target: &LinkTarget{Kind: TargetInternal, Path: "/docs/api.md", Fragment: "usage"},
		}
		assert.True(t, link.Resolved())
		assert.False(t, link.IsExternal())
	})
}
