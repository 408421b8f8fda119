package domain

// LanguageMarkdown is the content-kind tag carried by every Document.
const LanguageMarkdown = "markdown"

// Document is an immutable snapshot of a markdown file in the workspace.
// A newer version replaces the cache entry; it is never mutated in place.
type Document struct {
	// URI is the canonical location (file:// URI).
	URI string

	// Path is the absolute filesystem path backing URI.
	Path string

	// LanguageID is the content-kind tag, always LanguageMarkdown.
	LanguageID string

	// Version increases monotonically, starting at 1 on first load.
	Version int

	// Content is the full text of the file at load time.
	Content string
}

// NewDocument creates a version 1 markdown document.
func NewDocument(uri, path, content string) *Document {
	return &Document{
		URI:        uri,
		Path:       path,
		LanguageID: LanguageMarkdown,
		Version:    1,
		Content:    content,
	}
}

// FileStat is the minimal metadata the analysis collaborator needs
// to tell directory links apart from file links.
type FileStat struct {
	IsDirectory bool
}

// Position is a zero-based line/character offset in a document.
type Position struct {
	Line      int
	Character int
}

// Range is a span between two positions in a document.
type Range struct {
	Start Position
	End   Position
}

// Before reports whether r starts before other.
func (r Range) Before(other Range) bool {
	if r.Start.Line != other.Start.Line {
		return r.Start.Line < other.Start.Line
	}
	return r.Start.Character < other.Start.Character
}
