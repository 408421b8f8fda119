package domain

// LinkKind describes how a link is written in markdown.
type LinkKind string

const (
	// LinkInline is [text](target).
	LinkInline LinkKind = "inline"

	// LinkImage is ![alt](target).
	LinkImage LinkKind = "image"

	// LinkAutolink is <https://example.com>.
	LinkAutolink LinkKind = "autolink"

	// LinkReference is [text][label], [label][] or [label].
	LinkReference LinkKind = "reference"

	// LinkDefinition is [label]: target.
	LinkDefinition LinkKind = "definition"
)

// TargetKind classifies a resolved link target.
type TargetKind string

const (
	// TargetExternal is an absolute http or https URL.
	TargetExternal TargetKind = "external"

	// TargetInternal is a file in the workspace, optionally with a fragment.
	TargetInternal TargetKind = "internal"

	// TargetOther is any other scheme (mailto:, tel:, ...). Never validated.
	TargetOther TargetKind = "other"
)

// LinkTarget is where a link points once resolved.
type LinkTarget struct {
	Kind TargetKind

	// URL is set for external and other targets.
	URL string

	// Path is the absolute filesystem path for internal targets.
	Path string

	// Fragment is the anchor without the leading '#', may be empty.
	Fragment string
}

// Link is a reference discovered in a document.
type Link struct {
	// SourceURI is the URI of the document containing the link.
	SourceURI string

	// Range locates the link in the source document.
	Range Range

	// Href is the raw destination as written. Empty for reference
	// links until they are resolved through their definition.
	Href string

	// Kind is the syntactic form of the link.
	Kind LinkKind

	// Label is the normalised reference label for reference links
	// and definitions.
	Label string

	// Target is nil while the link is unresolved.
	Target *LinkTarget
}

// Resolved reports whether the link target has been determined.
func (l *Link) Resolved() bool {
	return l.Target != nil
}

// IsExternal reports whether the link resolves to an external URL.
func (l *Link) IsExternal() bool {
	return l.Target != nil && l.Target.Kind == TargetExternal
}
