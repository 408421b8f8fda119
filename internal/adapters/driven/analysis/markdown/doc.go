// Package markdown implements driven.AnalysisService for markdown documents.
//
// The parser is a line scanner rather than a full CommonMark implementation.
// It understands fenced code blocks, inline code spans, HTML comments, ATX
// and setext headings, explicit <a name|id> anchors, inline links, images,
// autolinks, reference links and link definitions. Heading anchors follow
// the GitHub slug rules.
package markdown
