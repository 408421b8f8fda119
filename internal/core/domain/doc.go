// Package domain defines the core entities for linkcheck.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A loaded markdown file from the workspace
//   - Link: A reference found in a document, resolved or not
//   - Diagnostic: A broken or malformed link reported to the user
//   - ExternalLinkSet: The deduplicated external URLs of one scan
//   - ScanResult: The outcome of a single checker invocation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
