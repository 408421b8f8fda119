package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document or file does not exist
	// or is not resolvable inside the workspace.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrOutsideWorkspace indicates a location escapes the workspace root.
	ErrOutsideWorkspace = errors.New("outside workspace")

	// ErrAnalysisFailed indicates the analysis collaborator failed
	// unexpectedly. A scan that hits it is aborted.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrStoreClosed indicates a report store has been closed.
	ErrStoreClosed = errors.New("store closed")
)
