package domain

import "path"

// Severity is the importance of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DiagnosticCode identifies the check that produced a diagnostic.
type DiagnosticCode string

const (
	CodeLinkToMissingFile     DiagnosticCode = "link.no-such-file"
	CodeLinkToMissingHeader   DiagnosticCode = "link.no-such-header"
	CodeLinkToMissingFileHead DiagnosticCode = "link.no-such-header-in-file"
	CodeUndefinedReference    DiagnosticCode = "link.no-such-reference"
	CodeDuplicateDefinition   DiagnosticCode = "link.duplicate-definition"
	CodeUnusedDefinition      DiagnosticCode = "link.unused-definition"
)

// Diagnostic describes one broken or malformed link.
type Diagnostic struct {
	Range    Range
	Message  string
	Severity Severity
	Code     DiagnosticCode
}

// Line returns the 1-based line number the diagnostic starts on.
func (d Diagnostic) Line() int {
	return d.Range.Start.Line + 1
}

// DiagnosticLevel is the policy applied to one category of check.
type DiagnosticLevel string

const (
	LevelIgnore  DiagnosticLevel = "ignore"
	LevelWarning DiagnosticLevel = "warning"
	LevelError   DiagnosticLevel = "error"
)

// ParseDiagnosticLevel converts a config value to a level.
// Unknown values return ErrInvalidInput.
func ParseDiagnosticLevel(s string) (DiagnosticLevel, error) {
	switch DiagnosticLevel(s) {
	case LevelIgnore, LevelWarning, LevelError:
		return DiagnosticLevel(s), nil
	default:
		return "", ErrInvalidInput
	}
}

// Severity maps the level to a diagnostic severity.
// The second return is false for LevelIgnore.
func (l DiagnosticLevel) Severity() (Severity, bool) {
	switch l {
	case LevelError:
		return SeverityError, true
	case LevelWarning:
		return SeverityWarning, true
	default:
		return "", false
	}
}

// DiagnosticOptions enumerates which diagnostic categories are enforced.
type DiagnosticOptions struct {
	// IgnoreLinks are glob patterns; matching links are never reported.
	IgnoreLinks []string

	ValidateDuplicateLinkDefinitions  DiagnosticLevel
	ValidateFileLinks                 DiagnosticLevel
	ValidateFragmentLinks             DiagnosticLevel
	ValidateMarkdownFileLinkFragments DiagnosticLevel
	ValidateReferences                DiagnosticLevel
	ValidateUnusedLinkDefinitions     DiagnosticLevel
}

// DefaultDiagnosticOptions is the documentation linting policy:
// link targets and references are errors, definition hygiene is ignored.
func DefaultDiagnosticOptions() DiagnosticOptions {
	return DiagnosticOptions{
		IgnoreLinks:                       []string{},
		ValidateDuplicateLinkDefinitions:  LevelIgnore,
		ValidateFileLinks:                 LevelError,
		ValidateFragmentLinks:             LevelError,
		ValidateMarkdownFileLinkFragments: LevelError,
		ValidateReferences:                LevelError,
		ValidateUnusedLinkDefinitions:     LevelIgnore,
	}
}

// Ignores reports whether link matches one of the IgnoreLinks globs.
// Patterns use path.Match syntax, so '*' does not cross a '/'.
func (o DiagnosticOptions) Ignores(link string) bool {
	for _, pattern := range o.IgnoreLinks {
		if ok, err := path.Match(pattern, link); err == nil && ok {
			return true
		}
	}
	return false
}
