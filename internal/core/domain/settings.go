package domain

import "time"

// DefaultRoot is the workspace checked when no root is given.
const DefaultRoot = "docs"

// ExternalSettings configures verification of absolute http(s) links.
type ExternalSettings struct {
	// Enabled turns on link collection and external verification.
	Enabled bool

	// Concurrency bounds the number of URLs probed at once.
	// Zero means one goroutine per URL.
	Concurrency int

	// Timeout is the per-request deadline.
	Timeout time.Duration

	// RateLimit is the maximum number of requests per second.
	// Zero disables throttling.
	RateLimit float64

	// FollowRedirects makes the checker judge the final response of a
	// redirect chain instead of the first one. The default follows, as an
	// HTTP client does on its own. With it off every 3xx is reported broken,
	// which is stricter but flags links that still work.
	FollowRedirects bool

	// FailOnBroken makes broken external links fail the run.
	FailOnBroken bool
}

// AnalysisSettings configures diagnostic computation.
type AnalysisSettings struct {
	// Workers bounds concurrent per-document analysis.
	Workers int
}

// HistorySettings configures run persistence.
type HistorySettings struct {
	// Path is the directory holding the history database.
	// Empty disables persistence.
	Path string
}

// WatchSettings configures the watch command.
type WatchSettings struct {
	// Debounce is how long the watcher waits for the filesystem to settle
	// before rescanning.
	Debounce time.Duration
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Root        string
	External    ExternalSettings
	Analysis    AnalysisSettings
	Diagnostics DiagnosticOptions
	History     HistorySettings
	Watch       WatchSettings
}

// DefaultAppSettings returns the settings used when nothing is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Root: DefaultRoot,
		External: ExternalSettings{
			Enabled:         false,
			Concurrency:     16,
			Timeout:         30 * time.Second,
			FollowRedirects: true,
		},
		Analysis: AnalysisSettings{
			Workers: 4,
		},
		Diagnostics: DefaultDiagnosticOptions(),
		Watch: WatchSettings{
			Debounce: 300 * time.Millisecond,
		},
	}
}
