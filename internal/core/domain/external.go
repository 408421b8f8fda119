package domain

import (
	"net/http"
	"time"
)

// ExternalLinkSet is the set of unique absolute URLs found during a scan.
// Identity is the exact URL text. Insertion order is kept so that
// verification is issued in a reproducible order.
type ExternalLinkSet struct {
	seen map[string]struct{}
	urls []string
}

// NewExternalLinkSet creates an empty set.
func NewExternalLinkSet() *ExternalLinkSet {
	return &ExternalLinkSet{seen: make(map[string]struct{})}
}

// Add inserts url and reports whether it was not already present.
func (s *ExternalLinkSet) Add(url string) bool {
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.urls = append(s.urls, url)
	return true
}

// Has reports whether url is in the set.
func (s *ExternalLinkSet) Has(url string) bool {
	_, ok := s.seen[url]
	return ok
}

// Len returns the number of unique URLs.
func (s *ExternalLinkSet) Len() int {
	return len(s.urls)
}

// URLs returns a copy of the URLs in insertion order.
func (s *ExternalLinkSet) URLs() []string {
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}

// LinkCheckResult is the outcome of probing one external URL.
type LinkCheckResult struct {
	URL string

	// StatusCode is the HTTP status, 0 when the request itself failed.
	StatusCode int

	// Status is the status text (e.g. "Not Found").
	Status string

	// Err is set when the request could not be completed.
	Err error

	CheckedAt time.Time
	Duration  time.Duration
}

// Broken reports whether the URL is considered unreachable.
// Only an exact 200 counts as success.
func (r LinkCheckResult) Broken() bool {
	return r.Err != nil || r.StatusCode != http.StatusOK
}

// ErrorString returns the error text or an empty string.
func (r LinkCheckResult) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
