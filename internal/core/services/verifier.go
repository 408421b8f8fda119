package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
)

// DefaultConcurrency is the number of external URLs probed at once.
const DefaultConcurrency = 16

// ExternalLinkVerifier probes every URL of an ExternalLinkSet exactly once.
// Each URL is isolated: a failure, or even a panic in the checker, is
// recorded against that URL only.
type ExternalLinkVerifier struct {
	checker     driven.LinkChecker
	concurrency int
}

// NewExternalLinkVerifier creates a verifier. A concurrency of zero starts
// one goroutine per URL; a negative value uses DefaultConcurrency.
func NewExternalLinkVerifier(checker driven.LinkChecker, concurrency int) *ExternalLinkVerifier {
	if concurrency < 0 {
		concurrency = DefaultConcurrency
	}
	return &ExternalLinkVerifier{
		checker:     checker,
		concurrency: concurrency,
	}
}

// Verify checks every URL in set. report, if non-nil, is called once per
// URL as soon as its result is known; calls never overlap but their order
// is unspecified. The returned results follow the set's insertion order.
func (v *ExternalLinkVerifier) Verify(ctx context.Context, set *domain.ExternalLinkSet, report func(domain.LinkCheckResult)) []domain.LinkCheckResult {
	urls := set.URLs()
	results := make([]domain.LinkCheckResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	workers := v.concurrency
	if workers == 0 || workers > len(urls) {
		workers = len(urls)
	}

	jobs := make(chan int)
	var reportMu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result := v.check(ctx, urls[i])
				results[i] = result
				if report != nil {
					reportMu.Lock()
					report(result)
					reportMu.Unlock()
				}
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (v *ExternalLinkVerifier) check(ctx context.Context, url string) (result domain.LinkCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.LinkCheckResult{
				URL:       url,
				Err:       fmt.Errorf("checking %s: %v", url, r),
				CheckedAt: time.Now(),
			}
		}
	}()

	result = v.checker.Check(ctx, url)
	result.URL = url
	return result
}
