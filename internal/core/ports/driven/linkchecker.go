package driven

import (
	"context"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
)

// LinkChecker probes a single external URL.
// Implementations make exactly one attempt; failures are reported in the
// result rather than returned, so one URL never affects another.
type LinkChecker interface {
	Check(ctx context.Context, url string) domain.LinkCheckResult
}
