// Command linkcheck checks the links of a markdown documentation tree.
package main

import (
	"os"

	"github.com/custodia-labs/linkcheck/internal/adapters/driven/analysis/markdown"
	"github.com/custodia-labs/linkcheck/internal/adapters/driven/config/file"
	"github.com/custodia-labs/linkcheck/internal/adapters/driven/linkcheck/httpcheck"
	"github.com/custodia-labs/linkcheck/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/linkcheck/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/linkcheck/internal/adapters/driving/cli"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driving"
	"github.com/custodia-labs/linkcheck/internal/core/services"
)

func main() {
	cli.Configure(cli.Dependencies{
		OpenSettings: openSettings,
		NewScanner:   newScanner,
		OpenReports:  openReports,
	})
	os.Exit(cli.Execute())
}

func openSettings(path string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(path)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}

// newScanner wires a scan over a fresh document cache, so each scan sees
// the files as they are now.
func newScanner(root string, settings *domain.AppSettings, reports driven.ReportStore) (driving.Scanner, error) {
	store, err := memory.NewDocumentStore(root)
	if err != nil {
		return nil, err
	}

	var verifier *services.ExternalLinkVerifier
	if settings.External.Enabled {
		checker := httpcheck.NewChecker(httpcheck.Config{
			Timeout:         settings.External.Timeout,
			RateLimit:       settings.External.RateLimit,
			FollowRedirects: settings.External.FollowRedirects,
		})
		verifier = services.NewExternalLinkVerifier(checker, settings.External.Concurrency)
	}

	return services.NewScanOrchestrator(store, markdown.NewService(store), verifier, reports), nil
}

func openReports(dir string) (cli.ReportStore, error) {
	return sqlite.NewStore(dir)
}
