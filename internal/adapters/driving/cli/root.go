package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driven"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driving"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// ErrLinksBroken is returned when a check found broken links.
// Execute maps it to exit code 1 without printing it.
var ErrLinksBroken = errors.New("broken links found")

// ReportStore is a run history store that holds an open resource.
type ReportStore interface {
	driven.ReportStore
	io.Closer
}

// Dependencies wires the adapters the commands run on. Each field is a
// factory because the inputs (config file, root, history directory) are
// only known once flags have been parsed.
type Dependencies struct {
	// OpenSettings loads settings from the config file at path.
	// An empty path means the default location.
	OpenSettings func(path string) (driving.SettingsService, error)

	// NewScanner builds a scanner over a fresh document store for root.
	// reports may be nil.
	NewScanner func(root string, settings *domain.AppSettings, reports driven.ReportStore) (driving.Scanner, error)

	// OpenReports opens the run history kept in dir.
	OpenReports func(dir string) (ReportStore, error)
}

var deps Dependencies

// Persistent flags.
var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "linkcheck",
	Short: "Check the links of a markdown documentation tree",
	Long: `linkcheck verifies that every link in a tree of markdown documents
resolves: relative file links, heading fragments and reference definitions,
and optionally absolute http(s) URLs.

It exits with status 1 when a broken link is found.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log scan progress to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .linkcheck.toml)")
}

// Configure sets the adapters used by every command.
func Configure(d Dependencies) {
	deps = d
}

// Execute runs the root command and returns the process exit code.
// Interrupts cancel the running command. Command output goes to stdout
// and errors to stderr.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	return executeContext(ctx)
}

func executeContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrLinksBroken) {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// loadSettings opens the settings service for the current --config.
func loadSettings() (driving.SettingsService, error) {
	if deps.OpenSettings == nil {
		return nil, errors.New("settings not configured")
	}
	svc, err := deps.OpenSettings(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return svc, nil
}

// openReports opens the history store at dir. An empty dir disables
// history and returns a nil store with a no-op close.
func openReports(dir string) (ReportStore, error) {
	if dir == "" {
		return nil, nil
	}
	if deps.OpenReports == nil {
		return nil, errors.New("history not configured")
	}
	store, err := deps.OpenReports(dir)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}
