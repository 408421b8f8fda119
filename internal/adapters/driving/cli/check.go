package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/ports/driving"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Check every link in a documentation tree",
	Long: `Scans every markdown file under root (default: the configured root, or
"docs") and reports links to missing files, missing headings and undefined
references, grouped by file:

  File Location: guide/setup.md
  	Broken link on line 12: File does not exist at path: install.md

With --external, absolute http(s) links are also requested once each and
every response other than 200 OK is reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

// Scan flags, shared by check and watch.
var (
	checkExternal     bool
	failOnExternal    bool
	concurrency       int
	timeout           time.Duration
	rateLimit         float64
	noFollowRedirects bool
	workers           int
	historyDir        string
)

func init() {
	addScanFlags(checkCmd.Flags())
	rootCmd.AddCommand(checkCmd)
}

func addScanFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&checkExternal, "external", "e", false, "Also verify absolute http(s) links")
	flags.BoolVar(&failOnExternal, "fail-on-external", false, "Exit 1 when an external link is broken")
	flags.IntVar(&concurrency, "concurrency", 16, "External requests in flight at once (0 = unbounded)")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Timeout per external request")
	flags.Float64Var(&rateLimit, "rate-limit", 0, "Maximum external requests per second (0 = unlimited)")
	flags.BoolVar(&noFollowRedirects, "no-follow-redirects", false, "Report redirects instead of following them")
	flags.IntVarP(&workers, "workers", "w", 4, "Documents analysed in parallel")
	flags.StringVar(&historyDir, "history", "", "Record the run in the history database in this directory")
}

// applyScanFlags overrides settings with the flags set on the command line.
func applyScanFlags(flags *pflag.FlagSet, settings *domain.AppSettings) {
	if flags.Changed("external") {
		settings.External.Enabled = checkExternal
	}
	if flags.Changed("fail-on-external") {
		settings.External.FailOnBroken = failOnExternal
		if failOnExternal {
			settings.External.Enabled = true
		}
	}
	if flags.Changed("concurrency") {
		settings.External.Concurrency = concurrency
	}
	if flags.Changed("timeout") {
		settings.External.Timeout = timeout
	}
	if flags.Changed("rate-limit") {
		settings.External.RateLimit = rateLimit
	}
	if flags.Changed("no-follow-redirects") {
		settings.External.FollowRedirects = !noFollowRedirects
	}
	if flags.Changed("workers") && workers > 0 {
		settings.Analysis.Workers = workers
	}
	if flags.Changed("history") {
		settings.History.Path = historyDir
	}
}

// scanSettings resolves the effective settings and root for a scan command.
func scanSettings(cmd *cobra.Command, args []string) (*domain.AppSettings, string, error) {
	svc, err := loadSettings()
	if err != nil {
		return nil, "", err
	}

	settings, err := svc.Get()
	if err != nil {
		return nil, "", fmt.Errorf("read settings: %w", err)
	}
	applyScanFlags(cmd.Flags(), settings)

	root := settings.Root
	if len(args) > 0 {
		root = args[0]
	}
	return settings, root, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	settings, root, err := scanSettings(cmd, args)
	if err != nil {
		return err
	}

	result, err := scanOnce(cmd.Context(), cmd.OutOrStdout(), root, settings)
	if err != nil {
		return err
	}

	if result.ExitCode(settings.External.FailOnBroken) != 0 {
		return ErrLinksBroken
	}
	return nil
}

// scanOnce runs one scan over a fresh store and writes the report to w.
func scanOnce(ctx context.Context, w io.Writer, root string, settings *domain.AppSettings) (result *domain.ScanResult, err error) {
	if deps.NewScanner == nil {
		return nil, errors.New("scanner not configured")
	}

	reports, err := openReports(settings.History.Path)
	if err != nil {
		return nil, err
	}
	if reports != nil {
		defer func() {
			if cerr := reports.Close(); cerr != nil {
				logger.Warn("close history: %v", cerr)
			}
		}()
	}

	scanner, err := deps.NewScanner(root, settings, reports)
	if err != nil {
		return nil, fmt.Errorf("prepare scan of %s: %w", root, err)
	}

	out := newReportWriter(w)
	defer func() {
		if ferr := flushWriter(out); ferr != nil && err == nil {
			err = ferr
		}
	}()

	result, err = scanner.Scan(ctx, driving.ScanOptions{
		Output:         out,
		Diagnostics:    settings.Diagnostics,
		CheckExternal:  settings.External.Enabled,
		FailOnExternal: settings.External.FailOnBroken,
		Workers:        settings.Analysis.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", root, err)
	}
	return result, nil
}
