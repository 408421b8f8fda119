package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/core/services"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded checks",
	Long: `Lists checks recorded in the history database, newest first.
Checks are recorded when history.path is configured or --history is given.`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a recorded check and its external link results",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

// historyLimit is a flag for the history command.
var historyLimit int

const timeLayout = "2006-01-02 15:04:05"

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of checks to list (0 = all)")
	historyCmd.PersistentFlags().StringVar(&historyDir, "history", "", "History database directory")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

// withHistory opens the configured history store for the duration of fn.
func withHistory(cmd *cobra.Command, fn func(*services.HistoryService) error) error {
	svc, err := loadSettings()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if cmd.Flags().Changed("history") {
		settings.History.Path = historyDir
	}
	if settings.History.Path == "" {
		return errors.New("history is disabled: set history.path or pass --history")
	}

	reports, err := openReports(settings.History.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := reports.Close(); err != nil {
			logger.Warn("close history: %v", err)
		}
	}()

	return fn(services.NewHistoryService(reports))
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	return withHistory(cmd, func(history *services.HistoryService) error {
		runs, err := history.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list checks: %w", err)
		}

		if len(runs) == 0 {
			cmd.Println("No checks recorded.")
			return nil
		}

		for i := range runs {
			printRunSummary(cmd, &runs[i])
			cmd.Println()
		}
		cmd.Printf("Total: %d checks\n", len(runs))
		return nil
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withHistory(cmd, func(history *services.HistoryService) error {
		run, links, err := history.Run(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("no check recorded with ID %s", args[0])
			}
			return fmt.Errorf("failed to get check: %w", err)
		}

		printRunSummary(cmd, run)
		if len(links) == 0 {
			return nil
		}

		cmd.Println()
		cmd.Println("  External links:")
		for _, link := range links {
			cmd.Printf("    %s  %s\n", linkStatus(link), link.URL)
		}
		return nil
	})
}

func printRunSummary(cmd *cobra.Command, run *domain.ScanRun) {
	status := "passed"
	if run.ExitCode != 0 {
		status = "failed"
	}

	cmd.Printf("  %s (%s)\n", run.ID, status)
	cmd.Printf("    Root: %s\n", run.Root)
	cmd.Printf("    Started: %s (took %s)\n",
		run.StartedAt.Local().Format(timeLayout),
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	cmd.Printf("    Documents: %d (%d with broken links)\n", run.Documents, run.DocumentsWithDiagnostics)
	cmd.Printf("    Broken links: %d\n", run.Diagnostics)
	if run.ExternalLinks > 0 {
		cmd.Printf("    External links: %d (%d broken)\n", run.ExternalLinks, run.BrokenExternal)
	}
}

func linkStatus(link domain.LinkRecord) string {
	switch {
	case link.Error != "":
		return "ERR"
	case link.Broken:
		return fmt.Sprintf("%d", link.StatusCode)
	default:
		return "ok "
	}
}
