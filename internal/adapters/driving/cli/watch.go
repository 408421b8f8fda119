package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/linkcheck/internal/connectors/filesystem"
	"github.com/custodia-labs/linkcheck/internal/core/domain"
	"github.com/custodia-labs/linkcheck/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Re-check links whenever the documentation changes",
	Long: `Runs a check, then watches root and runs a fresh check after every
burst of file changes. Stop with Ctrl-C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	addScanFlags(watchCmd.Flags())
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	settings, root, err := scanSettings(cmd, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	watcher := filesystem.NewWatcher(root, settings.Watch.Debounce)
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("close watcher: %v", err)
		}
	}()

	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	rescan := func() {
		result, err := scanOnce(ctx, cmd.OutOrStdout(), root, settings)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			cmd.PrintErrf("Error: %v\n", err)
			return
		}
		printWatchSummary(cmd.OutOrStdout(), result, settings.External.FailOnBroken)
	}

	rescan()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug("changed: %v", batch)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d file(s) changed, checking again...\n", len(batch))
			rescan()
		}
	}
}

func printWatchSummary(w io.Writer, result *domain.ScanResult, failOnExternal bool) {
	styles := defaultReportStyles()
	styled := isTerminal(w)

	line := fmt.Sprintf("Checked %d documents: %d broken links", result.Documents, result.Diagnostics)
	if result.ExternalLinks > 0 {
		line += fmt.Sprintf(", %d of %d external links broken", result.BrokenExternal, result.ExternalLinks)
	}

	if styled {
		if result.ExitCode(failOnExternal) == 0 {
			line = styles.OK.Render(line)
		} else {
			line = styles.Broken.Render(line)
		}
	}
	fmt.Fprintln(w, line)

	waiting := "Watching for changes..."
	if styled {
		waiting = styles.Muted.Render(waiting)
	}
	fmt.Fprintln(w, waiting)
}
