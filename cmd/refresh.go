// file: cmd/refresh.go
// version: 1.0.0
// guid: ffe37495-c063-4e01-a7fd-142a6f45ad0f

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jdfalk/album-enricher/internal/agent"
	"github.com/spf13/cobra"
)

// refreshCmd runs one enrichment pass
var refreshCmd = &cobra.Command{
	Use:   "refresh [album-dir...]",
	Short: "Fetch Last.fm metadata for albums that need it",
	Long: `Refresh scans the library root (or only the given album directories) and
looks up every album whose tracks changed or whose last lookup expired.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		showProgress, _ := cmd.Flags().GetBool("progress")
		var progress io.Writer
		if showProgress {
			progress = cmd.ErrOrStderr()
		}

		a, err := newApp(appOptions{withClient: true, progress: progress})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var summary *agent.Summary
		if len(args) > 0 {
			summary, err = a.runner.RunDirs(ctx, args)
		} else {
			root, rootErr := a.libraryRoot()
			if rootErr != nil {
				return rootErr
			}
			summary, err = a.runner.Run(ctx, root)
		}
		if summary != nil {
			printSummary(cmd.OutOrStdout(), summary)
		}
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("refresh interrupted")
		}
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d albums failed to refresh", summary.Failed)
		}
		return nil
	},
}

func init() {
	refreshCmd.Flags().Bool("progress", false, "show a progress bar")
}

func printSummary(w io.Writer, s *agent.Summary) {
	fmt.Fprintf(w, "Scanned %d albums: %d found, %d not found, %d skipped, %d failed, %d canceled\n",
		s.Scanned, s.Found, s.NotFound, s.Skipped, s.Failed, s.Canceled)
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s: %s\n", e.AlbumID, e.Error)
	}
}
