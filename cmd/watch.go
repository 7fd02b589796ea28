// file: cmd/watch.go
// version: 1.1.0
// guid: 29359037-ae64-4004-acf5-aa92fe848420

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jdfalk/album-enricher/internal/watcher"
	"github.com/spf13/cobra"
)

// watchCmd refreshes albums as they change on disk
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh the library, then refresh albums as their files change",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{withClient: true})
		if err != nil {
			return err
		}
		defer a.Close()

		root, err := a.libraryRoot()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		skipInitial, _ := cmd.Flags().GetBool("skip-initial")
		if !skipInitial {
			if _, err := a.runner.Run(ctx, root); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		}

		w := watcher.New(func(dirs []string) {
			if _, err := a.runner.RunDirs(ctx, dirs); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error().Err(err).Msg("refresh of changed albums failed")
			}
		}, a.cfg.Watch.Debounce, watcher.WithLogger(a.logger))
		if err := w.Start(root); err != nil {
			return err
		}

		a.logger.Info().Str("root", root).Msg("watching library")
		<-ctx.Done()

		// Let in-flight refreshes finish before the store is closed.
		w.Stop()
		a.runner.Wait()
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("skip-initial", false, "do not refresh the whole library before watching")
	watchCmd.Flags().Duration("debounce", 0, "wait this long after the last change before refreshing")
	commandBindings[watchCmd] = map[string]string{"watch.debounce": "debounce"}
}
