package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaultmcp/vaultmcp/internal/watcher"
)

func newWatchCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [vault]",
		Short: "Watch the vault and re-index on change",
		Long: `Run an initial sync, then keep watching the vault and re-index files
as they are created, edited, or deleted. Stops on Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				flags.vaultPath = args[0]
			}
			return runWatch(cmd.Context(), cmd, flags)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, flags *rootFlags) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, flags, flags.debug)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	stats, err := a.syncer.Sync(ctx, a.cfg.Vault.Path, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Synced %d documents, watching %s for changes...\n",
		stats.Scanned, a.cfg.Vault.Path)

	w, err := watcher.New(watcher.Options{DebounceWindow: a.cfg.Watch.Debounce}, a.log)
	if err != nil {
		return err
	}
	defer w.Stop()

	go func() {
		if err := w.Start(ctx, a.cfg.Vault.Path); err != nil && ctx.Err() == nil {
			a.log.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Stopping.")
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			a.log.Warn("watch error", slog.String("error", err.Error()))
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, event := range batch {
				fileStats, err := a.syncer.SyncFile(ctx, event.Path)
				if err != nil {
					a.log.Warn("re-index failed",
						slog.String("path", event.Path),
						slog.String("op", event.Operation.String()),
						slog.String("error", err.Error()))
					continue
				}
				switch {
				case fileStats.Removed > 0:
					fmt.Fprintf(out, "removed %s\n", event.Path)
				case fileStats.Indexed > 0:
					fmt.Fprintf(out, "indexed %s (%d chunks)\n", event.Path, fileStats.ChunksCreated)
				}
			}
		}
	}
}
