package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
	"github.com/vaultmcp/vaultmcp/internal/mcp"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var noSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Serve the vault index to MCP clients over stdio. Syncs the vault once
on startup so search reflects the current notes, then answers
search_notes, index_notes, and get_index_stats tool calls.

Register in Claude Code with:
  claude mcp add vaultmcp -- vaultmcp serve --vault ~/Notes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, noSync)
		},
	}

	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Skip the startup sync and serve the existing index")

	return cmd
}

func runServe(ctx context.Context, flags *rootFlags, noSync bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stdout is the MCP transport, so logs go to file only.
	a, err := newApp(ctx, flags, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !noSync {
		stats, err := a.syncer.Sync(ctx, a.cfg.Vault.Path, false)
		switch {
		case err == nil:
			a.log.Info("startup sync complete",
				slog.Int("scanned", stats.Scanned),
				slog.Int("indexed", stats.Indexed))
		case verrs.GetCode(err) == verrs.ErrCodeSyncInProgress:
			// Another process is syncing; serve what is there.
			a.log.Warn("startup sync skipped, another sync is running")
		default:
			return err
		}
	}

	server, err := mcp.NewServer(a.engine, a.syncer, a.cfg.Vault.Path, a.log)
	if err != nil {
		return err
	}
	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
