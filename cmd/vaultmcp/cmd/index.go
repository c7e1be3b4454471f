package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(flags *rootFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index [vault]",
		Short: "Index or re-index the vault",
		Long: `Scan the vault, chunk and embed every new or changed file, and drop
entries for files that no longer exist. Unchanged files are skipped.

Examples:
  vaultmcp index
  vaultmcp index ~/Notes
  vaultmcp index --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				flags.vaultPath = args[0]
			}
			return runIndex(cmd.Context(), cmd, flags, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-embed every file even if unchanged")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, flags *rootFlags, force bool) error {
	a, err := newApp(ctx, flags, flags.debug)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexing %s...\n", a.cfg.Vault.Path)

	stats, err := a.syncer.Sync(ctx, a.cfg.Vault.Path, force)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Scanned %d documents, indexed %d (%d chunks) in %.1fs\n",
		stats.Scanned, stats.Indexed, stats.ChunksCreated, stats.Elapsed.Seconds())
	if stats.Removed > 0 {
		fmt.Fprintf(out, "Removed %d deleted documents\n", stats.Removed)
	}
	if stats.Failures > 0 {
		fmt.Fprintf(out, "Skipped %d files with errors (see log for details)\n", stats.Failures)
	}
	return nil
}
