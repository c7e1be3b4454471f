// Package cmd provides the CLI commands for vaultmcp.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultmcp/vaultmcp/internal/profiling"
	"github.com/vaultmcp/vaultmcp/pkg/version"
)

// rootFlags are persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	vaultPath  string
	debug      bool
}

// NewRootCmd creates the root command for the vaultmcp CLI.
func NewRootCmd() *cobra.Command {
	var flags rootFlags
	var profileCPU, profileHeap string
	var cpuCleanup func()

	cmd := &cobra.Command{
		Use:   "vaultmcp",
		Short: "Local semantic search over your notes",
		Long: `VaultMCP indexes a folder of notes locally and answers semantic
queries over it, either from the command line or as an MCP server
for AI assistants like Claude Code and Cursor.

Everything runs on your machine; nothing leaves it.

Running 'vaultmcp' with no arguments syncs the vault and serves MCP
over stdio.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd.Context(), &flags, false)
		},
	}

	cmd.SetVersionTemplate("vaultmcp version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (default ~/.vaultmcp/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.vaultPath, "vault", "", "Path to the notes folder (overrides config)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileHeap, "profile-heap", "", "Write heap profile to file on exit")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if profileCPU != "" {
			var err error
			if cpuCleanup, err = profiling.StartCPU(profileCPU); err != nil {
				return err
			}
		}
		return nil
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		if cpuCleanup != nil {
			cpuCleanup()
			cpuCleanup = nil
		}
		if profileHeap != "" {
			return profiling.WriteHeap(profileHeap)
		}
		return nil
	}

	cmd.AddCommand(newIndexCmd(&flags))
	cmd.AddCommand(newSearchCmd(&flags))
	cmd.AddCommand(newStatsCmd(&flags))
	cmd.AddCommand(newWatchCmd(&flags))
	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
