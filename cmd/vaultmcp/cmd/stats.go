package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Display what is currently indexed: chunk and file counts, the breakdown by file type, and the embedding model in use.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, flags, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// statsOutput is the JSON output format for index stats.
type statsOutput struct {
	TotalChunks int            `json:"total_chunks"`
	TotalFiles  int            `json:"total_files"`
	ByType      map[string]int `json:"by_type,omitempty"`
	Model       string         `json:"model,omitempty"`
	Dimensions  int            `json:"dimensions"`
}

func runStats(ctx context.Context, cmd *cobra.Command, flags *rootFlags, jsonOutput bool) error {
	a, err := newApp(ctx, flags, false)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.engine.Stats(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statsOutput{
			TotalChunks: stats.TotalChunks,
			TotalFiles:  stats.TotalFiles,
			ByType:      stats.ByType,
			Model:       stats.Model,
			Dimensions:  stats.Dimensions,
		})
	}

	fmt.Fprintf(out, "Vault:  %s\n", a.cfg.Vault.Path)
	fmt.Fprintf(out, "Chunks: %d across %d files\n", stats.TotalChunks, stats.TotalFiles)
	if stats.Model != "" {
		fmt.Fprintf(out, "Model:  %s (%d dimensions)\n", stats.Model, stats.Dimensions)
	}
	if len(stats.ByType) > 0 {
		types := make([]string, 0, len(stats.ByType))
		for ext := range stats.ByType {
			types = append(types, ext)
		}
		sort.Strings(types)
		fmt.Fprintln(out, "\nBy type:")
		for _, ext := range types {
			fmt.Fprintf(out, "  .%-6s %d\n", ext, stats.ByType[ext])
		}
	}
	return nil
}
