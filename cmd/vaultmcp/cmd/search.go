package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vaultmcp/vaultmcp/internal/search"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit    int
	fileType string
	format   string // "text", "json"
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed vault",
		Long: `Search the vault semantically. Matches by meaning, so a query can find
a passage even when it shares no words with it.

Examples:
  vaultmcp search "how do I rotate the api keys"
  vaultmcp search "travel plans" --limit 3
  vaultmcp search "meeting notes" --type md --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, flags, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.fileType, "type", "t", "", "Filter by file extension (e.g. md, txt, pdf)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// searchResultJSON is the JSON output shape for one hit.
type searchResultJSON struct {
	FileName   string  `json:"file_name"`
	SourcePath string  `json:"source_path"`
	Section    string  `json:"section,omitempty"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
	ChunkIndex int     `json:"chunk_index"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, flags *rootFlags, query string, opts searchOptions) error {
	a, err := newApp(ctx, flags, false)
	if err != nil {
		return err
	}
	defer a.Close()

	searchOpts := search.Options{Limit: opts.limit}
	if opts.fileType != "" {
		searchOpts.Filters = map[string]string{store.FilterFileType: opts.fileType}
	}

	results, err := a.engine.Search(ctx, query, searchOpts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		jsonResults := make([]searchResultJSON, 0, len(results))
		for _, r := range results {
			jsonResults = append(jsonResults, searchResultJSON{
				FileName:   r.FileName,
				SourcePath: r.SourcePath,
				Section:    r.Headers,
				Content:    r.Content,
				Score:      r.Score,
				ChunkIndex: r.ChunkIndex,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonResults)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	tty := isatty.IsTerminal(os.Stdout.Fd())
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s (%.2f)\n", i+1, r.FileName, r.Score)
		if r.Headers != "" {
			fmt.Fprintf(out, "   %s\n", r.Headers)
		}
		fmt.Fprintf(out, "   %s\n", snippet(r.Content, tty))
		if i < len(results)-1 {
			fmt.Fprintln(out)
		}
	}
	return nil
}

// snippet flattens a chunk to a single preview line. Terminals get a
// shorter cut so a result stays one screen line.
func snippet(content string, tty bool) string {
	flat := strings.Join(strings.Fields(content), " ")
	cut := 300
	if tty {
		cut = 160
	}
	if len(flat) <= cut {
		return flat
	}
	return strings.TrimSpace(flat[:cut]) + "..."
}
