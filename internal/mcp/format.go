package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vaultmcp/vaultmcp/internal/index"
	"github.com/vaultmcp/vaultmcp/internal/search"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// previewLength caps the content snippet shown per result. The full chunk
// is still available through the structured output.
const previewLength = 300

// formatSearchResults renders search hits as markdown for clients that
// display text content directly.
func formatSearchResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Search Results for %q\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "### %d. %s (score: %.2f)\n", i+1, r.FileName, r.Score)
		if r.Headers != "" {
			fmt.Fprintf(&b, "**Section:** %s\n\n", r.Headers)
		}
		fmt.Fprintf(&b, "%s\n\n---\n\n", preview(r.Content))
	}
	return b.String()
}

func preview(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= previewLength {
		return content
	}
	cut := content[:previewLength]
	// Break on a rune boundary.
	for len(cut) > 0 && cut[len(cut)-1] >= 0x80 && cut[len(cut)-1] < 0xC0 {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut) + "..."
}

// formatSyncStats renders the outcome of a sync as markdown.
func formatSyncStats(stats index.SyncStats) string {
	var b strings.Builder
	b.WriteString("## Indexing Complete\n\n")
	fmt.Fprintf(&b, "- Documents scanned: %d\n", stats.Scanned)
	fmt.Fprintf(&b, "- Documents indexed: %d\n", stats.Indexed)
	if stats.Removed > 0 {
		fmt.Fprintf(&b, "- Documents removed: %d\n", stats.Removed)
	}
	fmt.Fprintf(&b, "- Chunks created: %d\n", stats.ChunksCreated)
	if stats.Failures > 0 {
		fmt.Fprintf(&b, "- Files skipped: %d\n", stats.Failures)
	}
	fmt.Fprintf(&b, "- Time: %.1fs\n", stats.Elapsed.Seconds())
	return b.String()
}

// formatIndexStats renders index statistics as markdown, with the file
// type breakdown sorted by descending chunk count.
func formatIndexStats(stats store.Stats) string {
	var b strings.Builder
	b.WriteString("## Index Statistics\n\n")
	fmt.Fprintf(&b, "- Total chunks: %d\n", stats.TotalChunks)
	fmt.Fprintf(&b, "- Total files: %d\n", stats.TotalFiles)
	if stats.Model != "" {
		fmt.Fprintf(&b, "- Model: %s (%d dimensions)\n", stats.Model, stats.Dimensions)
	}

	if len(stats.ByType) > 0 && stats.TotalChunks > 0 {
		b.WriteString("\n### By File Type\n\n")
		types := make([]string, 0, len(stats.ByType))
		for ext := range stats.ByType {
			types = append(types, ext)
		}
		sort.Slice(types, func(i, j int) bool {
			if stats.ByType[types[i]] != stats.ByType[types[j]] {
				return stats.ByType[types[i]] > stats.ByType[types[j]]
			}
			return types[i] < types[j]
		})
		for _, ext := range types {
			count := stats.ByType[ext]
			pct := float64(count) / float64(stats.TotalChunks) * 100
			fmt.Fprintf(&b, "- .%s: %d (%.1f%%)\n", ext, count, pct)
		}
	}
	return b.String()
}
