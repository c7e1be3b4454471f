package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vaultmcp/vaultmcp/internal/search"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// SearchNotesInput defines the input schema for the search_notes tool.
type SearchNotesInput struct {
	Query    string `json:"query" jsonschema:"the search query to execute"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	FileType string `json:"file_type,omitempty" jsonschema:"filter by file extension, e.g. md, txt, pdf"`
}

// SearchNotesOutput defines the output schema for the search_notes tool.
type SearchNotesOutput struct {
	Results []NoteResult `json:"results" jsonschema:"list of search results"`
}

// NoteResult is a single search hit with its provenance.
type NoteResult struct {
	FileName   string  `json:"file_name" jsonschema:"name of the file the chunk came from"`
	SourcePath string  `json:"source_path" jsonschema:"full path of the source file"`
	Section    string  `json:"section,omitempty" jsonschema:"header path of the chunk, e.g. Setup > Install"`
	Content    string  `json:"content" jsonschema:"matched content snippet"`
	Score      float32 `json:"score" jsonschema:"relevance score between 0 and 1"`
	ChunkIndex int     `json:"chunk_index" jsonschema:"position of the chunk within its file"`
}

// IndexNotesInput defines the input schema for the index_notes tool.
type IndexNotesInput struct {
	VaultPath string `json:"vault_path,omitempty" jsonschema:"path to the vault folder, defaults to the configured vault"`
	Force     bool   `json:"force,omitempty" jsonschema:"re-embed every file even if unchanged"`
}

// IndexNotesOutput defines the output schema for the index_notes tool.
type IndexNotesOutput struct {
	Scanned       int     `json:"documents_scanned" jsonschema:"documents found in the vault"`
	Indexed       int     `json:"documents_indexed" jsonschema:"documents chunked and embedded"`
	Removed       int     `json:"documents_removed" jsonschema:"indexed documents no longer in the vault"`
	ChunksCreated int     `json:"chunks_created" jsonschema:"chunks written to the index"`
	Failures      int     `json:"failures" jsonschema:"files skipped due to extraction or embedding errors"`
	Seconds       float64 `json:"time_seconds" jsonschema:"wall clock time of the sync"`
}

// IndexStatsInput defines the input schema for the get_index_stats tool.
type IndexStatsInput struct{}

// IndexStatsOutput defines the output schema for the get_index_stats tool.
type IndexStatsOutput struct {
	TotalChunks int            `json:"total_chunks" jsonschema:"number of chunks in the index"`
	TotalFiles  int            `json:"total_files" jsonschema:"number of indexed source files"`
	ByType      map[string]int `json:"by_type,omitempty" jsonschema:"chunk counts per file type"`
	Model       string         `json:"model,omitempty" jsonschema:"embedding model the index was built with"`
	Dimensions  int            `json:"dimensions" jsonschema:"embedding dimensionality"`
}

func (s *Server) mcpSearchNotesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchNotesInput) (
	*mcp.CallToolResult,
	SearchNotesOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchNotesOutput{}, NewInvalidParamsError("query parameter is required")
	}

	opts := search.Options{Limit: search.DefaultLimit}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	if input.FileType != "" {
		opts.Filters = map[string]string{store.FilterFileType: input.FileType}
	}

	results, err := s.engine.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchNotesOutput{}, MapError(err)
	}

	output := SearchNotesOutput{Results: make([]NoteResult, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, NoteResult{
			FileName:   r.FileName,
			SourcePath: r.SourcePath,
			Section:    r.Headers,
			Content:    r.Content,
			Score:      r.Score,
			ChunkIndex: r.ChunkIndex,
		})
	}

	return textResult(formatSearchResults(input.Query, results)), output, nil
}

func (s *Server) mcpIndexNotesHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexNotesInput) (
	*mcp.CallToolResult,
	IndexNotesOutput,
	error,
) {
	vault := input.VaultPath
	if vault == "" {
		vault = s.vault
	}
	if vault == "" {
		return nil, IndexNotesOutput{}, NewInvalidParamsError("vault_path is required when no default vault is configured")
	}

	start := time.Now()
	stats, err := s.syncer.Sync(ctx, vault, input.Force)
	if err != nil {
		return nil, IndexNotesOutput{}, MapError(err)
	}

	s.logger.Info("index_notes completed",
		slog.String("vault", vault),
		slog.Int("indexed", stats.Indexed),
		slog.Duration("duration", time.Since(start)))

	output := IndexNotesOutput{
		Scanned:       stats.Scanned,
		Indexed:       stats.Indexed,
		Removed:       stats.Removed,
		ChunksCreated: stats.ChunksCreated,
		Failures:      stats.Failures,
		Seconds:       stats.Elapsed.Seconds(),
	}
	return textResult(formatSyncStats(stats)), output, nil
}

func (s *Server) mcpIndexStatsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatsInput) (
	*mcp.CallToolResult,
	IndexStatsOutput,
	error,
) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, IndexStatsOutput{}, MapError(err)
	}

	output := IndexStatsOutput{
		TotalChunks: stats.TotalChunks,
		TotalFiles:  stats.TotalFiles,
		ByType:      stats.ByType,
		Model:       stats.Model,
		Dimensions:  stats.Dimensions,
	}
	return textResult(formatIndexStats(stats)), output, nil
}

func textResult(markdown string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: markdown}},
	}
}
