// Package search answers semantic queries against the store: embed the
// query text, rank stored chunks by similarity, return the top k with
// their metadata.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vaultmcp/vaultmcp/internal/embed"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// DefaultLimit is the result count when the caller does not specify one.
const DefaultLimit = 5

// Result is one search hit.
type Result struct {
	ID          string
	SourcePath  string
	FileName    string
	FileType    string
	ChunkIndex  int
	TotalChunks int
	Modified    time.Time
	Headers     string
	Content     string
	Score       float32 // similarity in [0,1], higher is better
	Distance    float32 // raw cosine distance
}

// Options refine a search.
type Options struct {
	// Limit is the maximum number of results; <= 0 takes DefaultLimit.
	Limit int

	// Filters are metadata equality constraints passed through to the
	// store (file_type, source_path, file_name).
	Filters map[string]string
}

// Engine embeds queries and ranks chunks.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
	log      *slog.Logger
}

// NewEngine builds a search engine over an open store.
func NewEngine(st *store.Store, embedder embed.Embedder, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: st, embedder: embedder, log: log}
}

// Search returns up to Limit chunks ranked by similarity to the query, most
// similar first. An empty index or a query matching nothing returns an
// empty slice, never an error. The query is embedded as given; callers that
// want to reject blank input do so before reaching this layer.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	requestID := uuid.NewString()
	start := time.Now()

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := e.store.Query(ctx, embedding, limit, opts.Filters)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:          h.ID,
			SourcePath:  h.SourcePath,
			FileName:    h.FileName,
			FileType:    h.FileType,
			ChunkIndex:  h.ChunkIndex,
			TotalChunks: h.TotalChunks,
			Modified:    h.Modified,
			Headers:     h.Headers,
			Content:     h.Content,
			Score:       h.Score,
			Distance:    h.Distance,
		}
	}

	e.log.Debug("search complete",
		slog.String("request_id", requestID),
		slog.Int("limit", limit),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// Stats reports index contents for the stats surface.
func (e *Engine) Stats(ctx context.Context) (store.Stats, error) {
	return e.store.GetStats(ctx)
}
