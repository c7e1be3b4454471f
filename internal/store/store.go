package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
)

// Store is the persisted semantic index: SQLite for chunk content and
// metadata, an HNSW graph for nearest-neighbor lookup. Both are updated per
// call, so the index is durable across restarts with no explicit snapshot
// step.
type Store struct {
	mu     sync.Mutex // serializes mutations and graph saves
	meta   *metaDB
	vec    *vectorIndex
	dir    string
	dims   int
	closed bool
}

// Open opens or creates the index under cfg.Dir. Opening an index that was
// built with a different embedding dimension fails with a fatal
// dimension-mismatch error rather than corrupting the data.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, verrs.ValidationError("store directory is required", nil)
	}
	if cfg.Dimensions <= 0 {
		return nil, verrs.ValidationError(
			fmt.Sprintf("invalid embedding dimension %d", cfg.Dimensions), nil)
	}

	meta, err := openMetaDB(filepath.Join(cfg.Dir, indexFileName))
	if err != nil {
		return nil, verrs.StoreError("open metadata database", err)
	}

	recorded, ok, err := meta.getState(ctx, stateKeyDimensions)
	if err != nil {
		meta.close()
		return nil, verrs.StoreError("read index state", err)
	}
	if ok {
		dims, convErr := strconv.Atoi(recorded)
		if convErr != nil {
			meta.close()
			return nil, verrs.New(verrs.ErrCodeCorruptIndex,
				fmt.Sprintf("unreadable dimension state %q", recorded), convErr)
		}
		if dims != cfg.Dimensions {
			meta.close()
			return nil, verrs.DimensionMismatch(dims, cfg.Dimensions)
		}
	} else if err := meta.setState(ctx, stateKeyDimensions, strconv.Itoa(cfg.Dimensions)); err != nil {
		meta.close()
		return nil, verrs.StoreError("record index dimension", err)
	}

	vec := newVectorIndex(cfg.Dimensions, cfg.M, cfg.EfSearch)
	vecPath := filepath.Join(cfg.Dir, vectorFileName)
	if _, statErr := os.Stat(vecPath); statErr == nil {
		if err := vec.load(vecPath); err != nil {
			meta.close()
			return nil, verrs.New(verrs.ErrCodeCorruptIndex, "load vector graph", err)
		}
	}

	s := &Store{
		meta: meta,
		vec:  vec,
		dir:  cfg.Dir,
		dims: cfg.Dimensions,
	}

	// The graph is derived state; if it lags the database (crash between
	// the two writes), the next sync repairs it. Log the drift so the
	// discrepancy is visible.
	if n, err := meta.countChunks(ctx); err == nil && n != vec.count() {
		slog.Warn("vector graph out of step with metadata",
			slog.Int("chunks", n),
			slog.Int("vectors", vec.count()))
	}

	return s, nil
}

// SetModel records the embedding model name for stats display.
func (s *Store) SetModel(ctx context.Context, model string) error {
	if err := s.meta.setState(ctx, stateKeyModel, model); err != nil {
		return verrs.StoreError("record model name", err)
	}
	return nil
}

// Dimensions returns the embedding dimension the store was opened with.
func (s *Store) Dimensions() int {
	return s.dims
}

// Upsert inserts or replaces records and persists both engines before
// returning.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return verrs.StoreError("store is closed", nil)
	}

	for _, r := range records {
		if len(r.Embedding) != s.dims {
			return verrs.DimensionMismatch(s.dims, len(r.Embedding))
		}
	}

	if err := s.meta.upsertChunks(ctx, records); err != nil {
		return verrs.StoreError("upsert chunks", err)
	}

	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		ids[i] = r.ID
		vectors[i] = r.Embedding
	}
	if err := s.vec.add(ids, vectors); err != nil {
		return verrs.StoreError("add vectors", err)
	}
	return s.saveVectorsLocked()
}

// DeleteBySource removes every chunk of one source path from both engines.
// Deleting a path with no chunks is a no-op. Returns the number removed.
func (s *Store) DeleteBySource(ctx context.Context, sourcePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, verrs.StoreError("store is closed", nil)
	}

	ids, err := s.meta.deleteBySource(ctx, sourcePath)
	if err != nil {
		return 0, verrs.StoreError("delete chunks", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	s.vec.remove(ids)
	if err := s.saveVectorsLocked(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Query returns up to k chunks ranked by similarity to the embedding, most
// similar first. Filters are metadata equality constraints (file_type,
// source_path, file_name). Equal distances break ties by ascending chunk ID
// so results are deterministic. An empty index returns an empty slice.
func (s *Store) Query(ctx context.Context, embedding []float32, k int, filters map[string]string) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}
	if len(embedding) != s.dims {
		return nil, verrs.DimensionMismatch(s.dims, len(embedding))
	}

	total := s.vec.count()
	if total == 0 {
		return []SearchResult{}, nil
	}

	// Over-fetch to survive filtered-out and lazily deleted hits.
	fetch := k*4 + 16
	if fetch > total {
		fetch = total
	}

	results, err := s.fetchRanked(ctx, embedding, k, fetch, filters)
	if err != nil {
		return nil, err
	}
	// Filters can eliminate most of the neighborhood; fall back to ranking
	// everything before concluding there are fewer than k matches.
	if len(results) < k && len(filters) > 0 && fetch < total {
		return s.fetchRanked(ctx, embedding, k, total, filters)
	}
	return results, nil
}

func (s *Store) fetchRanked(ctx context.Context, embedding []float32, k, fetch int, filters map[string]string) ([]SearchResult, error) {
	hits, err := s.vec.search(embedding, fetch)
	if err != nil {
		return nil, verrs.StoreError("vector search", err)
	}
	if len(hits) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	records, err := s.meta.getChunks(ctx, ids)
	if err != nil {
		return nil, verrs.StoreError("fetch chunk metadata", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		rec, ok := records[h.ID]
		if !ok || !matchesFilters(rec, filters) {
			continue
		}
		results = append(results, SearchResult{
			Record:   rec,
			Score:    distanceToScore(h.Distance),
			Distance: h.Distance,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func matchesFilters(r Record, filters map[string]string) bool {
	for key, want := range filters {
		var got string
		switch key {
		case FilterFileType:
			got = r.FileType
		case FilterSourcePath:
			got = r.SourcePath
		case FilterFileName:
			got = r.FileName
		default:
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}

// ListSources returns the indexed manifest: source path to recorded mtime.
func (s *Store) ListSources(ctx context.Context) (map[string]time.Time, error) {
	sources, err := s.meta.listSources(ctx)
	if err != nil {
		return nil, verrs.StoreError("list sources", err)
	}
	return sources, nil
}

// GetStats summarizes index contents.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	stats, err := s.meta.stats(ctx)
	if err != nil {
		return Stats{}, verrs.StoreError("read stats", err)
	}
	stats.Dimensions = s.dims
	if model, ok, err := s.meta.getState(ctx, stateKeyModel); err == nil && ok {
		stats.Model = model
	}
	return stats, nil
}

// Close flushes the vector graph and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	saveErr := s.vec.save(filepath.Join(s.dir, vectorFileName))
	closeErr := s.meta.close()
	if saveErr != nil {
		return verrs.StoreError("save vector graph", saveErr)
	}
	if closeErr != nil {
		return verrs.StoreError("close database", closeErr)
	}
	return nil
}

func (s *Store) saveVectorsLocked() error {
	if err := s.vec.save(filepath.Join(s.dir, vectorFileName)); err != nil {
		return verrs.StoreError("save vector graph", err)
	}
	return nil
}
