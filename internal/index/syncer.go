// Package index reconciles the vault folder with the persisted store: new
// and changed files are chunked, embedded, and upserted; removed files are
// deleted. Unchanged files are never re-embedded.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vaultmcp/vaultmcp/internal/chunk"
	"github.com/vaultmcp/vaultmcp/internal/embed"
	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
	"github.com/vaultmcp/vaultmcp/internal/extract"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// SyncStats reports what one reconciliation pass did.
type SyncStats struct {
	Scanned       int           // documents found in the vault
	Indexed       int           // documents chunked, embedded, and upserted
	Removed       int           // indexed sources no longer in the vault
	ChunksCreated int
	ChunksDeleted int
	Failures      int // per-file extraction/embedding failures, skipped
	Elapsed       time.Duration
}

// Config configures a Syncer.
type Config struct {
	// DataDir holds the cross-process sync lock.
	DataDir string

	// Workers bounds concurrent per-file indexing. Defaults to NumCPU,
	// capped at 8.
	Workers int

	// BatchSize is the number of chunks embedded per backend call.
	BatchSize int

	// Chunker options.
	ChunkTokens   int
	OverlapTokens int

	// MaxFileSize for extraction.
	MaxFileSize int64
}

// Syncer drives vault-to-store reconciliation.
type Syncer struct {
	store     *store.Store
	embedder  embed.Embedder
	chunker   *chunk.Chunker
	extractor *extract.Extractor
	lock      *FileLock
	workers   int
	batchSize int
	log       *slog.Logger
}

// NewSyncer builds a Syncer over an open store and embedder.
func NewSyncer(st *store.Store, embedder embed.Embedder, cfg Config, log *slog.Logger) (*Syncer, error) {
	if st.Dimensions() != embedder.Dimensions() {
		return nil, verrs.DimensionMismatch(st.Dimensions(), embedder.Dimensions())
	}
	if log == nil {
		log = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	var chunkOpts []chunk.Option
	if cfg.ChunkTokens > 0 {
		chunkOpts = append(chunkOpts, chunk.WithChunkTokens(cfg.ChunkTokens))
	}
	if cfg.OverlapTokens > 0 {
		chunkOpts = append(chunkOpts, chunk.WithOverlapTokens(cfg.OverlapTokens))
	}

	return &Syncer{
		store:     st,
		embedder:  embedder,
		chunker:   chunk.NewChunker(chunkOpts...),
		extractor: extract.NewExtractor(cfg.MaxFileSize, log),
		lock:      NewFileLock(cfg.DataDir),
		workers:   workers,
		batchSize: batchSize,
		log:       log,
	}, nil
}

// Sync reconciles the vault with the store. force re-indexes files whose
// mtimes are unchanged. Per-file failures are counted and skipped; store and
// configuration failures abort.
func (s *Syncer) Sync(ctx context.Context, vaultPath string, force bool) (SyncStats, error) {
	start := time.Now()

	acquired, err := s.lock.TryLock()
	if err != nil {
		return SyncStats{}, verrs.StoreError("acquire sync lock", err)
	}
	if !acquired {
		return SyncStats{}, verrs.New(verrs.ErrCodeSyncInProgress,
			"another sync is already running against this index", nil)
	}
	defer s.lock.Unlock()

	docs, err := s.extractor.ExtractAll(vaultPath)
	if err != nil {
		return SyncStats{}, err
	}

	indexed, err := s.store.ListSources(ctx)
	if err != nil {
		return SyncStats{}, err
	}

	var toIndex []chunk.Document
	inVault := make(map[string]bool, len(docs))
	for _, doc := range docs {
		inVault[doc.Path] = true
		recorded, known := indexed[doc.Path]
		if !known || force || !recorded.Equal(doc.Modified) {
			toIndex = append(toIndex, doc)
		}
	}
	var toDelete []string
	for path := range indexed {
		if !inVault[path] {
			toDelete = append(toDelete, path)
		}
	}

	stats := SyncStats{Scanned: len(docs)}
	s.log.Info("sync plan",
		slog.String("vault", vaultPath),
		slog.Int("scanned", len(docs)),
		slog.Int("to_index", len(toIndex)),
		slog.Int("to_delete", len(toDelete)),
		slog.Bool("force", force))

	for _, path := range toDelete {
		n, err := s.store.DeleteBySource(ctx, path)
		if err != nil {
			return stats, err
		}
		stats.Removed++
		stats.ChunksDeleted += n
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, doc := range toIndex {
		g.Go(func() error {
			created, deleted, err := s.indexDocument(gctx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if verrs.IsFatal(err) || gctx.Err() != nil {
					return err
				}
				s.log.Warn("indexing failed, skipping file",
					slog.String("path", doc.Path),
					slog.String("error", err.Error()))
				stats.Failures++
				return nil
			}
			stats.Indexed++
			stats.ChunksCreated += created
			stats.ChunksDeleted += deleted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		stats.Elapsed = time.Since(start)
		return stats, err
	}

	stats.Elapsed = time.Since(start)
	s.log.Info("sync complete",
		slog.Int("indexed", stats.Indexed),
		slog.Int("removed", stats.Removed),
		slog.Int("chunks_created", stats.ChunksCreated),
		slog.Int("chunks_deleted", stats.ChunksDeleted),
		slog.Int("failures", stats.Failures),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// indexDocument replaces one file's chunks: chunk, embed, delete old,
// upsert new. Delete-before-upsert means a crash mid-file leaves the path
// absent from the index, which the next sync repairs; it never leaves
// duplicate or mixed chunk sets.
func (s *Syncer) indexDocument(ctx context.Context, doc chunk.Document) (created, deleted int, err error) {
	chunks := s.chunker.Chunk(doc)
	if len(chunks) == 0 {
		// A file emptied since last sync still sheds its old chunks.
		n, err := s.store.DeleteBySource(ctx, doc.Path)
		return 0, n, err
	}

	records := make([]store.Record, len(chunks))
	for i, c := range chunks {
		records[i] = store.Record{
			ID:          store.ChunkID(c.SourcePath, c.Index),
			SourcePath:  c.SourcePath,
			FileName:    filepath.Base(c.SourcePath),
			FileType:    c.FileType,
			ChunkIndex:  c.Index,
			TotalChunks: c.TotalChunks,
			Modified:    c.Modified,
			Headers:     chunk.JoinHeaders(c.Headers),
			TokenCount:  c.TokenCount,
			CharStart:   c.CharStart,
			CharEnd:     c.CharEnd,
			Content:     c.Content,
		}
	}

	for lo := 0; lo < len(chunks); lo += s.batchSize {
		hi := lo + s.batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		texts := make([]string, hi-lo)
		for i := lo; i < hi; i++ {
			texts[i-lo] = chunks[i].Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, 0, err
		}
		if len(vectors) != len(texts) {
			return 0, 0, verrs.New(verrs.ErrCodeEmbeddingMisaligned,
				fmt.Sprintf("requested %d embeddings, got %d", len(texts), len(vectors)), nil)
		}
		for i := lo; i < hi; i++ {
			records[i].Embedding = vectors[i-lo]
		}
	}

	deleted, err = s.store.DeleteBySource(ctx, doc.Path)
	if err != nil {
		return 0, 0, err
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return 0, deleted, err
	}
	return len(records), deleted, nil
}

// SyncFile re-indexes a single path, or removes it if it is gone or no
// longer indexable. Used by the watcher.
func (s *Syncer) SyncFile(ctx context.Context, path string) (SyncStats, error) {
	start := time.Now()
	stats := SyncStats{}

	info, statErr := os.Stat(path)
	if statErr != nil || info.IsDir() || !extract.IndexablePath(path) {
		n, err := s.store.DeleteBySource(ctx, path)
		if err != nil {
			return stats, err
		}
		if n > 0 {
			stats.Removed = 1
			stats.ChunksDeleted = n
		}
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	doc, err := s.extractor.ExtractFile(path)
	if err != nil {
		stats.Failures = 1
		stats.Elapsed = time.Since(start)
		return stats, err
	}
	stats.Scanned = 1

	created, deleted, err := s.indexDocument(ctx, doc)
	if err != nil {
		if !verrs.IsFatal(err) {
			stats.Failures = 1
		}
		stats.Elapsed = time.Since(start)
		return stats, err
	}
	stats.Indexed = 1
	stats.ChunksCreated = created
	stats.ChunksDeleted = deleted
	stats.Elapsed = time.Since(start)
	return stats, nil
}
