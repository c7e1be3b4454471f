package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmcp/vaultmcp/internal/embed"
	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// countingEmbedder counts texts that reach the backend, to prove unchanged
// files are never re-embedded.
type countingEmbedder struct {
	embed.Embedder
	mu    sync.Mutex
	calls int
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls += len(texts)
	c.mu.Unlock()
	return c.Embedder.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// flakyEmbedder fails any batch containing the marker text.
type flakyEmbedder struct {
	embed.Embedder
	marker string
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.Contains(t, f.marker) {
			return nil, verrs.EmbeddingError("backend rejected batch", nil)
		}
	}
	return f.Embedder.EmbedBatch(ctx, texts)
}

type syncFixture struct {
	vault    string
	syncer   *Syncer
	store    *store.Store
	embedder *countingEmbedder
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	dataDir := t.TempDir()

	st, err := store.Open(context.Background(), store.Config{
		Dir:        dataDir,
		Dimensions: embed.StaticDimensions,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	counter := &countingEmbedder{Embedder: embed.NewStaticEmbedder()}
	syncer, err := NewSyncer(st, counter, Config{DataDir: dataDir, Workers: 2}, nil)
	require.NoError(t, err)

	return &syncFixture{
		vault:    t.TempDir(),
		syncer:   syncer,
		store:    st,
		embedder: counter,
	}
}

func (f *syncFixture) write(t *testing.T, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(f.vault, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSyncIndexesNewVault(t *testing.T) {
	f := newSyncFixture(t)
	f.write(t, "a.md", "# Alpha\n\nFirst note body.", baseTime)
	f.write(t, "sub/b.md", "# Beta\n\nSecond note body.", baseTime)

	stats, err := f.syncer.Sync(context.Background(), f.vault, false)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Indexed)
	assert.Zero(t, stats.Removed)
	assert.Zero(t, stats.Failures)
	assert.Positive(t, stats.ChunksCreated)

	storeStats, err := f.store.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, storeStats.TotalFiles)
	assert.Equal(t, stats.ChunksCreated, storeStats.TotalChunks)
}

func TestSyncUnchangedVaultEmbedsNothing(t *testing.T) {
	f := newSyncFixture(t)
	f.write(t, "a.md", "# Alpha\n\nStable content.", baseTime)
	ctx := context.Background()

	_, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)
	embedsAfterFirst := f.embedder.count()
	require.Positive(t, embedsAfterFirst)

	stats, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scanned)
	assert.Zero(t, stats.Indexed)
	assert.Zero(t, stats.ChunksCreated)
	assert.Equal(t, embedsAfterFirst, f.embedder.count(),
		"re-sync of unchanged vault must not touch the embedder")
}

func TestSyncReindexesChangedFile(t *testing.T) {
	f := newSyncFixture(t)
	path := f.write(t, "a.md", "# Alpha\n\nOriginal body.", baseTime)
	ctx := context.Background()

	_, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)

	f.write(t, "a.md", "# Alpha\n\nRewritten body entirely.", baseTime.Add(time.Minute))

	stats, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Positive(t, stats.ChunksDeleted, "old chunks must be replaced")

	// The store holds only the new content for that path.
	results, err := f.store.Query(ctx,
		mustEmbed(t, "Rewritten body entirely"), 5,
		map[string]string{store.FilterSourcePath: path})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.NotContains(t, r.Content, "Original body")
	}
}

func TestSyncRemovesDeletedFile(t *testing.T) {
	f := newSyncFixture(t)
	path := f.write(t, "gone.md", "# Gone\n\nWill be removed.", baseTime)
	f.write(t, "stays.md", "# Stays\n\nStill here.", baseTime)
	ctx := context.Background()

	_, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	stats, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Positive(t, stats.ChunksDeleted)

	sources, err := f.store.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	_, gone := sources[path]
	assert.False(t, gone)
}

func TestSyncForceReembedsIdenticalSet(t *testing.T) {
	f := newSyncFixture(t)
	f.write(t, "a.md", "# Alpha\n\nSame content.", baseTime)
	ctx := context.Background()

	first, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)
	embedsAfterFirst := f.embedder.count()

	stats, err := f.syncer.Sync(ctx, f.vault, true)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Indexed)
	assert.Greater(t, f.embedder.count(), embedsAfterFirst)

	// Forcing must not change what is stored.
	storeStats, err := f.store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ChunksCreated, storeStats.TotalChunks)
}

func TestSyncSkipsFailingFileAndContinues(t *testing.T) {
	dataDir := t.TempDir()
	st, err := store.Open(context.Background(), store.Config{
		Dir:        dataDir,
		Dimensions: embed.StaticDimensions,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	flaky := &flakyEmbedder{Embedder: embed.NewStaticEmbedder(), marker: "POISON"}
	syncer, err := NewSyncer(st, flaky, Config{DataDir: dataDir, Workers: 1}, nil)
	require.NoError(t, err)

	vault := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vault, "good.md"),
		[]byte("# Good\n\nClean content."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vault, "bad.md"),
		[]byte("# Bad\n\nPOISON content."), 0o644))

	stats, err := syncer.Sync(context.Background(), vault, false)
	require.NoError(t, err, "a recoverable per-file failure must not abort the sync")
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Failures)
}

func TestSyncerRejectsDimensionMismatch(t *testing.T) {
	dataDir := t.TempDir()
	st, err := store.Open(context.Background(), store.Config{Dir: dataDir, Dimensions: 999})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = NewSyncer(st, embed.NewStaticEmbedder(), Config{DataDir: dataDir}, nil)
	require.Error(t, err)
	assert.Equal(t, verrs.ErrCodeDimensionMismatch, verrs.GetCode(err))
}

func TestSyncFileReindexesOnePath(t *testing.T) {
	f := newSyncFixture(t)
	path := f.write(t, "a.md", "# Alpha\n\nWatch target.", baseTime)
	ctx := context.Background()

	stats, err := f.syncer.SyncFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Positive(t, stats.ChunksCreated)
}

func TestSyncFileRemovesDeletedPath(t *testing.T) {
	f := newSyncFixture(t)
	path := f.write(t, "a.md", "# Alpha\n\nShort lived.", baseTime)
	ctx := context.Background()

	_, err := f.syncer.Sync(ctx, f.vault, false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	stats, err := f.syncer.SyncFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Positive(t, stats.ChunksDeleted)

	sources, err := f.store.ListSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := embed.NewStaticEmbedder().Embed(context.Background(), text)
	require.NoError(t, err)
	return vec
}
