package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrs "github.com/vaultmcp/vaultmcp/internal/errors"
)

const testDims = 4

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Dir: dir, Dimensions: testDims})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(path string, index int, embedding []float32) Record {
	return Record{
		ID:          ChunkID(path, index),
		SourcePath:  path,
		FileName:    "note.md",
		FileType:    "md",
		ChunkIndex:  index,
		TotalChunks: 1,
		Modified:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Headers:     "# Note",
		TokenCount:  10,
		CharStart:   0,
		CharEnd:     40,
		Content:     "chunk content for " + path,
		Embedding:   embedding,
	}
}

func TestStoreUpsertAndQuery(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		testRecord("/v/a.md", 0, []float32{1, 0, 0, 0}),
		testRecord("/v/b.md", 0, []float32{0, 1, 0, 0}),
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/v/a.md", results[0].SourcePath)
	assert.Equal(t, "chunk content for /v/a.md", results[0].Content)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestStoreQueryEmptyIndex(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	results, err := s.Query(context.Background(), []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreQueryFewerThanK(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		testRecord("/v/a.md", 0, []float32{1, 0, 0, 0}),
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStoreQueryDeterministicTieBreak(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	// Identical embeddings give identical distances; order must fall back
	// to ascending chunk ID.
	same := []float32{0, 0, 1, 0}
	require.NoError(t, s.Upsert(ctx, []Record{
		testRecord("/v/c.md", 0, same),
		testRecord("/v/a.md", 0, same),
		testRecord("/v/b.md", 0, same),
	}))

	for i := 0; i < 3; i++ {
		results, err := s.Query(ctx, same, 3, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, ChunkID("/v/a.md", 0), results[0].ID)
		assert.Equal(t, ChunkID("/v/b.md", 0), results[1].ID)
		assert.Equal(t, ChunkID("/v/c.md", 0), results[2].ID)
	}
}

func TestStoreQueryFilters(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	md := testRecord("/v/a.md", 0, []float32{1, 0, 0, 0})
	txt := testRecord("/v/b.txt", 0, []float32{0.9, 0.1, 0, 0})
	txt.FileType = "txt"
	require.NoError(t, s.Upsert(ctx, []Record{md, txt}))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 5,
		map[string]string{FilterFileType: "txt"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/v/b.txt", results[0].SourcePath)

	// An unknown filter key matches nothing.
	results, err = s.Query(ctx, []float32{1, 0, 0, 0}, 5,
		map[string]string{"bogus": "x"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreUpsertReplacesSameID(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	rec := testRecord("/v/a.md", 0, []float32{1, 0, 0, 0})
	require.NoError(t, s.Upsert(ctx, []Record{rec}))

	rec.Content = "updated content"
	rec.Embedding = []float32{0, 1, 0, 0}
	require.NoError(t, s.Upsert(ctx, []Record{rec}))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)

	results, err := s.Query(ctx, []float32{0, 1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "updated content", results[0].Content)
}

func TestStoreDeleteBySource(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		testRecord("/v/a.md", 0, []float32{1, 0, 0, 0}),
		testRecord("/v/a.md", 1, []float32{0, 1, 0, 0}),
		testRecord("/v/b.md", 0, []float32{0, 0, 1, 0}),
	}))

	n, err := s.DeleteBySource(ctx, "/v/a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/v/b.md", results[0].SourcePath)
}

func TestStoreDeleteAbsentSourceIsNoOp(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	n, err := s.DeleteBySource(context.Background(), "/v/never-indexed.md")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, Config{Dir: dir, Dimensions: testDims})
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, []Record{
		testRecord("/v/a.md", 0, []float32{1, 0, 0, 0}),
	}))
	require.NoError(t, s.Close())

	reopened := openTestStore(t, dir)
	results, err := reopened.Query(ctx, []float32{1, 0, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/v/a.md", results[0].SourcePath)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), results[0].Modified)
}

func TestStoreRejectsDimensionChange(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, Config{Dir: dir, Dimensions: testDims})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Dir: dir, Dimensions: testDims * 2})
	require.Error(t, err)
	assert.Equal(t, verrs.ErrCodeDimensionMismatch, verrs.GetCode(err))
	assert.True(t, verrs.IsFatal(err))
}

func TestStoreUpsertWrongDimension(t *testing.T) {
	s := openTestStore(t, t.TempDir())

	rec := testRecord("/v/a.md", 0, []float32{1, 0})
	err := s.Upsert(context.Background(), []Record{rec})
	require.Error(t, err)
	assert.Equal(t, verrs.ErrCodeDimensionMismatch, verrs.GetCode(err))
}

func TestStoreListSources(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	older := testRecord("/v/a.md", 0, []float32{1, 0, 0, 0})
	newer := testRecord("/v/a.md", 1, []float32{0, 1, 0, 0})
	newer.Modified = older.Modified.Add(time.Hour)
	require.NoError(t, s.Upsert(ctx, []Record{older, newer,
		testRecord("/v/b.md", 0, []float32{0, 0, 1, 0})}))

	sources, err := s.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, newer.Modified, sources["/v/a.md"])
}

func TestStoreStats(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	ctx := context.Background()

	txt := testRecord("/v/b.txt", 0, []float32{0, 1, 0, 0})
	txt.FileType = "txt"
	require.NoError(t, s.Upsert(ctx, []Record{
		testRecord("/v/a.md", 0, []float32{1, 0, 0, 0}),
		testRecord("/v/a.md", 1, []float32{0, 0, 1, 0}),
		txt,
	}))
	require.NoError(t, s.SetModel(ctx, "static-hash"))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, stats.ByType["md"])
	assert.Equal(t, 1, stats.ByType["txt"])
	assert.Equal(t, testDims, stats.Dimensions)
	assert.Equal(t, "static-hash", stats.Model)
}
