package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmcp/vaultmcp/internal/embed"
	"github.com/vaultmcp/vaultmcp/internal/index"
	"github.com/vaultmcp/vaultmcp/internal/search"
	"github.com/vaultmcp/vaultmcp/internal/store"
)

// End-to-end tests across the extract, chunk, embed, store, and search
// packages, using static embeddings so no backend is needed.

type stack struct {
	vault    string
	dataDir  string
	store    *store.Store
	embedder embed.Embedder
	syncer   *index.Syncer
	engine   *search.Engine
}

func newStack(t *testing.T) *stack {
	t.Helper()
	vault := t.TempDir()
	dataDir := t.TempDir()

	st, err := store.Open(context.Background(), store.Config{
		Dir:        dataDir,
		Dimensions: embed.StaticDimensions,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	embedder := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), 100)
	syncer, err := index.NewSyncer(st, embedder, index.Config{DataDir: dataDir, Workers: 2}, nil)
	require.NoError(t, err)

	return &stack{
		vault:    vault,
		dataDir:  dataDir,
		store:    st,
		embedder: embedder,
		syncer:   syncer,
		engine:   search.NewEngine(st, embedder, nil),
	}
}

func (s *stack) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(s.vault, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexSearchRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := newStack(t)
	ctx := context.Background()

	s.write(t, "infra/kubernetes.md", "# Kubernetes\n\n## Networking\n\nPods reach each other through cluster DNS and services.")
	s.write(t, "recipes/pasta.md", "# Pasta\n\nBoil salted water and cook the spaghetti al dente.")
	s.write(t, "journal.txt", "Long walk by the river today, saw two herons.")

	stats, err := s.syncer.Sync(ctx, s.vault, false)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 3, stats.Indexed)

	results, err := s.engine.Search(ctx, "pod networking and cluster dns", search.Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kubernetes.md", results[0].FileName)
	assert.Contains(t, results[0].Headers, "Networking")
}

func TestIndexSurvivesReopen(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := newStack(t)
	ctx := context.Background()

	s.write(t, "a.md", "# Backups\n\nNightly backups go to the NAS over rsync.")
	_, err := s.syncer.Sync(ctx, s.vault, false)
	require.NoError(t, err)
	require.NoError(t, s.store.Close())

	st, err := store.Open(ctx, store.Config{Dir: s.dataDir, Dimensions: embed.StaticDimensions})
	require.NoError(t, err)
	defer st.Close()

	engine := search.NewEngine(st, s.embedder, nil)
	results, err := engine.Search(ctx, "backup over rsync", search.Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.md", results[0].FileName)
}

func TestEditAndDeleteReflectedInSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := newStack(t)
	ctx := context.Background()

	path := s.write(t, "plan.md", "The launch is scheduled for March.")
	_, err := s.syncer.Sync(ctx, s.vault, false)
	require.NoError(t, err)

	// Edit through the single-file path the watcher uses.
	require.NoError(t, os.WriteFile(path, []byte("The launch moved to September."), 0o644))
	_, err = s.syncer.SyncFile(ctx, path)
	require.NoError(t, err)

	results, err := s.engine.Search(ctx, "launch schedule", search.Options{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.NotContains(t, r.Content, "March")
	}

	require.NoError(t, os.Remove(path))
	_, err = s.syncer.SyncFile(ctx, path)
	require.NoError(t, err)

	results, err = s.engine.Search(ctx, "launch schedule", search.Options{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}
