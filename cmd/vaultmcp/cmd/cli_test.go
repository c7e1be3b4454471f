package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliFixture is a vault plus a config file selecting static embeddings so
// tests never need an embedding backend.
type cliFixture struct {
	vault      string
	configPath string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAULTMCP_VAULT_PATH", "")

	vault := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := fmt.Sprintf("vault:\n  path: %s\nembeddings:\n  provider: static\n", vault)
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))

	return &cliFixture{vault: vault, configPath: configPath}
}

func (f *cliFixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.vault, name), []byte(content), 0o644))
}

func (f *cliFixture) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, append(args, "--config", f.configPath)...)
	require.NoError(t, err, out)
	return out
}

func TestIndexThenSearch(t *testing.T) {
	f := newCLIFixture(t)
	f.write(t, "golang.md", "# Go\n\nGoroutines are lightweight threads managed by the runtime scheduler.")
	f.write(t, "cooking.md", "# Dinner\n\nSimmer the tomato sauce gently for twenty minutes.")

	out := f.run(t, "index")
	assert.Contains(t, out, "Scanned 2 documents, indexed 2")

	out = f.run(t, "search", "goroutine scheduling", "--limit", "1")
	assert.Contains(t, out, "golang.md")
	assert.NotContains(t, out, "cooking.md")
}

func TestIndexIsIncremental(t *testing.T) {
	f := newCLIFixture(t)
	f.write(t, "a.md", "first note")

	f.run(t, "index")
	out := f.run(t, "index")
	assert.Contains(t, out, "indexed 0")
}

func TestSearchJSONFormat(t *testing.T) {
	f := newCLIFixture(t)
	f.write(t, "a.md", "# Backups\n\nNightly backups are copied to the NAS.")
	f.run(t, "index")

	out := f.run(t, "search", "backup schedule", "--format", "json")

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "a.md", results[0]["file_name"])
}

func TestSearchEmptyIndex(t *testing.T) {
	f := newCLIFixture(t)

	out := f.run(t, "search", "anything")
	assert.Contains(t, out, "No results found.")
}

func TestStats(t *testing.T) {
	f := newCLIFixture(t)
	f.write(t, "a.md", "note one")
	f.write(t, "b.txt", "note two")
	f.run(t, "index")

	out := f.run(t, "stats")
	assert.Contains(t, out, "across 2 files")
	assert.Contains(t, out, ".md")
	assert.Contains(t, out, ".txt")

	out = f.run(t, "stats", "--json")
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(2), stats["total_files"])
}

func TestVaultFlagOverridesConfig(t *testing.T) {
	f := newCLIFixture(t)
	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "o.md"), []byte("elsewhere"), 0o644))

	out := f.run(t, "index", "--vault", other)
	assert.Contains(t, out, "indexed 1")
}
