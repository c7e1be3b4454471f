package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "/vault/notes/a.md::chunk_0", ChunkID("/vault/notes/a.md", 0))
	assert.Equal(t, "/vault/notes/a.md::chunk_12", ChunkID("/vault/notes/a.md", 12))
}

func TestChunkIDNormalizesBackslashes(t *testing.T) {
	// The same vault indexed on Windows must produce the same IDs.
	assert.Equal(t,
		ChunkID("C:/vault/notes/a.md", 3),
		ChunkID(`C:\vault\notes\a.md`, 3))
}

func TestChunkIDDistinctPerPosition(t *testing.T) {
	assert.NotEqual(t, ChunkID("/v/a.md", 0), ChunkID("/v/a.md", 1))
	assert.NotEqual(t, ChunkID("/v/a.md", 0), ChunkID("/v/b.md", 0))
}

func TestSplitChunkID(t *testing.T) {
	path, index, ok := SplitChunkID("/vault/a.md::chunk_7")
	assert.True(t, ok)
	assert.Equal(t, "/vault/a.md", path)
	assert.Equal(t, 7, index)

	_, _, ok = SplitChunkID("no-separator")
	assert.False(t, ok)

	_, _, ok = SplitChunkID("/vault/a.md::chunk_x")
	assert.False(t, ok)
}
