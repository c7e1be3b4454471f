package store

import (
	"strconv"
	"strings"
)

// ChunkID composes the stable identity of a chunk from its source path and
// position. Backslashes are normalized to forward slashes so the same vault
// indexed on Windows and Unix produces identical IDs.
//
// IDs are never used to patch individual chunks of a changed file; an edit
// replaces every chunk of that source.
func ChunkID(sourcePath string, index int) string {
	normalized := strings.ReplaceAll(sourcePath, "\\", "/")
	return normalized + "::chunk_" + strconv.Itoa(index)
}

// SplitChunkID is the inverse of ChunkID. ok is false for malformed IDs.
func SplitChunkID(id string) (sourcePath string, index int, ok bool) {
	i := strings.LastIndex(id, "::chunk_")
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[i+len("::chunk_"):])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:i], n, true
}
