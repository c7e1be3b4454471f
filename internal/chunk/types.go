// Package chunk splits extracted documents into overlapping retrieval units
// with positional and structural metadata. Chunks are the unit of embedding
// and retrieval; chunking is deterministic so that re-syncing an unchanged
// file reproduces bit-identical chunks.
package chunk

import "time"

// Chunk size defaults, counted in tokens via the configured LengthFunc.
const (
	DefaultChunkTokens   = 512
	DefaultOverlapTokens = 100

	// charsPerToken is the approximation used by the default length
	// function: roughly 4 characters per token for English prose.
	charsPerToken = 4
)

// LengthFunc measures text in the token unit used for chunk sizing.
// It must be deterministic.
type LengthFunc func(text string) int

// EstimateTokens is the default LengthFunc: a cheap character-count
// approximation. Any non-empty text counts as at least one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

// Document is the chunker's input: one extracted file.
type Document struct {
	Path     string    // absolute source path
	Content  string    // extracted text
	FileType string    // extension without the dot ("md", "txt", ...)
	Modified time.Time // source mtime, carried onto every chunk
}

// Chunk is a contiguous span of a document's text.
//
// CharStart/CharEnd are byte offsets into the ORIGINAL document content, so
// Content == doc.Content[CharStart:CharEnd] always holds. Offsets are
// non-decreasing across a document's chunk sequence except for the bounded
// regression introduced by overlap.
//
// Chunks are immutable: a changed source file invalidates and replaces all
// of its chunks, never individual ones, because an edit can shift every
// downstream boundary.
type Chunk struct {
	Content     string
	SourcePath  string
	FileType    string
	Index       int // 0-based position within the document
	TotalChunks int // shared by all chunks of one document
	Modified    time.Time
	CharStart   int
	CharEnd     int
	Headers     []string // most-specific-last, e.g. ["# Title", "## Section"]
	TokenCount  int
}
