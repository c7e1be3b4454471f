// Package store persists the semantic index: an HNSW graph for approximate
// nearest-neighbor search over chunk embeddings, paired with a SQLite
// database holding chunk content and metadata. SQLite is the store of
// record; the graph is derived and rebuilt-on-load state.
package store

import "time"

// Vector store defaults. M and EfSearch follow coder/hnsw recommendations.
const (
	DefaultM        = 16
	DefaultEfSearch = 20

	indexFileName  = "index.db"
	vectorFileName = "vectors.hnsw"
)

// Filter keys accepted by Query. Unknown keys match nothing.
const (
	FilterFileType   = "file_type"
	FilterSourcePath = "source_path"
	FilterFileName   = "file_name"
)

// Config configures a Store.
type Config struct {
	// Dir is the data directory holding the SQLite database and the
	// vector graph files.
	Dir string

	// Dimensions is the embedding dimension of the active embedder. The
	// store records it on first write and refuses to open with a
	// different value afterwards.
	Dimensions int

	// HNSW parameters; zero values take defaults.
	M        int
	EfSearch int
}

// Record is one persisted chunk with its embedding.
type Record struct {
	ID          string
	SourcePath  string
	FileName    string
	FileType    string
	ChunkIndex  int
	TotalChunks int
	Modified    time.Time
	Headers     string // joined header path, e.g. "# Title > ## Section"
	TokenCount  int
	CharStart   int
	CharEnd     int
	Content     string
	Embedding   []float32
}

// SearchResult is one ranked query hit. Embedding is not populated.
type SearchResult struct {
	Record
	Score    float32 // similarity in [0,1], higher is better
	Distance float32 // raw cosine distance
}

// Stats summarizes index contents.
type Stats struct {
	TotalChunks int
	TotalFiles  int
	ByType      map[string]int // file type -> chunk count
	Dimensions  int
	Model       string
}
