package chunk

import "strings"

// Chunker splits documents into overlapping chunks. The zero-value
// configuration uses the package defaults; a Chunker is safe for
// concurrent use.
type Chunker struct {
	split  *splitter
	length LengthFunc
}

// Option configures a Chunker.
type Option func(*splitterOptions)

// WithChunkTokens sets the target chunk size in tokens.
func WithChunkTokens(n int) Option {
	return func(o *splitterOptions) { o.ChunkTokens = n }
}

// WithOverlapTokens sets the overlap carried between adjacent chunks.
func WithOverlapTokens(n int) Option {
	return func(o *splitterOptions) { o.OverlapTokens = n }
}

// WithLengthFunc replaces the token length estimator.
func WithLengthFunc(fn LengthFunc) Option {
	return func(o *splitterOptions) { o.Length = fn }
}

// NewChunker builds a Chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	var so splitterOptions
	for _, opt := range opts {
		opt(&so)
	}
	sp := newSplitter(so)
	return &Chunker{split: sp, length: sp.length}
}

// Chunk splits one document. Results are deterministic for identical input.
// Empty or whitespace-only content yields no chunks; content that fits in a
// single chunk yields exactly one with Index 0 and TotalChunks 1.
func (c *Chunker) Chunk(doc Document) []Chunk {
	if strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	spans := c.split.split(doc.Content)
	if len(spans) == 0 {
		return nil
	}
	events := scanHeaders(doc.Content)

	chunks := make([]Chunk, 0, len(spans))
	for i, sp := range spans {
		content := doc.Content[sp.start:sp.end]
		chunks = append(chunks, Chunk{
			Content:     content,
			SourcePath:  doc.Path,
			FileType:    doc.FileType,
			Index:       i,
			TotalChunks: len(spans),
			Modified:    doc.Modified,
			CharStart:   sp.start,
			CharEnd:     sp.end,
			Headers:     headersAt(events, sp.start),
			TokenCount:  c.length(content),
		})
	}
	return chunks
}
