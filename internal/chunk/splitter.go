package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// defaultSeparators is the boundary priority for recursive splitting:
// markdown section headers first, then paragraphs, lines, sentences,
// clauses, words, and finally individual characters.
var defaultSeparators = []string{
	"\n## ",
	"\n### ",
	"\n#### ",
	"\n\n",
	"\n",
	". ",
	", ",
	" ",
	"",
}

// span is a half-open [Start, End) byte range into the original text.
// The splitter works on spans rather than copied strings so chunk offsets
// are tracked explicitly during splitting instead of being re-located by
// substring search afterwards.
type span struct {
	start int
	end   int
}

// splitter implements recursive-boundary splitting with token-counted
// sizing and trailing overlap between adjacent chunks.
type splitter struct {
	chunkTokens   int
	overlapTokens int
	length        LengthFunc
	separators    []string
}

// splitterOptions configures a splitter. Zero values take defaults.
type splitterOptions struct {
	ChunkTokens   int
	OverlapTokens int
	Length        LengthFunc
	Separators    []string
}

func newSplitter(opts splitterOptions) *splitter {
	if opts.ChunkTokens <= 0 {
		opts.ChunkTokens = DefaultChunkTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	if opts.OverlapTokens >= opts.ChunkTokens {
		opts.OverlapTokens = opts.ChunkTokens / 2
	}
	if opts.Length == nil {
		opts.Length = EstimateTokens
	}
	if len(opts.Separators) == 0 {
		opts.Separators = defaultSeparators
	}
	return &splitter{
		chunkTokens:   opts.ChunkTokens,
		overlapTokens: opts.OverlapTokens,
		length:        opts.Length,
		separators:    opts.Separators,
	}
}

// split returns the chunk spans for text, in document order.
func (s *splitter) split(text string) []span {
	if text == "" {
		return nil
	}
	raw := s.splitRange(text, span{0, len(text)}, s.separators)

	// Trim surrounding whitespace from each span, adjusting offsets so
	// content still equals the slice of the original text. Empty spans
	// are dropped.
	out := raw[:0]
	for _, sp := range raw {
		sp = trimSpan(text, sp)
		if sp.start < sp.end {
			out = append(out, sp)
		}
	}
	return out
}

// splitRange recursively splits one range on the highest-priority separator
// present, falling back to lower-priority separators only for pieces that
// still exceed the target size.
func (s *splitter) splitRange(text string, r span, seps []string) []span {
	segment := text[r.start:r.end]

	sep := ""
	var rest []string
	for i, cand := range seps {
		if cand == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(segment, cand) {
			sep = cand
			rest = seps[i+1:]
			break
		}
	}

	pieces := splitKeepSeparator(text, r, sep)

	var final []span
	var pending []span
	for _, p := range pieces {
		if s.length(text[p.start:p.end]) < s.chunkTokens {
			pending = append(pending, p)
			continue
		}
		if len(pending) > 0 {
			final = append(final, s.merge(text, pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			// No finer boundary available; emit oversized as-is.
			final = append(final, p)
		} else {
			final = append(final, s.splitRange(text, p, rest)...)
		}
	}
	if len(pending) > 0 {
		final = append(final, s.merge(text, pending)...)
	}
	return final
}

// merge packs adjacent small pieces into chunks of at most chunkTokens,
// carrying the trailing ~overlapTokens of each chunk into the next. The
// overlap is intentional duplication: it preserves context across the
// boundary for retrieval.
func (s *splitter) merge(text string, parts []span) []span {
	var chunks []span
	var window []span
	total := 0

	for _, p := range parts {
		plen := s.length(text[p.start:p.end])
		if total+plen > s.chunkTokens && len(window) > 0 {
			chunks = append(chunks, span{window[0].start, window[len(window)-1].end})
			// Shrink the window from the front until what remains fits
			// inside the overlap budget and leaves room for the next piece.
			for total > s.overlapTokens || (total+plen > s.chunkTokens && total > 0) {
				total -= s.length(text[window[0].start:window[0].end])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += plen
	}
	if len(window) > 0 {
		chunks = append(chunks, span{window[0].start, window[len(window)-1].end})
	}
	return chunks
}

// splitKeepSeparator splits r on sep, attaching each separator occurrence
// to the piece that follows it (so header markers like "\n## " stay with
// their section). An empty sep splits into individual runes.
func splitKeepSeparator(text string, r span, sep string) []span {
	if sep == "" {
		spans := make([]span, 0, r.end-r.start)
		for i := r.start; i < r.end; {
			_, size := utf8.DecodeRuneInString(text[i:r.end])
			spans = append(spans, span{i, i + size})
			i += size
		}
		return spans
	}

	var spans []span
	start := r.start
	search := r.start
	for {
		idx := strings.Index(text[search:r.end], sep)
		if idx < 0 {
			break
		}
		cut := search + idx
		if cut > start {
			spans = append(spans, span{start, cut})
		}
		// The separator becomes the prefix of the next piece.
		start = cut
		search = cut + len(sep)
	}
	if start < r.end {
		spans = append(spans, span{start, r.end})
	}
	return spans
}

// trimSpan narrows a span past leading and trailing whitespace.
func trimSpan(text string, sp span) span {
	for sp.start < sp.end {
		r, size := utf8.DecodeRuneInString(text[sp.start:sp.end])
		if !unicode.IsSpace(r) {
			break
		}
		sp.start += size
	}
	for sp.end > sp.start {
		r, size := utf8.DecodeLastRuneInString(text[sp.start:sp.end])
		if !unicode.IsSpace(r) {
			break
		}
		sp.end -= size
	}
	return sp
}
