package domain

import "time"

// AskOptions configures a single query. Zero values fall back to the
// index configuration.
type AskOptions struct {
	// TopK overrides the number of sources to return.
	TopK int

	// MaxContextLength overrides the generation context budget in runes.
	MaxContextLength int

	// Timeout bounds the whole query (encode + search + generation).
	Timeout time.Duration

	// IncludeDuplicates disables per-document deduplication, allowing
	// multiple chunks from the same document in the results.
	IncludeDuplicates bool
}

// RetrievedChunk is a single ranked retrieval hit with everything the
// presentation layer needs: chunk text, score and source attribution.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Meta is the denormalised source email metadata.
	Meta SourceMeta

	// Score is the relevance score; higher is more relevant.
	Score float64
}

// Excerpt returns the chunk text bounded to max runes for display.
func (r *RetrievedChunk) Excerpt(max int) string {
	runes := []rune(r.Chunk.Text)
	if max <= 0 || len(runes) <= max {
		return r.Chunk.Text
	}
	return string(runes[:max]) + "…"
}

// RetrievalResult is the ordered, deduplicated outcome of a query
// against the index. Ephemeral; produced per query, never persisted.
type RetrievalResult struct {
	// Query is the original query text.
	Query string

	// Chunks is ordered by non-increasing score, ties broken by
	// ascending chunk ID.
	Chunks []RetrievedChunk
}

// Answer pairs generated text with the retrieval it was grounded on,
// so downstream display can show verifiable sources.
type Answer struct {
	// Text is the generated answer, or a fallback message when
	// generation was unavailable.
	Text string

	// Degraded is true when the generation capability failed or timed
	// out and Text is a fallback built from the sources alone.
	Degraded bool

	// FailureReason describes why generation degraded, when it did.
	FailureReason string

	// Sources is the exact retrieval result the answer is grounded on.
	Sources RetrievalResult
}
