package driven

import (
	"context"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// VectorIndex stores chunk representations and answers similarity
// queries. Build replaces any prior content; Add appends without a full
// rebuild. Entries are never deleted individually - only a whole-index
// rebuild replaces them.
type VectorIndex interface {
	// Build replaces the index content with the given entries.
	Build(ctx context.Context, entries []domain.IndexEntry) error

	// Add appends entries to an existing index without a full rebuild.
	Add(ctx context.Context, entries []domain.IndexEntry) error

	// Query returns at most k hits ordered by descending score, ties
	// broken by ascending chunk ID. effort tunes approximate backends:
	// higher effort never worsens recall. Exact backends ignore it.
	Query(ctx context.Context, query domain.Representation, k, effort int) ([]VectorHit, error)

	// Len returns the number of indexed entries.
	Len() int

	// Persist writes the index under the given directory.
	Persist(dir string) error

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score from the active encoder variant.
	Score float64
}
