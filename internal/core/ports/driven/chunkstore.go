package driven

import (
	"context"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// ChunkStore persists the sidecar mapping from chunk ID to chunk text
// and denormalised source metadata. It is written once per build and
// read at query time to hydrate vector hits for display.
type ChunkStore interface {
	// SaveRecords stores chunk records, replacing existing IDs.
	SaveRecords(ctx context.Context, records []domain.ChunkRecord) error

	// GetRecord retrieves a record by chunk ID.
	// Returns domain.ErrNotFound if absent.
	GetRecord(ctx context.Context, chunkID string) (*domain.ChunkRecord, error)

	// GetRecords retrieves records for the given chunk IDs. Missing IDs
	// are skipped; the result preserves the input order.
	GetRecords(ctx context.Context, chunkIDs []string) ([]domain.ChunkRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
