package driving

import (
	"context"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// IndexService manages the persisted index lifecycle.
type IndexService interface {
	// EnsureIndex guarantees a fresh index exists for the given corpus.
	// It rebuilds when forced, when no manifest exists, or when the
	// stored manifest's fingerprint or configuration differ from the
	// current inputs; otherwise the persisted index is reused as-is.
	// A concurrent build is rejected with domain.ErrBuildInProgress.
	EnsureIndex(ctx context.Context, docs []domain.Document, force bool) (*domain.Manifest, error)

	// Status returns the manifest of the persisted index, or
	// domain.ErrIndexUnavailable when none exists.
	Status(ctx context.Context) (*domain.Manifest, error)
}
