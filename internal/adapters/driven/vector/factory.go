// Package vector provides factory functions for creating and opening
// vector index backends by name.
package vector

import (
	"fmt"

	"github.com/okloa-labs/mailrag/internal/adapters/driven/vector/chromem"
	"github.com/okloa-labs/mailrag/internal/adapters/driven/vector/flat"
	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// Backend names recognised by the factory.
const (
	BackendFlat    = "flat"
	BackendChromem = "chromem"
)

// New creates an empty index for the given backend.
func New(backend string, scorer driven.Scorer) (driven.VectorIndex, error) {
	switch backend {
	case BackendFlat:
		return flat.New(scorer), nil
	case BackendChromem:
		return chromem.New()
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidConfig, backend)
	}
}

// Open loads a persisted index for the given backend from dir.
func Open(backend, dir string, scorer driven.Scorer) (driven.VectorIndex, error) {
	switch backend {
	case BackendFlat:
		return flat.Open(dir, scorer)
	case BackendChromem:
		return chromem.Open(dir)
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidConfig, backend)
	}
}
