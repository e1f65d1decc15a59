// Package encoder provides factory functions for creating encoder
// variants from configuration.
package encoder

import (
	"fmt"

	"github.com/okloa-labs/mailrag/internal/adapters/driven/encoder/dense"
	"github.com/okloa-labs/mailrag/internal/adapters/driven/encoder/maxsim"
	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// New creates the encoder for the given variant.
// Unknown variants are configuration errors, never a silent fallback.
func New(variant domain.EncoderVariant, svc driven.EmbeddingService, maxLen int) (driven.Encoder, error) {
	if svc == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	switch variant {
	case domain.VariantDense:
		return dense.New(svc, maxLen), nil
	case domain.VariantLateInteraction:
		return maxsim.New(svc, maxLen), nil
	default:
		return nil, fmt.Errorf("%w: unknown encoder variant %q", domain.ErrInvalidConfig, variant)
	}
}
