package driven

import (
	"context"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// Encoder maps text to representations and scores representation pairs.
// Exactly one encoder variant is active per index; the variant is fixed
// at build time and recorded in the manifest.
type Encoder interface {
	// Variant identifies the encoding strategy.
	Variant() domain.EncoderVariant

	// EncodeQuery encodes a single query text.
	EncodeQuery(ctx context.Context, text string) (domain.Representation, error)

	// EncodeBatch encodes chunk texts. Inputs exceeding the encoder's
	// length limit are truncated, never rejected; the indices of
	// truncated inputs are returned so callers can record the
	// degradation.
	EncodeBatch(ctx context.Context, texts []string) (reprs []domain.Representation, truncated []int, err error)

	// Score computes the relevance of a chunk representation to a
	// query representation. Higher is more relevant; the range is
	// bounded (inner product on normalised vectors, [-1, 1]).
	Score(query, chunk domain.Representation) float64

	// Dimensions returns the per-vector dimensionality.
	Dimensions() int

	// ModelName returns the underlying embedding model name.
	ModelName() string
}

// Scorer is the scoring subset of Encoder needed by vector index
// backends that rank entries themselves.
type Scorer interface {
	Score(query, chunk domain.Representation) float64
}
