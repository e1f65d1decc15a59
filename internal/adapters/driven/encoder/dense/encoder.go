// Package dense provides the single-vector encoder variant.
// Each text maps to one pooled embedding; relevance is the inner
// product of L2-normalised vectors (cosine similarity).
package dense

import (
	"context"
	"fmt"
	"math"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// Ensure Encoder implements the interface.
var _ driven.Encoder = (*Encoder)(nil)

// Encoder wraps an EmbeddingService as the dense variant.
type Encoder struct {
	svc    driven.EmbeddingService
	maxLen int
}

// New creates a dense encoder. maxLen bounds encoder input in runes;
// longer input is truncated and reported, never rejected.
func New(svc driven.EmbeddingService, maxLen int) *Encoder {
	if maxLen <= 0 {
		maxLen = domain.DefaultMaxEncodeLength
	}
	return &Encoder{svc: svc, maxLen: maxLen}
}

// Variant identifies the encoding strategy.
func (e *Encoder) Variant() domain.EncoderVariant {
	return domain.VariantDense
}

// EncodeQuery encodes a single query text.
func (e *Encoder) EncodeQuery(ctx context.Context, text string) (domain.Representation, error) {
	text, _ = truncate(text, e.maxLen)

	vec, err := e.svc.Embed(ctx, text)
	if err != nil {
		return domain.Representation{}, fmt.Errorf("embed query: %w", err)
	}
	normalise(vec)
	return domain.Representation{Vectors: [][]float32{vec}}, nil
}

// EncodeBatch encodes chunk texts, truncating over-long input and
// returning the indices of truncated texts.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([]domain.Representation, []int, error) {
	if len(texts) == 0 {
		return nil, nil, nil
	}

	prepared := make([]string, len(texts))
	var truncated []int
	for i, t := range texts {
		cut, wasCut := truncate(t, e.maxLen)
		prepared[i] = cut
		if wasCut {
			truncated = append(truncated, i)
		}
	}

	vecs, err := e.svc.EmbedBatch(ctx, prepared)
	if err != nil {
		return nil, nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(prepared) {
		return nil, nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vecs), len(prepared))
	}

	reprs := make([]domain.Representation, len(vecs))
	for i, v := range vecs {
		normalise(v)
		reprs[i] = domain.Representation{Vectors: [][]float32{v}}
	}
	return reprs, truncated, nil
}

// Score computes the inner product of the two pooled vectors.
// Both sides are normalised at encode time, so the result is cosine
// similarity in [-1, 1].
func (e *Encoder) Score(query, chunk domain.Representation) float64 {
	if len(query.Vectors) == 0 || len(chunk.Vectors) == 0 {
		return 0
	}
	return dot(query.Vectors[0], chunk.Vectors[0])
}

// Dimensions returns the per-vector dimensionality.
func (e *Encoder) Dimensions() int {
	return e.svc.Dimensions()
}

// ModelName returns the underlying embedding model name.
func (e *Encoder) ModelName() string {
	return e.svc.ModelName()
}

// truncate bounds text to max runes.
func truncate(text string, max int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= max {
		return text, false
	}
	return string(runes[:max]), true
}

// normalise scales the vector to unit length in place.
func normalise(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
