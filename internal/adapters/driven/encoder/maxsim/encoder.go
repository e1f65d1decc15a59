// Package maxsim provides the late-interaction encoder variant.
// Each text maps to one vector per token window; relevance is MaxSim:
// for every query vector take the best inner product against the chunk
// vectors, then average over query vectors. More precise than pooled
// embeddings on long passages, at the cost of more embedding calls and
// a larger index.
package maxsim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// Ensure Encoder implements the interface.
var _ driven.Encoder = (*Encoder)(nil)

// Window sizing. Whitespace tokens are grouped into fixed-size windows
// so one embedding call covers a phrase rather than a single word, and
// the per-text vector count stays bounded.
const (
	// WindowTokens is the number of tokens per embedded window.
	WindowTokens = 12

	// MaxWindows caps the vectors per text. Text beyond the cap is
	// covered by truncation, mirroring token-limit truncation in
	// late-interaction models.
	MaxWindows = 24
)

// Encoder wraps an EmbeddingService as the late-interaction variant.
type Encoder struct {
	svc    driven.EmbeddingService
	maxLen int
}

// New creates a late-interaction encoder. maxLen bounds encoder input
// in runes; longer input is truncated and reported, never rejected.
func New(svc driven.EmbeddingService, maxLen int) *Encoder {
	if maxLen <= 0 {
		maxLen = domain.DefaultMaxEncodeLength
	}
	return &Encoder{svc: svc, maxLen: maxLen}
}

// Variant identifies the encoding strategy.
func (e *Encoder) Variant() domain.EncoderVariant {
	return domain.VariantLateInteraction
}

// EncodeQuery encodes a single query text into per-window vectors.
func (e *Encoder) EncodeQuery(ctx context.Context, text string) (domain.Representation, error) {
	reprs, _, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return domain.Representation{}, err
	}
	return reprs[0], nil
}

// EncodeBatch encodes chunk texts. All windows of all texts are
// embedded in a single batch call; the result is regrouped per text.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([]domain.Representation, []int, error) {
	if len(texts) == 0 {
		return nil, nil, nil
	}

	var truncated []int
	windows := make([][]string, len(texts))
	var flat []string

	for i, t := range texts {
		cut, wasCut := truncate(t, e.maxLen)
		w := windowed(cut)
		if len(w) > MaxWindows {
			w = w[:MaxWindows]
			wasCut = true
		}
		if wasCut {
			truncated = append(truncated, i)
		}
		windows[i] = w
		flat = append(flat, w...)
	}

	if len(flat) == 0 {
		return nil, nil, fmt.Errorf("encode batch: no encodable text")
	}

	vecs, err := e.svc.EmbedBatch(ctx, flat)
	if err != nil {
		return nil, nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(flat) {
		return nil, nil, fmt.Errorf("embed batch: got %d vectors for %d windows", len(vecs), len(flat))
	}

	reprs := make([]domain.Representation, len(texts))
	offset := 0
	for i, w := range windows {
		group := make([][]float32, len(w))
		for j := range w {
			normalise(vecs[offset])
			group[j] = vecs[offset]
			offset++
		}
		reprs[i] = domain.Representation{Vectors: group}
	}
	return reprs, truncated, nil
}

// Score computes MaxSim: the sum over query vectors of the maximum
// inner product against any chunk vector, divided by the query vector
// count. With normalised vectors the result is bounded to [-1, 1].
func (e *Encoder) Score(query, chunk domain.Representation) float64 {
	if len(query.Vectors) == 0 || len(chunk.Vectors) == 0 {
		return 0
	}

	var sum float64
	for _, q := range query.Vectors {
		best := math.Inf(-1)
		for _, c := range chunk.Vectors {
			if s := dot(q, c); s > best {
				best = s
			}
		}
		sum += best
	}
	return sum / float64(len(query.Vectors))
}

// Dimensions returns the per-vector dimensionality.
func (e *Encoder) Dimensions() int {
	return e.svc.Dimensions()
}

// ModelName returns the underlying embedding model name.
func (e *Encoder) ModelName() string {
	return e.svc.ModelName()
}

// windowed groups whitespace tokens into windows of WindowTokens.
// Whitespace-only text yields a single window with the raw text so
// every input keeps at least one vector.
func windowed(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var windows []string
	for i := 0; i < len(tokens); i += WindowTokens {
		end := i + WindowTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		windows = append(windows, strings.Join(tokens[i:end], " "))
	}
	return windows
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
