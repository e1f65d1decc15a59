package services

import (
	"context"
	"errors"
	"strings"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

var (
	_ driven.Encoder           = (*stubEncoder)(nil)
	_ driven.GenerationService = (*stubGeneration)(nil)
)

// axisWords maps keywords onto vector axes, giving tests a
// deterministic embedding whose similarities follow word overlap.
var axisWords = []string{"budget", "meeting", "picnic", "server", "deadline"}

func embedText(text string) []float32 {
	vec := make([]float32, len(axisWords)+1)
	vec[len(axisWords)] = 0.1 // bias keeps zero-overlap texts comparable
	lower := strings.ToLower(text)
	for i, w := range axisWords {
		vec[i] = float32(strings.Count(lower, w))
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		inv := 1 / sqrt32(norm)
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

func sqrt32(x float32) float32 {
	// Newton's method is plenty for test vectors.
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// stubEncoder is a deterministic keyword-axis encoder.
type stubEncoder struct {
	variant domain.EncoderVariant
	model   string

	// encodeStarted and encodeRelease, when set, let a test hold an
	// encode mid-flight to exercise concurrent build rejection.
	encodeStarted chan struct{}
	encodeRelease chan struct{}

	failEncode bool
}

func newStubEncoder() *stubEncoder {
	return &stubEncoder{variant: domain.VariantDense, model: "stub-embed"}
}

func (e *stubEncoder) Variant() domain.EncoderVariant { return e.variant }
func (e *stubEncoder) Dimensions() int                { return len(axisWords) + 1 }
func (e *stubEncoder) ModelName() string              { return e.model }

func (e *stubEncoder) EncodeQuery(_ context.Context, text string) (domain.Representation, error) {
	if e.failEncode {
		return domain.Representation{}, errors.New("stub encode failure")
	}
	return domain.Representation{Vectors: [][]float32{embedText(text)}}, nil
}

func (e *stubEncoder) EncodeBatch(ctx context.Context, texts []string) ([]domain.Representation, []int, error) {
	if e.encodeStarted != nil {
		close(e.encodeStarted)
		e.encodeStarted = nil
	}
	if e.encodeRelease != nil {
		select {
		case <-e.encodeRelease:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if e.failEncode {
		return nil, nil, errors.New("stub encode failure")
	}
	reprs := make([]domain.Representation, len(texts))
	for i, t := range texts {
		reprs[i] = domain.Representation{Vectors: [][]float32{embedText(t)}}
	}
	return reprs, nil, nil
}

func (e *stubEncoder) Score(query, chunk domain.Representation) float64 {
	var sum float64
	q, c := query.Vectors[0], chunk.Vectors[0]
	for i := range q {
		sum += float64(q[i]) * float64(c[i])
	}
	return sum
}

// stubGeneration returns a fixed reply or a fixed error and records
// the last prompt it saw.
type stubGeneration struct {
	reply string
	err   error

	lastPrompt string
	lastSystem string
}

func (g *stubGeneration) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	g.lastPrompt = prompt
	g.lastSystem = opts.System
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGeneration) ModelName() string            { return "stub-gen" }
func (g *stubGeneration) Ping(_ context.Context) error { return nil }
func (g *stubGeneration) Close() error                 { return nil }
