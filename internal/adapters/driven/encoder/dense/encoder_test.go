package dense

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// mockEmbedding returns canned vectors keyed by text prefix.
type mockEmbedding struct {
	vectors map[string][]float32
	fail    error
	calls   [][]string
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return m.lookup(text), nil
}

func (m *mockEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.calls = append(m.calls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.lookup(t)
	}
	return out, nil
}

func (m *mockEmbedding) lookup(text string) []float32 {
	for prefix, vec := range m.vectors {
		if strings.HasPrefix(text, prefix) {
			v := make([]float32, len(vec))
			copy(v, vec)
			return v
		}
	}
	return []float32{1, 0, 0}
}

func (m *mockEmbedding) Dimensions() int              { return 3 }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error                 { return nil }

func TestEncodeQuery_Normalises(t *testing.T) {
	svc := &mockEmbedding{vectors: map[string][]float32{"hello": {3, 4, 0}}}
	e := New(svc, 100)

	repr, err := e.EncodeQuery(context.Background(), "hello world")
	require.NoError(t, err)
	require.Len(t, repr.Vectors, 1)

	assert.InDelta(t, 0.6, repr.Vectors[0][0], 1e-6)
	assert.InDelta(t, 0.8, repr.Vectors[0][1], 1e-6)
}

func TestEncodeBatch_TruncatesAndReports(t *testing.T) {
	svc := &mockEmbedding{}
	e := New(svc, 10)

	long := strings.Repeat("a", 50)
	reprs, truncated, err := e.EncodeBatch(context.Background(), []string{"short", long})
	require.NoError(t, err)
	require.Len(t, reprs, 2)
	assert.Equal(t, []int{1}, truncated)

	// The service must have received the truncated text, not the original.
	require.Len(t, svc.calls, 1)
	assert.Equal(t, strings.Repeat("a", 10), svc.calls[0][1])
}

func TestEncodeBatch_EmptyInput(t *testing.T) {
	e := New(&mockEmbedding{}, 100)
	reprs, truncated, err := e.EncodeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, reprs)
	assert.Nil(t, truncated)
}

func TestEncodeBatch_PropagatesServiceError(t *testing.T) {
	svc := &mockEmbedding{fail: errors.New("model offline")}
	e := New(svc, 100)

	_, _, err := e.EncodeBatch(context.Background(), []string{"text"})
	require.Error(t, err)
}

func TestScore_CosineOnNormalisedVectors(t *testing.T) {
	e := New(&mockEmbedding{}, 100)

	same := domain.Representation{Vectors: [][]float32{{1, 0, 0}}}
	orthogonal := domain.Representation{Vectors: [][]float32{{0, 1, 0}}}
	opposite := domain.Representation{Vectors: [][]float32{{-1, 0, 0}}}

	assert.InDelta(t, 1.0, e.Score(same, same), 1e-6)
	assert.InDelta(t, 0.0, e.Score(same, orthogonal), 1e-6)
	assert.InDelta(t, -1.0, e.Score(same, opposite), 1e-6)
	assert.Equal(t, 0.0, e.Score(domain.Representation{}, same))
}

func TestVariantAndMetadata(t *testing.T) {
	e := New(&mockEmbedding{}, 100)
	assert.Equal(t, domain.VariantDense, e.Variant())
	assert.Equal(t, 3, e.Dimensions())
	assert.Equal(t, "mock-embed", e.ModelName())
}
