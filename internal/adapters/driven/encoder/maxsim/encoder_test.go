package maxsim

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// mockEmbedding returns a vector derived from the first token so
// windows with different leading words get distinct directions.
type mockEmbedding struct {
	calls [][]string
}

func (m *mockEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		switch {
		case strings.HasPrefix(t, "alpha"):
			out[i] = []float32{1, 0, 0}
		case strings.HasPrefix(t, "beta"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int              { return 3 }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error                 { return nil }

func TestWindowed(t *testing.T) {
	t.Run("short text is one window", func(t *testing.T) {
		w := windowed("a handful of words")
		assert.Equal(t, []string{"a handful of words"}, w)
	})

	t.Run("long text is split by token count", func(t *testing.T) {
		text := strings.TrimSpace(strings.Repeat("word ", WindowTokens*3))
		w := windowed(text)
		assert.Len(t, w, 3)
	})

	t.Run("whitespace only", func(t *testing.T) {
		assert.Nil(t, windowed("   \n\t"))
	})
}

func TestEncodeBatch_GroupsVectorsPerText(t *testing.T) {
	svc := &mockEmbedding{}
	e := New(svc, 10000)

	long := strings.TrimSpace(strings.Repeat("beta word ", WindowTokens))
	reprs, truncated, err := e.EncodeBatch(context.Background(), []string{"alpha one", long})
	require.NoError(t, err)
	require.Len(t, reprs, 2)
	assert.Empty(t, truncated)

	assert.Len(t, reprs[0].Vectors, 1)
	assert.Greater(t, len(reprs[1].Vectors), 1)

	// All windows go through a single batch call.
	assert.Len(t, svc.calls, 1)
}

func TestEncodeBatch_CapsWindowsAndReportsTruncation(t *testing.T) {
	e := New(&mockEmbedding{}, 100000)

	huge := strings.TrimSpace(strings.Repeat("word ", WindowTokens*(MaxWindows+5)))
	reprs, truncated, err := e.EncodeBatch(context.Background(), []string{huge})
	require.NoError(t, err)
	assert.Len(t, reprs[0].Vectors, MaxWindows)
	assert.Equal(t, []int{0}, truncated)
}

func TestScore_MaxSimAggregation(t *testing.T) {
	e := New(&mockEmbedding{}, 100)

	query := domain.Representation{Vectors: [][]float32{{1, 0, 0}, {0, 1, 0}}}
	chunk := domain.Representation{Vectors: [][]float32{{1, 0, 0}, {0, 0, 1}}}

	// First query vector matches perfectly (1.0), second finds at best
	// an orthogonal vector (0.0); the mean is 0.5.
	assert.InDelta(t, 0.5, e.Score(query, chunk), 1e-6)

	// A chunk containing matches for both query vectors scores 1.0.
	full := domain.Representation{Vectors: [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	assert.InDelta(t, 1.0, e.Score(query, full), 1e-6)

	assert.Equal(t, 0.0, e.Score(domain.Representation{}, chunk))
}

func TestEncodeQuery(t *testing.T) {
	e := New(&mockEmbedding{}, 100)

	repr, err := e.EncodeQuery(context.Background(), "alpha question")
	require.NoError(t, err)
	require.Len(t, repr.Vectors, 1)
	assert.Equal(t, domain.VariantLateInteraction, e.Variant())
}
