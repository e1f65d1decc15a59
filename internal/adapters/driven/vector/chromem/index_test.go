package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

func makeEntry(id string, vec []float32) domain.IndexEntry {
	return domain.IndexEntry{
		Record: domain.ChunkRecord{Chunk: domain.Chunk{ID: id, Text: "text " + id}},
		Repr:   domain.Representation{Vectors: [][]float32{vec}},
	}
}

func repr(vec []float32) domain.Representation {
	return domain.Representation{Vectors: [][]float32{vec}}
}

func TestBuildAndQuery(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	defer idx.Close()

	err = idx.Build(context.Background(), []domain.IndexEntry{
		makeEntry("a", []float32{1, 0}),
		makeEntry("b", []float32{0, 1}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	hits, err := idx.Query(context.Background(), repr([]float32{1, 0}), 2, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestQuery_KAboveCollectionSize(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)

	require.NoError(t, idx.Build(context.Background(), []domain.IndexEntry{
		makeEntry("a", []float32{1, 0}),
	}))

	hits, err := idx.Query(context.Background(), repr([]float32{1, 0}), 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestQuery_EmptyIndex(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), repr([]float32{1, 0}), 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAdd_RejectsMultiVectorRepresentations(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)

	entry := domain.IndexEntry{
		Record: domain.ChunkRecord{Chunk: domain.Chunk{ID: "m", Text: "multi"}},
		Repr:   domain.Representation{Vectors: [][]float32{{1, 0}, {0, 1}}},
	}
	err = idx.Add(context.Background(), []domain.IndexEntry{entry})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestPersistOpen(t *testing.T) {
	dir := t.TempDir()

	idx, err := New()
	require.NoError(t, err)
	require.NoError(t, idx.Build(context.Background(), []domain.IndexEntry{
		makeEntry("a", []float32{0.9, 0.1}),
		makeEntry("b", []float32{0.1, 0.9}),
	}))
	require.NoError(t, idx.Persist(dir))

	loaded, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	query := repr([]float32{0.9, 0.1})
	want, err := idx.Query(context.Background(), query, 2, 0)
	require.NoError(t, err)
	got, err := loaded.Query(context.Background(), query, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(t.TempDir())
	require.ErrorIs(t, err, domain.ErrIndexUnavailable)
}
