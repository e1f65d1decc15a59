package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// builtManager returns a manager with the test corpus already indexed.
func builtManager(t *testing.T, cfg domain.IndexConfig) (*IndexManager, *stubEncoder) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "index")
	m, enc := newTestManager(t, dir, cfg)
	_, err := m.EnsureIndex(context.Background(), testCorpus(), false)
	require.NoError(t, err)
	return m, enc
}

func TestAsk_GroundedAnswer(t *testing.T) {
	cfg := testConfig()
	m, enc := builtManager(t, cfg)
	gen := &stubGeneration{reply: "The budget meeting is on Thursday."}

	svc := NewAskService(m, enc, gen, nil, cfg)
	answer, err := svc.Ask(context.Background(), "when is the budget meeting?", domain.AskOptions{})
	require.NoError(t, err)

	assert.False(t, answer.Degraded)
	assert.Equal(t, "The budget meeting is on Thursday.", answer.Text)
	require.NotEmpty(t, answer.Sources.Chunks)
	assert.Equal(t, "mail-1", answer.Sources.Chunks[0].Chunk.DocumentID)

	// The prompt must carry the retrieved excerpts and the question.
	assert.Contains(t, gen.lastPrompt, "budget meeting")
	assert.Contains(t, gen.lastPrompt, "when is the budget meeting?")
	assert.Contains(t, gen.lastPrompt, "alice@example.com")
	assert.NotEmpty(t, gen.lastSystem)
}

func TestAsk_GenerationFailureDegrades(t *testing.T) {
	cfg := testConfig()
	m, enc := builtManager(t, cfg)
	gen := &stubGeneration{err: errors.New("model exploded")}

	svc := NewAskService(m, enc, gen, nil, cfg)
	answer, err := svc.Ask(context.Background(), "when is the picnic?", domain.AskOptions{})
	require.NoError(t, err, "generation failure must not fail the query")

	assert.True(t, answer.Degraded)
	assert.Contains(t, answer.FailureReason, "model exploded")
	require.NotEmpty(t, answer.Sources.Chunks, "degraded answers still carry sources")
	assert.Equal(t, "mail-2", answer.Sources.Chunks[0].Chunk.DocumentID)
}

func TestAsk_NoGenerationServiceDegrades(t *testing.T) {
	cfg := testConfig()
	m, enc := builtManager(t, cfg)

	svc := NewAskService(m, enc, nil, nil, cfg)
	answer, err := svc.Ask(context.Background(), "server deadline?", domain.AskOptions{})
	require.NoError(t, err)

	assert.True(t, answer.Degraded)
	assert.NotEmpty(t, answer.Sources.Chunks)
}

func TestAsk_EmptyIndexReturnsCannedAnswer(t *testing.T) {
	cfg := testConfig()
	dir := filepath.Join(t.TempDir(), "index")
	m, enc := newTestManager(t, dir, cfg)
	_, err := m.EnsureIndex(context.Background(), nil, false)
	require.NoError(t, err)

	gen := &stubGeneration{reply: "should never be called"}
	svc := NewAskService(m, enc, gen, nil, cfg)

	answer, err := svc.Ask(context.Background(), "anything at all?", domain.AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, noSourcesAnswer, answer.Text)
	assert.False(t, answer.Degraded)
	assert.Empty(t, answer.Sources.Chunks)
	assert.Empty(t, gen.lastPrompt, "generation must be skipped without sources")
}

func TestRetrieve_RankedAndDeduplicated(t *testing.T) {
	cfg := testConfig()
	m, enc := builtManager(t, cfg)
	svc := NewAskService(m, enc, nil, nil, cfg)

	result, err := svc.Retrieve(context.Background(), "budget meeting figures", domain.AskOptions{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	// Best match first, one chunk per document.
	assert.Equal(t, "mail-1", result.Chunks[0].Chunk.DocumentID)
	seen := map[string]bool{}
	for _, c := range result.Chunks {
		assert.False(t, seen[c.Chunk.DocumentID], "document %s appears twice", c.Chunk.DocumentID)
		seen[c.Chunk.DocumentID] = true
	}

	// Scores are non-increasing.
	for i := 1; i < len(result.Chunks); i++ {
		assert.GreaterOrEqual(t, result.Chunks[i-1].Score, result.Chunks[i].Score)
	}
}

func TestRetrieve_IncludeDuplicates(t *testing.T) {
	cfg := testConfig()
	// Small chunks force multiple chunks per document.
	cfg.ChunkSize = 60
	cfg.ChunkOverlap = 10
	m, enc := builtManager(t, cfg)
	svc := NewAskService(m, enc, nil, nil, cfg)

	deduped, err := svc.Retrieve(context.Background(), "budget meeting", domain.AskOptions{TopK: 6})
	require.NoError(t, err)
	all, err := svc.Retrieve(context.Background(), "budget meeting",
		domain.AskOptions{TopK: 6, IncludeDuplicates: true})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(all.Chunks), len(deduped.Chunks))
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	cfg := testConfig()
	m, enc := builtManager(t, cfg)
	svc := NewAskService(m, enc, nil, nil, cfg)

	result, err := svc.Retrieve(context.Background(), "   ", domain.AskOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
}

func TestRetrieve_NoIndex(t *testing.T) {
	cfg := testConfig()
	dir := filepath.Join(t.TempDir(), "index")
	m, enc := newTestManager(t, dir, cfg)
	svc := NewAskService(m, enc, nil, nil, cfg)

	_, err := svc.Retrieve(context.Background(), "anything", domain.AskOptions{})
	require.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestAssembleContext_DropsWholeChunks(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "a", Text: strings.Repeat("x", 50)}, Meta: domain.SourceMeta{Sender: "a@x", Subject: "s"}},
		{Chunk: domain.Chunk{ID: "b", Text: strings.Repeat("y", 50)}, Meta: domain.SourceMeta{Sender: "b@x", Subject: "s"}},
	}

	full := assembleContext(chunks, 10000)
	assert.Contains(t, full, "xxxx")
	assert.Contains(t, full, "yyyy")

	// Budget fits only the first block; the second is dropped whole.
	firstLen := len([]rune(formatSource(&chunks[0])))
	bounded := assembleContext(chunks, firstLen+10)
	assert.Contains(t, bounded, "xxxx")
	assert.NotContains(t, bounded, "yyyy")

	// A first chunk over the whole budget is cut to it, not dropped.
	tight := assembleContext(chunks, 30)
	assert.Len(t, []rune(tight), 30)
	assert.NotContains(t, tight, "yyyy")
}
