package chunker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

func testDoc(subject, body string) *domain.Document {
	return &domain.Document{
		ID:        "msg-001",
		Subject:   subject,
		Body:      body,
		Sender:    "alice@archive.example",
		Timestamp: time.Date(2003, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p, err := New()
		require.NoError(t, err)
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})

	t.Run("overlap must be smaller than chunk size", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(100))
		require.ErrorIs(t, err, domain.ErrInvalidConfig)

		_, err = New(WithChunkSize(100), WithOverlap(150))
		require.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("non-positive options ignored", func(t *testing.T) {
		p, err := New(WithChunkSize(0), WithOverlap(-1))
		require.NoError(t, err)
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})
}

func TestChunk_EmptyFields(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	assert.Empty(t, p.Chunk(testDoc("", "")))
	assert.Empty(t, p.Chunk(testDoc("   ", "\n\t  \n")))
}

func TestChunk_ShortFieldsYieldOneChunkEach(t *testing.T) {
	p, err := New(WithChunkSize(200), WithOverlap(40))
	require.NoError(t, err)

	doc := testDoc("Committee meeting", "The next committee meeting is scheduled for March 5th.")
	chunks := p.Chunk(doc)
	require.Len(t, chunks, 2)

	subject, body := chunks[0], chunks[1]
	assert.Equal(t, domain.FieldSubject, subject.Field)
	assert.Equal(t, doc.Subject, subject.Text)
	assert.Equal(t, 0, subject.StartOffset)
	assert.Equal(t, len([]rune(doc.Subject)), subject.EndOffset)

	assert.Equal(t, domain.FieldBody, body.Field)
	assert.Equal(t, doc.Body, body.Text)
	assert.Equal(t, "msg-001", body.DocumentID)
	assert.Equal(t, 0, body.Position)
}

func TestChunk_Deterministic(t *testing.T) {
	p, err := New(WithChunkSize(120), WithOverlap(30))
	require.NoError(t, err)

	body := strings.Repeat("The archive holds many letters. Some are long, some short. ", 20)
	doc := testDoc("A long correspondence", body)

	first := p.Chunk(doc)
	second := p.Chunk(doc)
	require.Equal(t, first, second)

	// IDs are unique within the run.
	seen := make(map[string]bool)
	for _, c := range first {
		assert.False(t, seen[c.ID], "duplicate chunk ID %s", c.ID)
		seen[c.ID] = true
	}
}

func TestChunk_OffsetsCoverFieldWithExactOverlap(t *testing.T) {
	const size, overlap = 100, 25
	p, err := New(WithChunkSize(size), WithOverlap(overlap))
	require.NoError(t, err)

	body := strings.Repeat("Words follow words until the page is full. ", 30)
	doc := testDoc("", body)
	chunks := p.Chunk(doc)
	require.NotEmpty(t, chunks)

	runes := []rune(body)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(runes), chunks[len(chunks)-1].EndOffset)

	for i, c := range chunks {
		assert.LessOrEqual(t, c.EndOffset-c.StartOffset, size)
		assert.Equal(t, string(runes[c.StartOffset:c.EndOffset]), c.Text)
		if i > 0 {
			prev := chunks[i-1]
			assert.Equal(t, overlap, prev.EndOffset-c.StartOffset,
				"chunk %d must overlap its predecessor by exactly %d runes", i, overlap)
		}
	}
}

func TestChunk_PrefersSentenceBoundaries(t *testing.T) {
	p, err := New(WithChunkSize(80), WithOverlap(10))
	require.NoError(t, err)

	body := "First sentence here. Second sentence follows on. Third sentence is the one that runs past the boundary."
	chunks := p.Chunk(testDoc("", body))
	require.Greater(t, len(chunks), 1)

	// Every non-final chunk should end at a sentence or word boundary,
	// not in the middle of a word.
	for _, c := range chunks[:len(chunks)-1] {
		last := c.Text[len(c.Text)-1]
		assert.Contains(t, []byte(".!?\n "), last,
			"chunk should not end mid-word, got %q", c.Text)
	}
}

func TestChunk_SubjectAndBodyIndependent(t *testing.T) {
	p, err := New(WithChunkSize(50), WithOverlap(10))
	require.NoError(t, err)

	doc := testDoc("Budget review", strings.Repeat("Numbers and more numbers. ", 10))
	chunks := p.Chunk(doc)

	var subjectCount int
	for _, c := range chunks {
		if c.Field == domain.FieldSubject {
			subjectCount++
			assert.Equal(t, 0, c.Position)
		}
	}
	assert.Equal(t, 1, subjectCount)
}

func TestChunkID_DiffersAcrossFieldsAndOffsets(t *testing.T) {
	a := chunkID("doc", domain.FieldSubject, 0)
	b := chunkID("doc", domain.FieldBody, 0)
	c := chunkID("doc", domain.FieldBody, 10)
	d := chunkID("doc2", domain.FieldBody, 10)

	ids := map[string]bool{a: true, b: true, c: true, d: true}
	assert.Len(t, ids, 4)

	// Stable across calls.
	assert.Equal(t, a, chunkID("doc", domain.FieldSubject, 0))
}
