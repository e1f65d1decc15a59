package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

func record(id, docID string) domain.ChunkRecord {
	return domain.ChunkRecord{
		Chunk: domain.Chunk{ID: id, DocumentID: docID, Field: domain.FieldBody, Text: "text " + id},
		Meta:  domain.SourceMeta{Sender: "a@x.com", Subject: "s"},
	}
}

func TestSaveAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveRecords(ctx, []domain.ChunkRecord{record("a", "d1")}))

	got, err := store.GetRecord(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "text a", got.Chunk.Text)

	_, err = store.GetRecord(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetRecords_OrderAndSkips(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.SaveRecords(ctx, []domain.ChunkRecord{
		record("a", "d1"), record("b", "d1"), record("c", "d2"),
	}))

	records, err := store.GetRecords(ctx, []string{"c", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].Chunk.ID)
	assert.Equal(t, "a", records[1].Chunk.ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveRecords_Replaces(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	r := record("a", "d1")
	require.NoError(t, store.SaveRecords(ctx, []domain.ChunkRecord{r}))
	r.Chunk.Text = "updated"
	require.NoError(t, store.SaveRecords(ctx, []domain.ChunkRecord{r}))

	got, err := store.GetRecord(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Chunk.Text)
}
