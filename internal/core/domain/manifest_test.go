package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprintDocs() []Document {
	return []Document{
		{ID: "b", Subject: "Second", Body: "body two"},
		{ID: "a", Subject: "First", Body: "body one"},
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	docs := fingerprintDocs()
	count1, hash1 := Fingerprint(docs)

	reversed := []Document{docs[1], docs[0]}
	count2, hash2 := Fingerprint(reversed)

	assert.Equal(t, count1, count2)
	assert.Equal(t, hash1, hash2)
}

func TestFingerprint_SensitiveToContent(t *testing.T) {
	docs := fingerprintDocs()
	_, hash1 := Fingerprint(docs)

	docs[0].Body += "."
	_, hash2 := Fingerprint(docs)
	assert.NotEqual(t, hash1, hash2)
}

func TestFingerprint_SensitiveToSubject(t *testing.T) {
	docs := fingerprintDocs()
	_, hash1 := Fingerprint(docs)

	docs[1].Subject = "Changed"
	_, hash2 := Fingerprint(docs)
	assert.NotEqual(t, hash1, hash2)
}

func TestFingerprint_Empty(t *testing.T) {
	count, hash := Fingerprint(nil)
	assert.Equal(t, 0, count)
	assert.NotEmpty(t, hash)
}

func TestManifest_Stale(t *testing.T) {
	cfg := DefaultIndexConfig()
	cfg.EmbeddingModel = "nomic-embed-text"

	manifest := Manifest{
		DocumentCount:  2,
		ContentHash:    "abc",
		Variant:        cfg.Variant,
		EmbeddingModel: cfg.EmbeddingModel,
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		VectorBackend:  cfg.VectorBackend,
	}

	assert.False(t, manifest.Stale(2, "abc", cfg))
	assert.True(t, manifest.Stale(3, "abc", cfg), "document count change")
	assert.True(t, manifest.Stale(2, "xyz", cfg), "content change")

	changed := cfg
	changed.ChunkSize = cfg.ChunkSize + 100
	assert.True(t, manifest.Stale(2, "abc", changed), "chunking change")

	changed = cfg
	changed.Variant = VariantLateInteraction
	assert.True(t, manifest.Stale(2, "abc", changed), "variant change")

	changed = cfg
	changed.EmbeddingModel = "other-model"
	assert.True(t, manifest.Stale(2, "abc", changed), "model change")
}

func TestParseEncoderVariant(t *testing.T) {
	v, err := ParseEncoderVariant("dense")
	require.NoError(t, err)
	assert.Equal(t, VariantDense, v)

	v, err = ParseEncoderVariant("late-interaction")
	require.NoError(t, err)
	assert.Equal(t, VariantLateInteraction, v)

	_, err = ParseEncoderVariant("sparse")
	require.ErrorIs(t, err, ErrInvalidConfig)
}
