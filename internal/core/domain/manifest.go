package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// EncoderVariant selects how text is represented and scored.
// The variant is fixed at build time and recorded in the manifest;
// it is never inferred from data at query time.
type EncoderVariant string

const (
	// VariantDense uses one pooled vector per text, scored by inner
	// product on normalised vectors (cosine similarity).
	VariantDense EncoderVariant = "dense"

	// VariantLateInteraction uses per-token-window vectors, scored by
	// MaxSim aggregation across token pairs.
	VariantLateInteraction EncoderVariant = "late-interaction"
)

// ParseEncoderVariant validates a variant string from configuration.
func ParseEncoderVariant(s string) (EncoderVariant, error) {
	switch EncoderVariant(s) {
	case VariantDense, VariantLateInteraction:
		return EncoderVariant(s), nil
	}
	return "", ErrInvalidConfig
}

// Manifest records the document fingerprint and configuration an index
// was built with. A query must never be served against an index whose
// manifest does not match the current configuration.
type Manifest struct {
	// DocumentCount is the number of documents in the indexed corpus.
	DocumentCount int `toml:"document_count"`

	// ContentHash fingerprints the corpus content.
	ContentHash string `toml:"content_hash"`

	// ChunkCount is the number of chunks the build produced.
	ChunkCount int `toml:"chunk_count"`

	// Variant is the encoder variant the index was built with.
	Variant EncoderVariant `toml:"encoder_variant"`

	// EmbeddingModel identifies the embedding model.
	EmbeddingModel string `toml:"embedding_model"`

	// EmbeddingDimensions is the per-vector dimensionality.
	EmbeddingDimensions int `toml:"embedding_dimensions"`

	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks in runes.
	ChunkOverlap int `toml:"chunk_overlap"`

	// VectorBackend names the index backend ("flat" or "chromem").
	VectorBackend string `toml:"vector_backend"`

	// BuiltAt is when the build completed.
	BuiltAt time.Time `toml:"built_at"`
}

// Fingerprint computes the corpus fingerprint: document count plus a
// sha256 over the sorted document IDs and their content. Order of the
// input slice does not affect the result.
func Fingerprint(docs []Document) (count int, hash string) {
	ids := make([]string, len(docs))
	byID := make(map[string]*Document, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
		byID[docs[i].ID] = &docs[i]
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		d := byID[id]
		h.Write([]byte(id))
		h.Write([]byte{0})
		h.Write([]byte(d.Subject))
		h.Write([]byte{0})
		h.Write([]byte(d.Body))
		h.Write([]byte{0})
	}
	return len(docs), hex.EncodeToString(h.Sum(nil))
}

// Stale reports whether the manifest no longer matches the given corpus
// fingerprint and configuration. Any difference is staleness.
func (m *Manifest) Stale(docCount int, contentHash string, cfg IndexConfig) bool {
	return m.DocumentCount != docCount ||
		m.ContentHash != contentHash ||
		m.Variant != cfg.Variant ||
		m.EmbeddingModel != cfg.EmbeddingModel ||
		m.ChunkSize != cfg.ChunkSize ||
		m.ChunkOverlap != cfg.ChunkOverlap ||
		m.VectorBackend != cfg.VectorBackend
}
