package domain

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultChunkSize          = 800
	DefaultChunkOverlap       = 120
	DefaultTopK               = 5
	DefaultOverfetchFactor    = 4
	DefaultMaxContextLength   = 4000
	DefaultMaxEncodeLength    = 2000
	DefaultEncodeConcurrency  = 4
	DefaultQueryTimeout       = 60 * time.Second
	DefaultVectorBackend      = "flat"
	DefaultExcerptLength      = 280
	DefaultSearchEffortFactor = 2
)

// IndexConfig is the full configuration surface for index builds and
// queries. The build-relevant subset is recorded in the Manifest.
type IndexConfig struct {
	// Variant selects the encoder variant (dense or late-interaction).
	Variant EncoderVariant

	// EmbeddingModel identifies the embedding model.
	EmbeddingModel string

	// GenerationModel identifies the text-generation model.
	GenerationModel string

	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks in runes.
	// Must be smaller than ChunkSize.
	ChunkOverlap int

	// TopK is the number of sources returned per query.
	TopK int

	// OverfetchFactor multiplies TopK for the internal candidate fetch
	// so deduplication does not under-fill the final results.
	OverfetchFactor int

	// MaxContextLength bounds the assembled generation context in runes.
	MaxContextLength int

	// MaxEncodeLength bounds encoder input in runes. Longer text is
	// truncated and the chunk marked as degraded, never rejected.
	MaxEncodeLength int

	// DedupByDocument keeps only the best-scoring chunk per document.
	DedupByDocument bool

	// EncodeConcurrency bounds parallel embedding calls during build.
	EncodeConcurrency int

	// QueryTimeout bounds a full query (encode + search + generation).
	QueryTimeout time.Duration

	// VectorBackend names the index backend ("flat" or "chromem").
	VectorBackend string
}

// DefaultIndexConfig returns a config populated with defaults.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Variant:           VariantDense,
		ChunkSize:         DefaultChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		TopK:              DefaultTopK,
		OverfetchFactor:   DefaultOverfetchFactor,
		MaxContextLength:  DefaultMaxContextLength,
		MaxEncodeLength:   DefaultMaxEncodeLength,
		DedupByDocument:   true,
		EncodeConcurrency: DefaultEncodeConcurrency,
		QueryTimeout:      DefaultQueryTimeout,
		VectorBackend:     DefaultVectorBackend,
	}
}

// Validate checks the configuration for fatal errors.
// Validation failures are ConfigurationErrors: surfaced immediately,
// never coerced or retried.
func (c *IndexConfig) Validate() error {
	if _, err := ParseEncoderVariant(string(c.Variant)); err != nil {
		return fmt.Errorf("%w: unknown encoder variant %q", ErrInvalidConfig, c.Variant)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.OverfetchFactor < 1 {
		return fmt.Errorf("%w: overfetch factor must be at least 1, got %d", ErrInvalidConfig, c.OverfetchFactor)
	}
	if c.MaxContextLength <= 0 {
		return fmt.Errorf("%w: max context length must be positive, got %d", ErrInvalidConfig, c.MaxContextLength)
	}
	if c.EncodeConcurrency <= 0 {
		return fmt.Errorf("%w: encode concurrency must be positive, got %d", ErrInvalidConfig, c.EncodeConcurrency)
	}
	switch c.VectorBackend {
	case "flat", "chromem":
	default:
		return fmt.Errorf("%w: unknown vector backend %q", ErrInvalidConfig, c.VectorBackend)
	}
	if c.VectorBackend == "chromem" && c.Variant != VariantDense {
		return fmt.Errorf("%w: chromem backend supports only the dense variant", ErrInvalidConfig)
	}
	return nil
}
