package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors. Callers classify
// wrapped errors with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration (bad chunk
	// parameters, unknown encoder variant or vector backend).
	// Configuration errors are fatal and never retried.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrVariantMismatch indicates the configured encoder variant does
	// not match the variant recorded in the index manifest. This is a
	// fatal configuration error, never a silent fallback.
	ErrVariantMismatch = errors.New("encoder variant mismatch")

	// ErrIndexUnavailable indicates the persisted index is missing or
	// corrupted. The caller should trigger a rebuild.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrBuildInProgress indicates another build already holds the
	// index location. Concurrent builds are rejected, not queued.
	ErrBuildInProgress = errors.New("index build in progress")

	// ErrGenerationUnavailable indicates the text-generation capability
	// failed or timed out. Answers degrade to sources-only; this error
	// is recorded on the Answer, never raised past the answer service.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. Without embeddings no index can be
	// built or queried.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
