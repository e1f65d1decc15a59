package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from Encoder, which decides how many vectors
// represent a text and how representations are scored. EmbeddingService
// is the raw model access; Encoder is the variant policy on top of it.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Local models via inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is determined by the model and is recorded in the manifest.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used before committing to a build.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
