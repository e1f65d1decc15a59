package driven

import "context"

// GenerationService produces natural-language text from a prompt.
// This is an optional service - when nil or unreachable, answers
// degrade gracefully to retrieved sources with a degraded marker.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI-compatible chat APIs
type GenerationService interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the generation model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// System is the system prompt framing the generation.
	System string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
