package domain

// AIProvider identifies an embedding or generation backend.
type AIProvider string

// Supported AI providers.
const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	Provider AIProvider `toml:"provider"`
	BaseURL  string     `toml:"base_url,omitempty"`
	Model    string     `toml:"model,omitempty"`
	APIKey   string     `toml:"api_key,omitempty"`

	// Dimensions overrides the model's default vector size.
	Dimensions int `toml:"dimensions,omitempty"`
}

// IsConfigured reports whether a provider has been selected.
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// GenerationSettings configures the answer-generation provider.
type GenerationSettings struct {
	Provider AIProvider `toml:"provider"`
	BaseURL  string     `toml:"base_url,omitempty"`
	Model    string     `toml:"model,omitempty"`
	APIKey   string     `toml:"api_key,omitempty"`
}

// IsConfigured reports whether a provider has been selected.
func (s *GenerationSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// EmbeddingDimensions returns the known vector sizes for common
// embedding models. Models not listed fall back to adapter defaults.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
