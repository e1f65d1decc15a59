package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// DefaultConfigDirName is the per-user config directory name.
const DefaultConfigDirName = ".mailrag"

// configFilename is the configuration file name inside the config dir.
const configFilename = "config.toml"

// IndexSettings is the TOML shape of the index configuration. Zero
// values fall back to domain defaults when converted.
type IndexSettings struct {
	Variant           string `toml:"encoder_variant,omitempty"`
	ChunkSize         int    `toml:"chunk_size,omitempty"`
	ChunkOverlap      int    `toml:"chunk_overlap,omitempty"`
	TopK              int    `toml:"top_k,omitempty"`
	OverfetchFactor   int    `toml:"overfetch_factor,omitempty"`
	MaxContextLength  int    `toml:"max_context_length,omitempty"`
	MaxEncodeLength   int    `toml:"max_encode_length,omitempty"`
	DedupByDocument   *bool  `toml:"dedup_by_document,omitempty"`
	EncodeConcurrency int    `toml:"encode_concurrency,omitempty"`
	QueryTimeoutSecs  int    `toml:"query_timeout_seconds,omitempty"`
	VectorBackend     string `toml:"vector_backend,omitempty"`
}

// Config is the full on-disk configuration.
type Config struct {
	// IndexDir is where the persisted index lives.
	// Defaults to <configDir>/index.
	IndexDir string `toml:"index_dir,omitempty"`

	// CorpusPath is the default corpus file for index builds.
	CorpusPath string `toml:"corpus_path,omitempty"`

	Index      IndexSettings             `toml:"index"`
	Embedding  domain.EmbeddingSettings  `toml:"embedding"`
	Generation domain.GenerationSettings `toml:"generation"`
}

// IndexConfig converts the on-disk settings into a validated domain
// configuration, applying defaults for unset fields. The value
// receiver keeps it callable on the copy returned by ConfigStore.Config.
func (c Config) IndexConfig() (domain.IndexConfig, error) {
	cfg := domain.DefaultIndexConfig()

	if c.Index.Variant != "" {
		variant, err := domain.ParseEncoderVariant(c.Index.Variant)
		if err != nil {
			return cfg, fmt.Errorf("%w: unknown encoder variant %q", domain.ErrInvalidConfig, c.Index.Variant)
		}
		cfg.Variant = variant
	}
	if c.Index.ChunkSize > 0 {
		cfg.ChunkSize = c.Index.ChunkSize
	}
	if c.Index.ChunkOverlap > 0 {
		cfg.ChunkOverlap = c.Index.ChunkOverlap
	}
	if c.Index.TopK > 0 {
		cfg.TopK = c.Index.TopK
	}
	if c.Index.OverfetchFactor > 0 {
		cfg.OverfetchFactor = c.Index.OverfetchFactor
	}
	if c.Index.MaxContextLength > 0 {
		cfg.MaxContextLength = c.Index.MaxContextLength
	}
	if c.Index.MaxEncodeLength > 0 {
		cfg.MaxEncodeLength = c.Index.MaxEncodeLength
	}
	if c.Index.DedupByDocument != nil {
		cfg.DedupByDocument = *c.Index.DedupByDocument
	}
	if c.Index.EncodeConcurrency > 0 {
		cfg.EncodeConcurrency = c.Index.EncodeConcurrency
	}
	if c.Index.QueryTimeoutSecs > 0 {
		cfg.QueryTimeout = time.Duration(c.Index.QueryTimeoutSecs) * time.Second
	}
	if c.Index.VectorBackend != "" {
		cfg.VectorBackend = c.Index.VectorBackend
	}
	cfg.EmbeddingModel = c.Embedding.Model
	cfg.GenerationModel = c.Generation.Model

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ConfigStore loads and saves the TOML configuration file.
type ConfigStore struct {
	mu       sync.RWMutex
	dir      string
	filePath string
	config   Config
}

// NewConfigStore creates a config store rooted at configDir.
// If configDir is empty, defaults to ~/.mailrag.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, DefaultConfigDirName)
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		dir:      configDir,
		filePath: filepath.Join(configDir, configFilename),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns a copy of the loaded configuration.
func (s *ConfigStore) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SetConfig replaces the configuration and persists it.
func (s *ConfigStore) SetConfig(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	return s.save()
}

// IndexDir returns the configured index directory, defaulting to a
// directory inside the config dir.
func (s *ConfigStore) IndexDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config.IndexDir != "" {
		return s.config.IndexDir
	}
	return filepath.Join(s.dir, "index")
}

// Dir returns the configuration directory path.
func (s *ConfigStore) Dir() string {
	return s.dir
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Load reads the configuration from disk. A missing file yields the
// zero configuration, not an error.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.config = Config{}
			return nil
		}
		return err
	}

	var loaded Config
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, s.filePath, err)
	}
	s.config = loaded
	return nil
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes the configuration (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.config)
	if err != nil {
		return err
	}

	// Write with restricted permissions; the file may hold API keys.
	return os.WriteFile(s.filePath, data, 0600)
}
