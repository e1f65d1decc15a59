package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

func TestConfigStore_MissingFileStartsEmpty(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	cfg := store.Config()
	assert.Empty(t, cfg.CorpusPath)
	assert.False(t, cfg.Embedding.IsConfigured())
}

func TestConfigStore_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	cfg := store.Config()
	cfg.CorpusPath = "/data/mail.json"
	cfg.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"}
	cfg.Index.ChunkSize = 500
	require.NoError(t, store.SetConfig(cfg))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	got := reloaded.Config()
	assert.Equal(t, "/data/mail.json", got.CorpusPath)
	assert.Equal(t, domain.AIProviderOllama, got.Embedding.Provider)
	assert.Equal(t, 500, got.Index.ChunkSize)
}

func TestConfigStore_RestrictedPermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid"), 0600))

	_, err := NewConfigStore(dir)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestConfigStore_IndexDirDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "index"), store.IndexDir())

	cfg := store.Config()
	cfg.IndexDir = "/var/lib/mailrag"
	require.NoError(t, store.SetConfig(cfg))
	assert.Equal(t, "/var/lib/mailrag", store.IndexDir())
}

func TestIndexConfig_ChainsFromConfigCopy(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	ic, err := store.Config().IndexConfig()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultChunkSize, ic.ChunkSize)
}

func TestIndexConfig_Defaults(t *testing.T) {
	var cfg Config
	ic, err := cfg.IndexConfig()
	require.NoError(t, err)

	assert.Equal(t, domain.VariantDense, ic.Variant)
	assert.Equal(t, domain.DefaultChunkSize, ic.ChunkSize)
	assert.Equal(t, domain.DefaultTopK, ic.TopK)
	assert.True(t, ic.DedupByDocument)
}

func TestIndexConfig_Overrides(t *testing.T) {
	dedup := false
	cfg := Config{
		Index: IndexSettings{
			Variant:          "late-interaction",
			ChunkSize:        400,
			ChunkOverlap:     50,
			TopK:             8,
			DedupByDocument:  &dedup,
			QueryTimeoutSecs: 30,
		},
	}
	ic, err := cfg.IndexConfig()
	require.NoError(t, err)

	assert.Equal(t, domain.VariantLateInteraction, ic.Variant)
	assert.Equal(t, 400, ic.ChunkSize)
	assert.Equal(t, 8, ic.TopK)
	assert.False(t, ic.DedupByDocument)
	assert.Equal(t, 30*time.Second, ic.QueryTimeout)
}

func TestIndexConfig_InvalidVariant(t *testing.T) {
	cfg := Config{Index: IndexSettings{Variant: "sparse"}}
	_, err := cfg.IndexConfig()
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestIndexConfig_ChromemRequiresDense(t *testing.T) {
	cfg := Config{Index: IndexSettings{Variant: "late-interaction", VectorBackend: "chromem"}}
	_, err := cfg.IndexConfig()
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}
