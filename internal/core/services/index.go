package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/okloa-labs/mailrag/internal/adapters/driven/storage/memory"
	"github.com/okloa-labs/mailrag/internal/adapters/driven/storage/sqlite"
	"github.com/okloa-labs/mailrag/internal/adapters/driven/vector"
	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
	"github.com/okloa-labs/mailrag/internal/core/ports/driving"
	"github.com/okloa-labs/mailrag/internal/logger"
	"github.com/okloa-labs/mailrag/internal/postprocessors/chunker"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexService = (*IndexManager)(nil)

// ManifestFilename is the on-disk name of the index manifest.
const ManifestFilename = "manifest.toml"

// encodeBatchSize is the number of chunk texts encoded per worker task.
const encodeBatchSize = 64

// IndexProvider yields the current ready index snapshot for querying.
type IndexProvider interface {
	Snapshot(ctx context.Context) (driven.VectorIndex, driven.ChunkStore, *domain.Manifest, error)
}

// IndexManager owns the persisted index lifecycle: staleness checks,
// all-or-nothing builds and the atomic directory swap that publishes
// them. At most one build runs at a time; concurrent build attempts
// are rejected rather than queued.
type IndexManager struct {
	dir     string
	cfg     domain.IndexConfig
	encoder driven.Encoder
	chunker *chunker.Processor

	building atomic.Bool

	// mu guards the open snapshot below.
	mu       sync.RWMutex
	index    driven.VectorIndex
	store    driven.ChunkStore
	manifest *domain.Manifest

	// retired holds snapshot handles replaced by a rebuild. They stay
	// open so in-flight readers can drain, and close with the manager.
	retired []io.Closer
}

// NewIndexManager creates an index manager rooted at dir. An empty dir
// keeps the index resident in memory; it is lost when the manager
// closes.
func NewIndexManager(dir string, cfg domain.IndexConfig, encoder driven.Encoder) (*IndexManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	proc, err := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}
	return &IndexManager{
		dir:     dir,
		cfg:     cfg,
		encoder: encoder,
		chunker: proc,
	}, nil
}

// EnsureIndex guarantees a fresh index exists for the given corpus,
// rebuilding only when forced or when the persisted manifest is stale.
func (m *IndexManager) EnsureIndex(ctx context.Context, docs []domain.Document, force bool) (*domain.Manifest, error) {
	count, hash := domain.Fingerprint(docs)

	if !force {
		manifest, err := m.Status(ctx)
		if err == nil && !manifest.Stale(count, hash, m.cfg) {
			logger.Info("Index is up to date (%d documents, %d chunks)",
				manifest.DocumentCount, manifest.ChunkCount)
			return manifest, nil
		}
		if err == nil {
			logger.Info("Index is stale, rebuilding")
		} else {
			logger.Info("No usable index found, building")
		}
	}

	if !m.building.CompareAndSwap(false, true) {
		return nil, domain.ErrBuildInProgress
	}
	defer m.building.Store(false)

	return m.build(ctx, docs, count, hash)
}

// Status returns the manifest of the current index.
func (m *IndexManager) Status(_ context.Context) (*domain.Manifest, error) {
	if m.dir == "" {
		m.mu.RLock()
		defer m.mu.RUnlock()
		if m.manifest == nil {
			return nil, fmt.Errorf("%w: no index built", domain.ErrIndexUnavailable)
		}
		return m.manifest, nil
	}
	return loadManifest(m.dir)
}

// Snapshot returns handles to the ready index, opening it from disk on
// first use. Callers must not close the returned handles.
func (m *IndexManager) Snapshot(_ context.Context) (driven.VectorIndex, driven.ChunkStore, *domain.Manifest, error) {
	m.mu.RLock()
	if m.index != nil {
		idx, store, manifest := m.index, m.store, m.manifest
		m.mu.RUnlock()
		return idx, store, manifest, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index != nil {
		return m.index, m.store, m.manifest, nil
	}
	if err := m.openLocked(); err != nil {
		return nil, nil, nil, err
	}
	return m.index, m.store, m.manifest, nil
}

// Close releases the open index handles, including any retired by
// rebuilds.
func (m *IndexManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	firstErr := m.closeLocked()
	for _, c := range m.retired {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.retired = nil
	return firstErr
}

// build chunks, encodes and indexes the corpus, then atomically swaps
// the result into place. A failed build leaves the prior index intact.
func (m *IndexManager) build(ctx context.Context, docs []domain.Document, docCount int, contentHash string) (*domain.Manifest, error) {
	logger.Section("Index Build")
	start := time.Now()

	records := m.chunkCorpus(docs)
	logger.Debug("Chunked %d documents into %d chunks", len(docs), len(records))

	entries, err := m.encodeRecords(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("encode corpus: %w", err)
	}

	idx, err := vector.New(m.cfg.VectorBackend, m.encoder)
	if err != nil {
		return nil, err
	}

	if err := idx.Build(ctx, entries); err != nil {
		idx.Close()
		return nil, fmt.Errorf("build vector index: %w", err)
	}

	manifest := &domain.Manifest{
		DocumentCount:       docCount,
		ContentHash:         contentHash,
		ChunkCount:          len(records),
		Variant:             m.encoder.Variant(),
		EmbeddingModel:      m.encoder.ModelName(),
		EmbeddingDimensions: m.encoder.Dimensions(),
		ChunkSize:           m.cfg.ChunkSize,
		ChunkOverlap:        m.cfg.ChunkOverlap,
		VectorBackend:       m.cfg.VectorBackend,
		BuiltAt:             time.Now().UTC(),
	}

	if err := m.publish(ctx, idx, records, manifest); err != nil {
		return nil, err
	}

	logger.Info("Index built in %s (%d chunks)", time.Since(start).Round(time.Millisecond), len(records))
	return manifest, nil
}

// chunkCorpus runs the chunker over every document.
func (m *IndexManager) chunkCorpus(docs []domain.Document) []domain.ChunkRecord {
	var records []domain.ChunkRecord
	for i := range docs {
		doc := &docs[i]
		meta := domain.SourceMeta{
			Sender:     doc.Sender,
			Subject:    doc.Subject,
			Recipients: doc.Recipients,
			Timestamp:  doc.Timestamp,
		}
		for _, c := range m.chunker.Chunk(doc) {
			records = append(records, domain.ChunkRecord{Chunk: c, Meta: meta})
		}
	}
	return records
}

// encodeRecords encodes all chunk texts through a bounded worker pool
// and pairs each record with its representation. Truncated encodings
// are recorded on the chunk, never rejected.
func (m *IndexManager) encodeRecords(ctx context.Context, records []domain.ChunkRecord) ([]domain.IndexEntry, error) {
	if len(records) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(m.cfg.EncodeConcurrency)
	if err != nil {
		return nil, fmt.Errorf("create encode pool: %w", err)
	}
	defer pool.Release()

	reprs := make([]domain.Representation, len(records))

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	for start := 0; start < len(records); start += encodeBatchSize {
		end := start + encodeBatchSize
		if end > len(records) {
			end = len(records)
		}
		start, end := start, end

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = records[i].Chunk.Text
			}

			batch, truncated, err := m.encoder.EncodeBatch(ctx, texts)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}

			copy(reprs[start:end], batch)
			for _, t := range truncated {
				records[start+t].Chunk.Truncated = true
				logger.Warn("Chunk %s exceeded the encoder length limit and was truncated",
					records[start+t].Chunk.ID)
			}
		})
		if submitErr != nil {
			wg.Done()
			errMu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			errMu.Unlock()
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	entries := make([]domain.IndexEntry, len(records))
	for i := range records {
		entries[i] = domain.IndexEntry{Record: records[i], Repr: reprs[i]}
	}
	return entries, nil
}

// publish takes ownership of the built index and makes it the current
// one. With a directory configured it writes the artefacts into a
// staging directory and swaps it into place with renames, so readers
// only ever see a complete index; without one the index stays
// resident.
func (m *IndexManager) publish(ctx context.Context, idx driven.VectorIndex, records []domain.ChunkRecord, manifest *domain.Manifest) error {
	if m.dir == "" {
		return m.publishEphemeral(ctx, idx, records, manifest)
	}
	defer idx.Close()

	stagingDir := m.dir + ".build"
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("clear staging directory: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0700); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	cleanup := true
	defer func() {
		if cleanup {
			os.RemoveAll(stagingDir)
		}
	}()

	if err := idx.Persist(stagingDir); err != nil {
		return fmt.Errorf("persist vector index: %w", err)
	}

	store, err := sqlite.NewStore(stagingDir)
	if err != nil {
		return err
	}
	if err := store.SaveRecords(ctx, records); err != nil {
		store.Close()
		return fmt.Errorf("persist chunk records: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("close chunk store: %w", err)
	}

	if err := saveManifest(stagingDir, manifest); err != nil {
		return err
	}

	// Retire the current snapshot instead of closing it: readers that
	// already hold its handles keep a complete index, and the handles
	// survive the renames below because the files stay open.
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retireLocked()

	oldDir := m.dir + ".old"
	if err := os.RemoveAll(oldDir); err != nil {
		return fmt.Errorf("clear previous index backup: %w", err)
	}
	if _, err := os.Stat(m.dir); err == nil {
		if err := os.Rename(m.dir, oldDir); err != nil {
			return fmt.Errorf("retire previous index: %w", err)
		}
	}
	if err := os.Rename(stagingDir, m.dir); err != nil {
		// Try to restore the previous index before giving up.
		os.Rename(oldDir, m.dir)
		return fmt.Errorf("publish index: %w", err)
	}
	cleanup = false
	os.RemoveAll(oldDir)

	return nil
}

// publishEphemeral installs the built index as the current snapshot
// without touching disk, backing the chunk records with the in-memory
// store.
func (m *IndexManager) publishEphemeral(ctx context.Context, idx driven.VectorIndex, records []domain.ChunkRecord, manifest *domain.Manifest) error {
	store := memory.NewStore()
	if err := store.SaveRecords(ctx, records); err != nil {
		idx.Close()
		return fmt.Errorf("store chunk records: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.retireLocked()
	m.index = idx
	m.store = store
	m.manifest = manifest
	return nil
}

// openLocked opens the persisted index and sidecar store.
// Callers must hold m.mu.
func (m *IndexManager) openLocked() error {
	if m.dir == "" {
		return fmt.Errorf("%w: no index built", domain.ErrIndexUnavailable)
	}

	manifest, err := loadManifest(m.dir)
	if err != nil {
		return err
	}
	if manifest.Variant != m.encoder.Variant() {
		return fmt.Errorf("%w: index built with %q, configured encoder is %q",
			domain.ErrVariantMismatch, manifest.Variant, m.encoder.Variant())
	}

	idx, err := vector.Open(manifest.VectorBackend, m.dir, m.encoder)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(m.dir)
	if err != nil {
		idx.Close()
		return err
	}

	m.index = idx
	m.store = store
	m.manifest = manifest
	return nil
}

// retireLocked detaches the current snapshot handles without closing
// them, so readers already holding them can drain. Callers must hold
// m.mu.
func (m *IndexManager) retireLocked() {
	if m.index != nil {
		m.retired = append(m.retired, m.index)
		m.index = nil
	}
	if m.store != nil {
		m.retired = append(m.retired, m.store)
		m.store = nil
	}
	m.manifest = nil
}

// closeLocked closes open handles. Callers must hold m.mu.
func (m *IndexManager) closeLocked() error {
	var firstErr error
	if m.index != nil {
		if err := m.index.Close(); err != nil {
			firstErr = err
		}
		m.index = nil
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.store = nil
	}
	m.manifest = nil
	return firstErr
}

// ReadManifest reads the manifest of a persisted index directory
// without opening the index itself.
func ReadManifest(dir string) (*domain.Manifest, error) {
	return loadManifest(dir)
}

// loadManifest reads the manifest from an index directory.
func loadManifest(dir string) (*domain.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	var manifest domain.Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: corrupt manifest: %v", domain.ErrIndexUnavailable, err)
	}
	return &manifest, nil
}

// saveManifest writes the manifest into an index directory.
func saveManifest(dir string, manifest *domain.Manifest) error {
	data, err := toml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFilename), data, 0600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
