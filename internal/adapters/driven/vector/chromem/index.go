// Package chromem provides a vector index backend over chromem-go, an
// embedded persistent vector database. It supports only the dense
// variant: chromem stores one embedding per document and ranks by
// cosine similarity, which matches the dense encoder's scoring
// exactly. Search is exhaustive, so the effort parameter is ignored.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/philippgille/chromem-go"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Filename is the on-disk name of the exported database.
const Filename = "chromem.gob"

// collectionName is the single collection holding all chunk vectors.
const collectionName = "chunks"

// addConcurrency bounds chromem's internal add parallelism.
const addConcurrency = 4

// errNoEmbedder rejects any accidental text-based operation: all
// embeddings are supplied by the encoder, never computed by chromem.
var errNoEmbedder = errors.New("chromem: embeddings are supplied externally")

func noEmbedder(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// Index is the chromem-backed dense vector index.
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
}

// New creates an empty in-memory index. Persist exports it to disk.
func New() (*Index, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, noEmbedder)
	if err != nil {
		return nil, fmt.Errorf("chromem: create collection: %w", err)
	}
	return &Index{db: db, col: col}, nil
}

// Build replaces the index content with the given entries.
func (idx *Index) Build(ctx context.Context, entries []domain.IndexEntry) error {
	if err := idx.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("chromem: reset collection: %w", err)
	}
	col, err := idx.db.CreateCollection(collectionName, nil, noEmbedder)
	if err != nil {
		return fmt.Errorf("chromem: create collection: %w", err)
	}
	idx.col = col
	return idx.Add(ctx, entries)
}

// Add appends entries to the index without a full rebuild.
func (idx *Index) Add(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		if len(e.Repr.Vectors) != 1 {
			return fmt.Errorf("%w: chromem backend requires single-vector representations",
				domain.ErrInvalidConfig)
		}
		docs[i] = chromem.Document{
			ID:        e.Record.Chunk.ID,
			Content:   e.Record.Chunk.Text,
			Embedding: e.Repr.Vectors[0],
		}
	}

	if err := idx.col.AddDocuments(ctx, docs, addConcurrency); err != nil {
		return fmt.Errorf("chromem: add documents: %w", err)
	}
	return nil
}

// Query returns at most k hits ordered by descending similarity, ties
// broken by ascending chunk ID.
func (idx *Index) Query(ctx context.Context, query domain.Representation, k, _ int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query.Vectors) != 1 {
		return nil, fmt.Errorf("%w: chromem backend requires single-vector queries",
			domain.ErrInvalidConfig)
	}

	// chromem rejects nResults above the collection size.
	n := k
	if count := idx.col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := idx.col.QueryEmbedding(ctx, query.Vectors[0], n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query: %w", err)
	}

	hits := make([]driven.VectorHit, len(results))
	for i, r := range results {
		hits[i] = driven.VectorHit{ChunkID: r.ID, Score: float64(r.Similarity)}
	}

	// Re-sort for the deterministic tie-break; chromem's own order is
	// unspecified for equal similarities.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits, nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return idx.col.Count()
}

// Persist exports the database to dir/chromem.gob.
func (idx *Index) Persist(dir string) error {
	if err := idx.db.Export(filepath.Join(dir, Filename), false, ""); err != nil {
		return fmt.Errorf("chromem: export: %w", err)
	}
	return nil
}

// Open loads a persisted index from dir.
// Missing or corrupted files yield domain.ErrIndexUnavailable.
func Open(dir string) (*Index, error) {
	db := chromem.NewDB()
	if err := db.Import(filepath.Join(dir, Filename), ""); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	col := db.GetCollection(collectionName, noEmbedder)
	if col == nil {
		return nil, fmt.Errorf("%w: collection missing from imported database", domain.ErrIndexUnavailable)
	}
	return &Index{db: db, col: col}, nil
}

// Close releases resources. chromem holds no external handles for an
// in-memory database.
func (idx *Index) Close() error {
	return nil
}
