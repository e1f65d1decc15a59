// Package flat provides an exact in-memory vector index with binary
// persistence. Every query scores every entry through the active
// encoder variant, so results are exact for both dense and
// late-interaction representations; the search-effort parameter is
// accepted and ignored.
package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Filename is the on-disk name of the serialised index.
const Filename = "vectors.bin"

// fileMagic and fileVersion guard the binary layout. A version bump
// invalidates old files, which readers report as ErrIndexUnavailable.
const (
	fileMagic   = uint32(0x4d525658) // "MRVX"
	fileVersion = uint32(1)
)

// entry pairs a chunk ID with its representation.
type entry struct {
	chunkID string
	repr    domain.Representation
}

// Index is the exact vector index.
type Index struct {
	mu      sync.RWMutex
	scorer  driven.Scorer
	entries []entry // sorted by chunkID
	closed  bool
}

// New creates an empty index scoring with the given encoder variant.
func New(scorer driven.Scorer) *Index {
	return &Index{scorer: scorer}
}

// Build replaces the index content with the given entries.
func (idx *Index) Build(_ context.Context, entries []domain.IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errors.New("flat: index is closed")
	}

	idx.entries = make([]entry, len(entries))
	for i, e := range entries {
		idx.entries[i] = entry{chunkID: e.Record.Chunk.ID, repr: e.Repr}
	}
	sortEntries(idx.entries)
	return nil
}

// Add appends entries to the index without a full rebuild.
func (idx *Index) Add(_ context.Context, entries []domain.IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return errors.New("flat: index is closed")
	}

	for _, e := range entries {
		idx.entries = append(idx.entries, entry{chunkID: e.Record.Chunk.ID, repr: e.Repr})
	}
	sortEntries(idx.entries)
	return nil
}

// Query returns at most k hits ordered by descending score, ties
// broken by ascending chunk ID. The effort parameter is ignored: the
// flat index is exhaustive and always exact.
func (idx *Index) Query(ctx context.Context, query domain.Representation, k, _ int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, errors.New("flat: index is closed")
	}
	if k <= 0 || len(idx.entries) == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, len(idx.entries))
	for i, e := range idx.entries {
		// Scoring a large index is the slow path; honour cancellation.
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hits = append(hits, driven.VectorHit{
			ChunkID: e.chunkID,
			Score:   idx.scorer.Score(query, e.repr),
		})
	}

	// Entries are pre-sorted by chunk ID, and the sort is stable, so
	// equal scores keep ascending chunk ID order.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Persist writes the index to dir/vectors.bin.
func (idx *Index) Persist(dir string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	f, err := os.Create(filepath.Join(dir, Filename))
	if err != nil {
		return fmt.Errorf("flat: create index file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, v := range []uint32{fileMagic, fileVersion, uint32(len(idx.entries))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("flat: write header: %w", err)
		}
	}

	for _, e := range idx.entries {
		if err := writeEntry(w, e); err != nil {
			return fmt.Errorf("flat: write entry %s: %w", e.chunkID, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flat: flush index file: %w", err)
	}
	return f.Sync()
}

// Open loads a persisted index from dir.
// Missing or corrupted files yield domain.ErrIndexUnavailable; a
// partially-initialised index is never returned.
func Open(dir string, scorer driven.Scorer) (*Index, error) {
	f, err := os.Open(filepath.Join(dir, Filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, version, count uint32
	for _, v := range []*uint32{&magic, &version, &count} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: truncated header", domain.ErrIndexUnavailable)
		}
	}
	if magic != fileMagic || version != fileVersion {
		return nil, fmt.Errorf("%w: unrecognised index format", domain.ErrIndexUnavailable)
	}

	entries := make([]entry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, err := readEntry(r)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupted entry %d: %v", domain.ErrIndexUnavailable, i, err)
		}
		entries = append(entries, e)
	}

	sortEntries(entries)
	return &Index{scorer: scorer, entries: entries}, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = nil
	idx.closed = true
	return nil
}

func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].chunkID < entries[j].chunkID
	})
}

// writeEntry serialises one entry: id length + id bytes, vector count,
// dimension, then the vectors as little-endian float32 bits.
func writeEntry(w io.Writer, e entry) error {
	id := []byte(e.chunkID)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
		return err
	}
	if _, err := w.Write(id); err != nil {
		return err
	}

	dim := 0
	if len(e.repr.Vectors) > 0 {
		dim = len(e.repr.Vectors[0])
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.repr.Vectors))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dim)); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, vec := range e.repr.Vectors {
		if len(vec) != dim {
			return errors.New("ragged vector dimensions")
		}
		for _, f := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// maxIDLen bounds chunk ID length when reading, as a corruption guard.
const maxIDLen = 1024

func readEntry(r io.Reader) (entry, error) {
	var idLen uint32
	if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
		return entry{}, err
	}
	if idLen == 0 || idLen > maxIDLen {
		return entry{}, errors.New("implausible chunk ID length")
	}

	id := make([]byte, idLen)
	if _, err := io.ReadFull(r, id); err != nil {
		return entry{}, err
	}

	var vecCount, dim uint32
	if err := binary.Read(r, binary.LittleEndian, &vecCount); err != nil {
		return entry{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return entry{}, err
	}

	vectors := make([][]float32, vecCount)
	buf := make([]byte, 4)
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			if _, err := io.ReadFull(r, buf); err != nil {
				return entry{}, err
			}
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
		}
		vectors[i] = vec
	}

	return entry{chunkID: string(id), repr: domain.Representation{Vectors: vectors}}, nil
}
