// Package memory provides an in-memory chunk store. It backs indexes
// built without an index directory, which live only as long as their
// manager.
package memory

import (
	"context"
	"sync"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store holds chunk records in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.ChunkRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{records: make(map[string]domain.ChunkRecord)}
}

// SaveRecords stores chunk records, replacing existing IDs.
func (s *Store) SaveRecords(_ context.Context, records []domain.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.Chunk.ID] = r
	}
	return nil
}

// GetRecord retrieves a record by chunk ID.
func (s *Store) GetRecord(_ context.Context, chunkID string) (*domain.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

// GetRecords retrieves records for the given chunk IDs, preserving the
// input order and skipping missing IDs.
func (s *Store) GetRecords(_ context.Context, chunkIDs []string) ([]domain.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.ChunkRecord, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		if r, ok := s.records[id]; ok {
			records = append(records, r)
		}
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
