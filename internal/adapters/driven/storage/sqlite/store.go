// Package sqlite provides the chunk-metadata sidecar store.
// Each persisted index directory carries a metadata.db mapping chunk
// IDs to chunk text and denormalised source email metadata, so query
// results can be displayed without re-reading the corpus.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/okloa-labs/mailrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Filename is the on-disk name of the sidecar database.
const Filename = "metadata.db"

// Store is the SQLite-backed chunk store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the sidecar database in the given index
// directory and applies pending migrations.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, Filename)

	// WAL keeps concurrent readers cheap while a build writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Open opens an existing sidecar database, failing when it is absent.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, Filename)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return NewStore(dir)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveRecords stores chunk records, replacing existing IDs.
func (s *Store) SaveRecords(ctx context.Context, records []domain.ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, field, content, start_offset, end_offset,
			position, truncated, sender, subject, recipients, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			field = excluded.field,
			content = excluded.content,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			position = excluded.position,
			truncated = excluded.truncated,
			sender = excluded.sender,
			subject = excluded.subject,
			recipients = excluded.recipients,
			sent_at = excluded.sent_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		recipientsJSON, err := json.Marshal(r.Meta.Recipients)
		if err != nil {
			return fmt.Errorf("marshalling recipients: %w", err)
		}

		c := r.Chunk
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, string(c.Field), c.Text,
			c.StartOffset, c.EndOffset, c.Position, boolToInt(c.Truncated),
			r.Meta.Sender, r.Meta.Subject, string(recipientsJSON), r.Meta.Timestamp.UTC()); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetRecord retrieves a record by chunk ID.
func (s *Store) GetRecord(ctx context.Context, chunkID string) (*domain.ChunkRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, field, content, start_offset, end_offset,
			position, truncated, sender, subject, recipients, sent_at
		FROM chunks WHERE id = ?
	`, chunkID)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return record, nil
}

// GetRecords retrieves records for the given chunk IDs, preserving the
// input order and skipping missing IDs.
func (s *Store) GetRecords(ctx context.Context, chunkIDs []string) ([]domain.ChunkRecord, error) {
	records := make([]domain.ChunkRecord, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		record, err := s.GetRecord(ctx, id)
		if err != nil {
			if err == domain.ErrNotFound {
				continue
			}
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.ChunkRecord, error) {
	var (
		r              domain.ChunkRecord
		field          string
		truncated      int
		recipientsJSON string
		sentAt         sql.NullTime
	)

	err := row.Scan(&r.Chunk.ID, &r.Chunk.DocumentID, &field, &r.Chunk.Text,
		&r.Chunk.StartOffset, &r.Chunk.EndOffset, &r.Chunk.Position, &truncated,
		&r.Meta.Sender, &r.Meta.Subject, &recipientsJSON, &sentAt)
	if err != nil {
		return nil, err
	}

	r.Chunk.Field = domain.ChunkField(field)
	r.Chunk.Truncated = truncated != 0
	if sentAt.Valid {
		r.Meta.Timestamp = sentAt.Time.UTC()
	}
	if recipientsJSON != "" && recipientsJSON != "null" {
		if err := json.Unmarshal([]byte(recipientsJSON), &r.Meta.Recipients); err != nil {
			return nil, fmt.Errorf("unmarshalling recipients: %w", err)
		}
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
