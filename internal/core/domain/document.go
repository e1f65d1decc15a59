package domain

import "time"

// Document represents a single email from the archive.
// It is supplied fully materialised by the ingestion collaborator
// and is never mutated by the core.
type Document struct {
	// ID is the stable unique identifier (typically the Message-ID).
	ID string

	// Subject is the email subject line.
	Subject string

	// Body is the plain-text email body.
	Body string

	// Sender is the From address.
	Sender string

	// Recipients holds the To/Cc addresses.
	Recipients []string

	// Timestamp is when the email was sent.
	Timestamp time.Time
}

// ChunkField identifies which document field a chunk was cut from.
// Subject and body are chunked independently so a short subject line
// can match a query without competing against long body passages.
type ChunkField string

const (
	// FieldSubject marks chunks cut from the subject line.
	FieldSubject ChunkField = "subject"

	// FieldBody marks chunks cut from the body text.
	FieldBody ChunkField = "body"
)

// FieldText returns the text of the given field.
func (d *Document) FieldText(field ChunkField) string {
	if field == FieldSubject {
		return d.Subject
	}
	return d.Body
}

// Chunk represents a bounded slice of a document field.
// Chunk IDs are derived deterministically from the document ID, field
// and start offset, so re-chunking the same document with the same
// parameters always yields byte-identical chunks.
type Chunk struct {
	// ID is the deterministic unique identifier for the chunk.
	ID string

	// DocumentID links back to the source Document (non-owning).
	DocumentID string

	// Field is the document field this chunk was cut from.
	Field ChunkField

	// Text is the chunk content.
	Text string

	// StartOffset is the rune offset of the chunk start within the field.
	StartOffset int

	// EndOffset is the rune offset one past the chunk end within the field.
	EndOffset int

	// Position is the ordinal position within the field's chunk sequence.
	Position int

	// Truncated records that the text was cut to fit the encoder's
	// input limit. The chunk is still indexed; this is a warning marker.
	Truncated bool
}

// SourceMeta carries the denormalised document metadata stored next to
// each chunk so query-time display needs no join against the corpus.
type SourceMeta struct {
	// Sender is the From address of the source email.
	Sender string

	// Subject is the subject line of the source email.
	Subject string

	// Recipients holds the To/Cc addresses of the source email.
	Recipients []string

	// Timestamp is when the source email was sent.
	Timestamp time.Time
}

// ChunkRecord pairs a chunk with its denormalised source metadata.
// This is the unit persisted in the index sidecar.
type ChunkRecord struct {
	Chunk Chunk
	Meta  SourceMeta
}

// Representation is the vector form of a chunk or query produced by an
// encoder. The dense variant uses exactly one vector; the
// late-interaction variant uses one vector per token window.
type Representation struct {
	// Vectors holds the embedding vectors. Never empty for encoded text.
	Vectors [][]float32
}

// IndexEntry pairs a chunk record with its representation for bulk
// index construction.
type IndexEntry struct {
	Record ChunkRecord
	Repr   Representation
}
