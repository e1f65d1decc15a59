// Package chunker splits document fields into bounded, overlapping chunks.
package chunker

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// chunkNamespace seeds deterministic chunk UUIDs. Fixed forever:
// changing it would change every chunk ID and break reproducibility.
var chunkNamespace = uuid.MustParse("8f2f7a1c-6d1c-4b5a-9d3e-2a8c1f0b4e6d")

// Processor splits subject and body independently into chunks of at
// most chunkSize runes, consecutive chunks overlapping by overlap
// runes. Boundaries prefer sentence ends, then whitespace, then a hard
// cut, so chunks avoid splitting mid-sentence where possible.
//
// Chunking is fully deterministic: the same document and parameters
// produce byte-identical chunk boundaries and IDs every time.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a chunker processor. Overlap must be smaller than the
// chunk size; violations are configuration errors, not silently fixed.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg := domain.DefaultIndexConfig()
	cfg.ChunkSize = p.chunkSize
	cfg.ChunkOverlap = p.overlap
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Chunk splits the document's subject and body into chunks.
// Empty or whitespace-only fields produce zero chunks. A field shorter
// than the chunk size yields exactly one chunk covering the whole field.
func (p *Processor) Chunk(doc *domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	chunks = append(chunks, p.chunkField(doc.ID, domain.FieldSubject, doc.Subject)...)
	chunks = append(chunks, p.chunkField(doc.ID, domain.FieldBody, doc.Body)...)
	return chunks
}

// chunkField cuts one field into chunks with rune-exact offsets.
// Consecutive chunk ranges overlap by exactly p.overlap runes; together
// they cover the field with no gaps.
func (p *Processor) chunkField(docID string, field domain.ChunkField, text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)

	var chunks []domain.Chunk
	start := 0
	position := 0

	for start < total {
		end := start + p.chunkSize
		if end >= total {
			end = total
		} else {
			end = p.snapBoundary(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			ID:          chunkID(docID, field, start),
			DocumentID:  docID,
			Field:       field,
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
			Position:    position,
		})
		position++

		if end == total {
			break
		}
		start = end - p.overlap
	}

	return chunks
}

// snapBoundary moves a hard cut at end back to the nearest sentence
// terminator, falling back to the nearest whitespace. The boundary is
// never moved before the middle of the window, so progress through the
// field stays bounded below and overlap can never swallow a chunk.
func (p *Processor) snapBoundary(runes []rune, start, end int) int {
	min := start + p.chunkSize/2
	if min <= start+p.overlap {
		min = start + p.overlap + 1
	}

	for i := end; i > min; i-- {
		if isSentenceEnd(runes, i-1) {
			return i
		}
	}
	for i := end; i > min; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// isSentenceEnd reports whether the rune at i terminates a sentence:
// a terminator followed by whitespace or end of text.
func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '.', '!', '?', '\n':
	default:
		return false
	}
	if runes[i] == '\n' {
		return true
	}
	return i+1 >= len(runes) || unicode.IsSpace(runes[i+1])
}

// chunkID derives the deterministic chunk identifier (UUIDv5) from the
// document ID, field and start offset.
func chunkID(docID string, field domain.ChunkField, start int) string {
	name := docID + "|" + string(field) + "|" + strconv.Itoa(start)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
