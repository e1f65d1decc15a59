// Package corpus loads email documents from structured corpus files.
// Raw mailbox parsing is out of scope: the loader accepts documents
// that have already been reduced to id, subject, body and metadata,
// either as a JSON array or as JSON Lines.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/logger"
)

// document is the on-disk document shape.
type document struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Sender     string   `json:"sender,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
}

// Load reads a corpus file and returns its documents.
// Duplicate IDs are rejected; documents with no text at all are
// skipped with a warning.
func Load(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	raw, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	docs := make([]domain.Document, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, d := range raw {
		if d.ID == "" {
			return nil, fmt.Errorf("corpus document %d has no id", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("corpus contains duplicate document id %q", d.ID)
		}
		seen[d.ID] = true

		if strings.TrimSpace(d.Subject) == "" && strings.TrimSpace(d.Body) == "" {
			logger.Warn("Skipping document %s: no subject or body text", d.ID)
			continue
		}

		doc := domain.Document{
			ID:         d.ID,
			Subject:    d.Subject,
			Body:       d.Body,
			Sender:     d.Sender,
			Recipients: d.Recipients,
		}
		if d.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339, d.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("document %s: invalid timestamp %q: %w", d.ID, d.Timestamp, err)
			}
			doc.Timestamp = ts.UTC()
		}
		docs = append(docs, doc)
	}

	logger.Debug("Loaded %d documents from %s", len(docs), path)
	return docs, nil
}

// parse decodes either a JSON array or JSON Lines.
func parse(data []byte) ([]document, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var docs []document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var docs []document
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var d document
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
