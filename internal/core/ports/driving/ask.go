package driving

import (
	"context"

	"github.com/okloa-labs/mailrag/internal/core/domain"
)

// AskService answers natural-language questions against the index.
type AskService interface {
	// Ask retrieves relevant chunks and generates a grounded answer.
	// Generation failure never suppresses retrieval: the returned
	// Answer always carries the sources, with Degraded set when the
	// generation capability was unavailable or timed out.
	Ask(ctx context.Context, query string, opts domain.AskOptions) (*domain.Answer, error)

	// Retrieve runs only the retrieval stage.
	Retrieve(ctx context.Context, query string, opts domain.AskOptions) (*domain.RetrievalResult, error)
}
