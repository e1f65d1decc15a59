package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/okloa-labs/mailrag/internal/core/domain"
	"github.com/okloa-labs/mailrag/internal/core/ports/driven"
	"github.com/okloa-labs/mailrag/internal/core/ports/driving"
	"github.com/okloa-labs/mailrag/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// Fallback texts used when generation cannot run.
const (
	noSourcesAnswer = "No relevant messages were found in the indexed corpus for this question."

	degradedAnswer = "Answer generation was unavailable; the most relevant messages are listed as sources."
)

// Default prompt templates, used when no PromptStore is configured or
// a template is missing from it.
const (
	defaultAnswerSystemPrompt = `You are an assistant answering questions about an email archive.
Answer only from the provided excerpts. If the excerpts do not contain
the answer, say so plainly. Cite senders and dates when relevant.`

	defaultAnswerPrompt = `Excerpts from the email archive:

%s

Question: %s

Answer:`
)

// AskService answers questions by retrieving relevant chunks from the
// index and generating a grounded answer over them. The generation
// service is optional; without it every answer is degraded to its
// sources.
type AskService struct {
	provider    IndexProvider
	encoder     driven.Encoder
	generation  driven.GenerationService
	promptStore driven.PromptStore
	cfg         domain.IndexConfig
}

// NewAskService creates an ask service.
// generation and promptStore may be nil.
func NewAskService(
	provider IndexProvider,
	encoder driven.Encoder,
	generation driven.GenerationService,
	promptStore driven.PromptStore,
	cfg domain.IndexConfig,
) *AskService {
	return &AskService{
		provider:    provider,
		encoder:     encoder,
		generation:  generation,
		promptStore: promptStore,
		cfg:         cfg,
	}
}

// Ask retrieves relevant chunks and generates a grounded answer.
func (s *AskService) Ask(ctx context.Context, query string, opts domain.AskOptions) (*domain.Answer, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.QueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retrieval, err := s.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	if len(retrieval.Chunks) == 0 {
		logger.Info("No sources retrieved, returning canned answer")
		return &domain.Answer{
			Text:    noSourcesAnswer,
			Sources: *retrieval,
		}, nil
	}

	return s.generate(ctx, query, retrieval, opts), nil
}

// Retrieve runs only the retrieval stage: encode the query, search the
// vector index with overfetch, deduplicate per document and hydrate
// the hits from the chunk store.
func (s *AskService) Retrieve(ctx context.Context, query string, opts domain.AskOptions) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		return &domain.RetrievalResult{Query: query}, nil
	}

	idx, store, manifest, err := s.provider.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if manifest.Variant != s.encoder.Variant() {
		return nil, fmt.Errorf("%w: index built with %q, configured encoder is %q",
			domain.ErrVariantMismatch, manifest.Variant, s.encoder.Variant())
	}

	repr, err := s.encoder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	// Overfetch so per-document deduplication does not under-fill the
	// final top-k.
	fetchK := topK * s.cfg.OverfetchFactor
	effort := fetchK * domain.DefaultSearchEffortFactor
	logger.Debug("Query %q: top-k=%d, fetch=%d", query, topK, fetchK)

	hits, err := idx.Query(ctx, repr, fetchK, effort)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	logger.Debug("Vector index returned %d hits", len(hits))

	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
		scores[h.ChunkID] = h.Score
	}

	records, err := store.GetRecords(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate hits: %w", err)
	}

	dedup := s.cfg.DedupByDocument && !opts.IncludeDuplicates
	chunks := rankChunks(records, scores, topK, dedup)

	return &domain.RetrievalResult{Query: query, Chunks: chunks}, nil
}

// rankChunks orders hydrated records by score, optionally keeping only
// the best chunk per document, and truncates to topK.
func rankChunks(records []domain.ChunkRecord, scores map[string]float64, topK int, dedup bool) []domain.RetrievedChunk {
	chunks := make([]domain.RetrievedChunk, 0, len(records))
	seen := make(map[string]bool, len(records))

	// Records arrive in hit order (score descending, chunk ID
	// ascending), so the first chunk seen per document is its best.
	for _, r := range records {
		if dedup {
			if seen[r.Chunk.DocumentID] {
				continue
			}
			seen[r.Chunk.DocumentID] = true
		}
		chunks = append(chunks, domain.RetrievedChunk{
			Chunk: r.Chunk,
			Meta:  r.Meta,
			Score: scores[r.Chunk.ID],
		})
		if len(chunks) == topK {
			break
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Chunk.ID < chunks[j].Chunk.ID
	})
	return chunks
}

// generate produces the answer text over the retrieved chunks. Any
// generation failure degrades the answer instead of failing the query.
func (s *AskService) generate(ctx context.Context, query string, retrieval *domain.RetrievalResult, opts domain.AskOptions) *domain.Answer {
	logger.Section("Generation")

	if s.generation == nil {
		logger.Info("No generation service configured, returning sources only")
		return &domain.Answer{
			Text:          degradedAnswer,
			Degraded:      true,
			FailureReason: "generation service not configured",
			Sources:       *retrieval,
		}
	}

	maxContext := opts.MaxContextLength
	if maxContext <= 0 {
		maxContext = s.cfg.MaxContextLength
	}

	contextBlock := assembleContext(retrieval.Chunks, maxContext)
	prompt := fmt.Sprintf(s.loadPrompt(driven.PromptAnswer, defaultAnswerPrompt), contextBlock, query)
	system := s.loadPrompt(driven.PromptAnswerSystem, defaultAnswerSystemPrompt)

	text, err := s.generation.Generate(ctx, prompt, driven.GenerateOptions{
		System:      system,
		Temperature: 0.2,
	})
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "generation timed out"
		}
		logger.Warn("Generation failed, degrading answer: %v", err)
		return &domain.Answer{
			Text:          degradedAnswer,
			Degraded:      true,
			FailureReason: reason,
			Sources:       *retrieval,
		}
	}

	return &domain.Answer{
		Text:    strings.TrimSpace(text),
		Sources: *retrieval,
	}
}

// assembleContext formats retrieved chunks with their source
// attribution and joins them into a single block bounded by maxRunes.
// Chunks that do not fit whole are dropped rather than split, with one
// exception: a first chunk that alone exceeds the whole budget is cut
// to the budget, so generation never runs on an empty context.
func assembleContext(chunks []domain.RetrievedChunk, maxRunes int) string {
	var (
		b    strings.Builder
		used int
	)
	for _, c := range chunks {
		block := formatSource(&c)
		n := len([]rune(block))
		if used+n > maxRunes && used > 0 {
			logger.Debug("Context budget reached, dropping remaining chunks")
			break
		}
		if used+n > maxRunes {
			// A single oversized chunk still contributes, bounded.
			block = string([]rune(block)[:maxRunes])
			n = maxRunes
		}
		if used > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(block)
		used += n
	}
	return b.String()
}

// formatSource renders one chunk with its email attribution.
func formatSource(c *domain.RetrievedChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", c.Meta.Sender)
	fmt.Fprintf(&b, "Subject: %s\n", c.Meta.Subject)
	if !c.Meta.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", c.Meta.Timestamp.Format("2006-01-02"))
	}
	b.WriteString("\n")
	b.WriteString(c.Chunk.Text)
	return b.String()
}

// loadPrompt loads a template from the store, falling back to the
// embedded default if unavailable.
func (s *AskService) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}
